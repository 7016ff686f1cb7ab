package core

import (
	"fmt"

	"github.com/valter-silva-au/sitecheck/pkg/models"
)

// ValidateCompletion checks whether items may be signed off as done.
//
// All checks run and accumulate. Incomplete mandatory items produce a summary
// error followed by one error per item title; incomplete critical items
// produce a summary error. Failed items and items awaiting verification only
// produce warnings.
func ValidateCompletion(items []models.ChecklistItem) models.ValidationResult {
	res := models.ValidationResult{
		IsValid:  true,
		Errors:   []string{},
		Warnings: []string{},
	}

	var incompleteMandatory []string
	var incompleteCritical, failed, awaiting int

	for _, item := range items {
		status := item.Status.Normalize()
		if item.Mandatory && !status.Satisfied() {
			incompleteMandatory = append(incompleteMandatory, item.Title)
		}
		if item.Critical && !status.Satisfied() {
			incompleteCritical++
		}
		if status == models.ItemFailed {
			failed++
		}
		if item.AwaitingVerification() {
			awaiting++
		}
	}

	if len(incompleteMandatory) > 0 {
		res.IsValid = false
		res.Errors = append(res.Errors, fmt.Sprintf("%d mandatory item(s) not completed", len(incompleteMandatory)))
		for _, title := range incompleteMandatory {
			res.Errors = append(res.Errors, fmt.Sprintf("mandatory item not completed: %s", title))
		}
	}
	if incompleteCritical > 0 {
		res.IsValid = false
		res.Errors = append(res.Errors, fmt.Sprintf("%d critical item(s) not completed", incompleteCritical))
	}
	if failed > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d item(s) failed", failed))
	}
	if awaiting > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d item(s) awaiting verification", awaiting))
	}

	return res
}

// ValidateWithOptions runs ValidateCompletion and, when strict is set, also
// blocks sign-off while any item is awaiting verification.
func ValidateWithOptions(items []models.ChecklistItem, strict bool) models.ValidationResult {
	res := ValidateCompletion(items)
	if !strict {
		return res
	}
	var awaiting int
	for _, item := range items {
		if item.AwaitingVerification() {
			awaiting++
		}
	}
	if awaiting > 0 {
		res.IsValid = false
		res.Errors = append(res.Errors, fmt.Sprintf("%d item(s) require verification before sign-off", awaiting))
	}
	return res
}
