package core

import (
	"math"

	"github.com/valter-silva-au/sitecheck/pkg/models"
)

// CalculateProgress computes completion statistics for items without
// mutating them. Percentages are rounded half away from zero.
//
// An item whose status is empty or unrecognised counts as pending. Verified
// items count toward both CompletionPercentage and the mandatory/critical
// ratios. With no mandatory (or critical) items the corresponding ratio is
// 100.
func CalculateProgress(items []models.ChecklistItem) models.ProgressSummary {
	var s models.ProgressSummary
	var mandatory, mandatoryDone, critical, criticalDone int

	for _, item := range items {
		status := item.Status.Normalize()
		switch status {
		case models.ItemCompleted:
			s.Completed++
		case models.ItemPending:
			s.Pending++
		case models.ItemInProgress:
			s.InProgress++
		case models.ItemVerified:
			s.Verified++
		case models.ItemFailed:
			s.Failed++
		case models.ItemSkipped:
			s.Skipped++
		}

		if item.Mandatory {
			mandatory++
			if status.Satisfied() {
				mandatoryDone++
			}
		}
		if item.Critical {
			critical++
			if status.Satisfied() {
				criticalDone++
			}
		}
	}

	s.Total = len(items)
	if s.Total > 0 {
		s.CompletionPercentage = percent(s.Completed+s.Verified, s.Total)
	}
	s.MandatoryCompletion = 100
	if mandatory > 0 {
		s.MandatoryCompletion = percent(mandatoryDone, mandatory)
	}
	s.CriticalCompletion = 100
	if critical > 0 {
		s.CriticalCompletion = percent(criticalDone, critical)
	}
	return s
}

// percent returns round(part/whole*100). whole must be positive.
func percent(part, whole int) int {
	return int(math.Round(float64(part) / float64(whole) * 100))
}
