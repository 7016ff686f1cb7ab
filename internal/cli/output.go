package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/valter-silva-au/sitecheck/pkg/models"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	barFill    = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
)

var statusStyles = map[models.ItemStatus]lipgloss.Style{
	models.ItemPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	models.ItemInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
	models.ItemCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
	models.ItemVerified:   lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
	models.ItemFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	models.ItemSkipped:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// progressBar renders pct (0-100) as a fixed-width bar.
func progressBar(pct, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100
	return barFill.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", width-filled))
}

func renderStatus(s models.ItemStatus) string {
	n := s.Normalize()
	style, ok := statusStyles[n]
	if !ok {
		return string(n)
	}
	return style.Render(fmt.Sprintf("%-11s", n))
}

func itemFlags(item models.ChecklistItem) string {
	var flags []string
	if item.Mandatory {
		flags = append(flags, "M")
	}
	if item.Critical {
		flags = append(flags, "C")
	}
	if item.RequiresVerification {
		flags = append(flags, "V")
	}
	return strings.Join(flags, "")
}

func printProgress(w io.Writer, p models.ProgressSummary) {
	fmt.Fprintf(w, "  %-22s %s %3d%%\n", "Completion:", progressBar(p.CompletionPercentage, 20), p.CompletionPercentage)
	fmt.Fprintf(w, "  %-22s %s %3d%%\n", "Mandatory:", progressBar(p.MandatoryCompletion, 20), p.MandatoryCompletion)
	fmt.Fprintf(w, "  %-22s %s %3d%%\n", "Critical:", progressBar(p.CriticalCompletion, 20), p.CriticalCompletion)
	fmt.Fprintf(w, "\n  %-22s %d\n", "Total items:", p.Total)
	fmt.Fprintf(w, "  %-22s %d\n", "Pending:", p.Pending)
	fmt.Fprintf(w, "  %-22s %d\n", "In progress:", p.InProgress)
	fmt.Fprintf(w, "  %-22s %d\n", "Completed:", p.Completed)
	fmt.Fprintf(w, "  %-22s %d\n", "Verified:", p.Verified)
	fmt.Fprintf(w, "  %-22s %d\n", "Failed:", p.Failed)
	fmt.Fprintf(w, "  %-22s %d\n", "Skipped:", p.Skipped)
}

func printValidation(w io.Writer, res models.ValidationResult) {
	if res.IsValid {
		fmt.Fprintln(w, okStyle.Render("Ready for sign-off."))
	} else {
		fmt.Fprintln(w, errStyle.Render("Not ready for sign-off."))
	}
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  %s %s\n", errStyle.Render("error:"), e)
	}
	for _, wn := range res.Warnings {
		fmt.Fprintf(w, "  %s %s\n", warnStyle.Render("warning:"), wn)
	}
}

func printChecklist(w io.Writer, cl *models.Checklist) {
	fmt.Fprintf(w, "%s  %s\n", cl.ID, cl.Name)
	if cl.TemplateID != "" {
		fmt.Fprintf(w, "%s\n", mutedStyle.Render(fmt.Sprintf("template %s v%s", cl.TemplateID, cl.TemplateVersion)))
	}
	if cl.TaskID != "" {
		fmt.Fprintf(w, "%s\n", mutedStyle.Render("task "+cl.TaskID))
	}
	fmt.Fprintln(w)
	if len(cl.Items) == 0 {
		fmt.Fprintln(w, "  (no items)")
		return
	}
	for k, item := range cl.Items {
		fmt.Fprintf(w, "  %2d. %s %-3s %s  %s\n", k+1, renderStatus(item.Status), itemFlags(item), item.Title, mutedStyle.Render(item.ID))
	}
}
