package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/sitecheck/internal/core"
	"github.com/valter-silva-au/sitecheck/internal/observability"
	"github.com/valter-silva-au/sitecheck/pkg/models"
)

// Dashboard panel indices.
const (
	panelChecklists = iota
	panelDetail
	panelActivity
	panelCount
)

type dashboardModel struct {
	activePanel int
	cursor      int
	width       int
	height      int

	// Data.
	rows     []checklistRow
	activity *activitySnapshot
	alerts   []observability.Alert

	// State.
	loading bool
	err     error
}

type checklistRow struct {
	checklist  models.Checklist
	progress   models.ProgressSummary
	validation models.ValidationResult
}

type activitySnapshot struct {
	eventCount        int
	checklistsCreated int
	itemsVerified     int
	retries           int
	validationsPassed int
	validationsFailed int
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	rows     []checklistRow
	activity *activitySnapshot
	alerts   []observability.Alert
	err      error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelChecklists,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "j", "down":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
			return m, nil
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rows = msg.rows
		m.activity = msg.activity
		m.alerts = msg.alerts
		if m.cursor >= len(m.rows) {
			m.cursor = max(len(m.rows)-1, 0)
		}
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" sitecheck ")
	help := helpStyle.Render("j/k: select | tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	listPanel := m.renderChecklistsPanel()
	detailPanel := m.renderDetailPanel()
	activityPanel := m.renderActivityPanel()

	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		listPanel = m.applyPanelStyle(panelChecklists, listPanel, colWidth-4)
		detailPanel = m.applyPanelStyle(panelDetail, detailPanel, colWidth-4)
		activityPanel = m.applyPanelStyle(panelActivity, activityPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, listPanel, detailPanel, activityPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		listPanel = m.applyPanelStyle(panelChecklists, listPanel, panelWidth)
		detailPanel = m.applyPanelStyle(panelDetail, detailPanel, panelWidth)
		activityPanel = m.applyPanelStyle(panelActivity, activityPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, listPanel, detailPanel, activityPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderChecklistsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Checklists"))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString("  No checklists found.")
		return b.String()
	}

	for i, row := range m.rows {
		marker := "  "
		name := row.checklist.Name
		if i == m.cursor {
			marker = "> "
			name = selectedStyle.Render(name)
		}
		ready := errStyle.Render("✗")
		if row.validation.IsValid {
			ready = okStyle.Render("✓")
		}
		b.WriteString(fmt.Sprintf("%s%s %s %3d%%  %s\n", marker, ready,
			progressBar(row.progress.CompletionPercentage, 10), row.progress.CompletionPercentage, name))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d", len(m.rows)))
	return b.String()
}

func (m dashboardModel) renderDetailPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Sign-off"))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString("  Nothing selected.")
		return b.String()
	}

	row := m.rows[m.cursor]
	p := row.progress
	b.WriteString(fmt.Sprintf("  %s\n", row.checklist.Name))
	b.WriteString(mutedStyle.Render("  "+row.checklist.ID) + "\n\n")
	b.WriteString(fmt.Sprintf("  %-10s %s %3d%%\n", "Mandatory", progressBar(p.MandatoryCompletion, 10), p.MandatoryCompletion))
	b.WriteString(fmt.Sprintf("  %-10s %s %3d%%\n", "Critical", progressBar(p.CriticalCompletion, 10), p.CriticalCompletion))
	b.WriteString(fmt.Sprintf("\n  %d/%d done, %d verified, %d failed\n", p.Completed, p.Total, p.Verified, p.Failed))

	for _, e := range row.validation.Errors {
		b.WriteString("\n  " + errStyle.Render(e))
	}
	for _, w := range row.validation.Warnings {
		b.WriteString("\n  " + warnStyle.Render(w))
	}
	return b.String()
}

func (m dashboardModel) renderActivityPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Activity (7d)"))
	b.WriteString("\n")

	if m.activity == nil {
		b.WriteString("  No activity recorded.")
		return b.String()
	}

	a := m.activity
	lines := []struct {
		label string
		value int
	}{
		{"Events", a.eventCount},
		{"Created", a.checklistsCreated},
		{"Verified", a.itemsVerified},
		{"Retries", a.retries},
		{"Passed", a.validationsPassed},
		{"Rejected", a.validationsFailed},
	}

	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-14s %d\n", l.label, l.value))
	}

	if len(m.alerts) > 0 {
		b.WriteString("\n" + headerStyle.Render(fmt.Sprintf("Alerts (%d)", len(m.alerts))) + "\n")
		for _, alert := range m.alerts {
			style := warnStyle
			if alert.Severity == observability.SeverityHigh {
				style = errStyle
			}
			b.WriteString("  " + style.Render(alert.Message) + "\n")
		}
	}

	return b.String()
}

// loadData reads checklists straight from the manager and computes progress
// locally, so refreshing the dashboard never writes validation events.
// Validation honours StrictVerification like Manager.Validate does.
func loadData() tea.Msg {
	var result dataLoadedMsg

	if Manager != nil {
		lists, err := Manager.List(core.ChecklistFilter{})
		if err != nil {
			result.err = fmt.Errorf("loading checklists: %w", err)
			return result
		}
		result.rows = make([]checklistRow, 0, len(lists))
		for _, cl := range lists {
			result.rows = append(result.rows, checklistRow{
				checklist:  cl,
				progress:   core.CalculateProgress(cl.Items),
				validation: core.ValidateWithOptions(cl.Items, StrictVerification),
			})
		}
	}

	if MetricsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.activity = &activitySnapshot{
			eventCount:        metrics.EventCount,
			checklistsCreated: metrics.ChecklistsCreated,
			itemsVerified:     metrics.ItemsVerified,
			retries:           metrics.Retries,
			validationsPassed: metrics.ValidationsPassed,
			validationsFailed: metrics.ValidationsFailed,
		}
	}

	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			result.err = fmt.Errorf("evaluating alerts: %w", err)
			return result
		}
		result.alerts = alerts
	}

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for checklist progress",
	Long: `Launch an interactive terminal dashboard listing stored checklists with
their completion, the sign-off status of the selected checklist, and recent
activity and active alerts from the event log.

Select with j/k, switch panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Manager == nil {
			return fmt.Errorf("checklist manager not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
