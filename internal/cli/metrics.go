package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display checklist activity metrics",
	Long: `Display aggregated metrics derived from the event log.

Metrics include checklist creation and deletion counts, template usage,
item status transitions, verifications, retries, and validation outcomes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (event log may be disabled)")
		}

		sinceTime, err := parseSinceDuration(metricsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		w := cmd.OutOrStdout()
		if metricsJSON {
			return writeJSON(w, metrics)
		}

		fmt.Fprintf(w, "Metrics (since %s)\n\n", sinceTime.Format("2006-01-02"))
		fmt.Fprintf(w, "  %-24s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Fprintf(w, "  %-24s %d\n", "Checklists created:", metrics.ChecklistsCreated)
		fmt.Fprintf(w, "  %-24s %d\n", "Checklists deleted:", metrics.ChecklistsDeleted)
		fmt.Fprintf(w, "  %-24s %d\n", "Items added:", metrics.ItemsAdded)
		fmt.Fprintf(w, "  %-24s %d\n", "Items verified:", metrics.ItemsVerified)
		fmt.Fprintf(w, "  %-24s %d\n", "Retries:", metrics.Retries)
		fmt.Fprintf(w, "  %-24s %d passed, %d failed\n", "Validations:", metrics.ValidationsPassed, metrics.ValidationsFailed)

		if len(metrics.TemplatesInstantiated) > 0 {
			fmt.Fprintln(w, "\n  Templates instantiated:")
			for _, id := range sortedKeys(metrics.TemplatesInstantiated) {
				fmt.Fprintf(w, "    %-22s %d\n", id+":", metrics.TemplatesInstantiated[id])
			}
		}

		if len(metrics.TransitionsByStatus) > 0 {
			fmt.Fprintln(w, "\n  Status transitions:")
			for _, status := range sortedKeys(metrics.TransitionsByStatus) {
				fmt.Fprintf(w, "    %-22s %d\n", status+":", metrics.TransitionsByStatus[status])
			}
		}

		if metrics.OldestEvent != nil {
			fmt.Fprintf(w, "\n  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Fprintf(w, "  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}

		return nil
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past. The count must be
// a plain non-negative integer.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := parseCount(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := parseCount(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

// parseCount accepts only ASCII digits, so signs and stray characters fail.
func parseCount(s string) (int, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, fmt.Errorf("not a count: %q", s)
	}
	return strconv.Atoi(s)
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
