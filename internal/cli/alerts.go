package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/sitecheck/internal/observability"
)

var alertsJSON bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active alerts and warnings",
	Long: `Evaluate alert conditions against the event log and display any triggered alerts.

Alerts check for items left failed, completed items still awaiting
verification, checklists with no status change, and checklists whose latest
validation failed. Thresholds come from the alerts section of .sitecheck.yaml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized (event log may be disabled)")
		}

		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		w := cmd.OutOrStdout()
		if alertsJSON {
			if alerts == nil {
				alerts = []observability.Alert{}
			}
			return writeJSON(w, alerts)
		}

		if len(alerts) == 0 {
			fmt.Fprintln(w, "No active alerts.")
			return nil
		}

		fmt.Fprintf(w, "%d active alert(s):\n\n", len(alerts))
		for _, alert := range alerts {
			severity := strings.ToUpper(string(alert.Severity))
			fmt.Fprintf(w, "  [%s] %s\n", severity, alert.Message)
			fmt.Fprintf(w, "         triggered at %s\n\n", alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
		}

		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsJSON, "json", false, "Output alerts as JSON")
	rootCmd.AddCommand(alertsCmd)
}
