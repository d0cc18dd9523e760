package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/phonginreallife/leadtriage/internal/sla"
)

func newWarningsCmd() *cobra.Command {
	var (
		file        string
		userID      string
		ack         int
		firstAction int
		at          string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "warnings",
		Short: "List SLA warnings, most overdue first",
		Long: `Evaluate SLA rules over a lead export.

Examples:
  triagectl warnings --file leads.json
  triagectl warnings --file leads.json --user 7f1c... --ack 30 --first-action 120
  triagectl warnings --file leads.json --at 2026-03-10T09:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			leads, err := loadLeads(file)
			if err != nil {
				return err
			}

			clock := sla.Clock(time.Now)
			if at != "" {
				t, ok := sla.ParseTime(at)
				if !ok {
					return fmt.Errorf("invalid --at %q", at)
				}
				clock = sla.FixedClock(t)
			}

			cfg := sla.Config{AckTimeMinutes: ack, FirstActionTimeMinutes: firstAction}
			warnings := sla.NewEvaluator(cfg, clock).Calculate(leads, userID)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"warnings":     warnings,
					"urgent_count": sla.UrgentCount(warnings),
				})
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SEVERITY\tTYPE\tLEAD\tOVERDUE\tMESSAGE")
			for _, warning := range warnings {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					warning.Severity, warning.Type, warning.Lead.Name, warning.TimeLeft, warning.Message)
			}
			fmt.Fprintf(w, "Urgent: %d / %d\n", sla.UrgentCount(warnings), len(warnings))
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Lead export (JSON)")
	cmd.Flags().StringVar(&userID, "user", "", "Only leads owned by this user")
	cmd.Flags().IntVar(&ack, "ack", sla.DefaultAckTimeMinutes, "Minutes a NEW lead may wait")
	cmd.Flags().IntVar(&firstAction, "first-action", sla.DefaultFirstActionTimeMinutes, "Minutes before the first interaction is due")
	cmd.Flags().StringVar(&at, "at", "", "Evaluate as of this ISO-8601 time instead of now")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
