package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/cli/runner"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/integrity"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit the live record store for integrity problems",
	Long: `Run every integrity check against the live record store and print
the report. Exits non-zero when the audit FAILED (critical issues).
With --history, print stored reports instead of running a new audit.`,
	Args: cobra.NoArgs,
	RunE: runners.Services().Wrap(runAudit),
}

func init() {
	f := auditCmd.Flags()
	f.Int("history", 0, "Print the most recent N stored reports instead of auditing")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	flags := runner.Flags(cmd)
	history := flags.Int("history")
	if err := flags.Err(); err != nil {
		return err
	}

	svc, err := ctx.Services()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	if flags.Changed("history") {
		if history <= 0 {
			return fmt.Errorf("--history must be a positive integer")
		}
		reports, err := svc.Integrity.History(history)
		if err != nil {
			return fmt.Errorf("failed to read audit history: %w", err)
		}
		if jsonOutput {
			if reports == nil {
				reports = []integrity.Report{}
			}
			return printJSON(w, reports)
		}
		if len(reports) == 0 {
			printInfo(w, "No audit reports stored")
			return nil
		}
		for i := range reports {
			printReport(cmd, &reports[i])
			printDivider(w)
		}
		return nil
	}

	report := svc.Integrity.Audit(ctx.Context())
	if jsonOutput {
		if err := printJSON(w, report); err != nil {
			return err
		}
	} else {
		printReport(cmd, report)
	}
	if report.Status == integrity.Failed {
		return fmt.Errorf("integrity audit failed with %d issue(s)", len(report.Issues))
	}
	return nil
}

func printReport(cmd *cobra.Command, r *integrity.Report) {
	w := cmd.OutOrStdout()
	title := fmt.Sprintf("Integrity report %s", r.ID)
	printHeader(w, title)
	printInfo(w, "Time:      %s", r.Timestamp.Format("2006-01-02 15:04:05 MST"))
	switch r.Status {
	case integrity.Passed:
		printSuccess(w, "Status:    %s", r.Status)
	case integrity.Warning:
		printWarning(w, "Status:    %s", r.Status)
	default:
		printError(w, "Status:    %s", r.Status)
	}
	if r.Duration != "" {
		printInfo(w, "Duration:  %s", r.Duration)
	}
	for _, is := range r.Issues {
		printInfo(w, "  [%s] %s %s: %s", is.Severity, is.Type, is.Collection, is.Description)
	}
	printCounts(w, "Collections", r.CollectionCounts)
}
