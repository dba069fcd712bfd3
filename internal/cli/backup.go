package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/backup"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/cli/runner"
	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run a manual backup now",
	Long: `Run the backup cascade once: check the record store, snapshot every
protected collection and write the snapshot to all configured locations.`,
	Example: `  clinicguard backup
  clinicguard backup --config /etc/clinicguard.yaml --json`,
	Args: cobra.NoArgs,
	RunE: runners.Services().Wrap(runBackup),
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"snapshots"},
	Short:   "List stored backups, newest first",
	Args:    cobra.NoArgs,
	RunE:    runners.Services().Wrap(runList),
}

func init() {
	listCmd.Flags().Int("limit", 0, "Show at most this many backups (0 shows all)")
	rootCmd.AddCommand(backupCmd, listCmd)
}

func runBackup(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	svc, err := ctx.Services()
	if err != nil {
		return err
	}

	res := svc.Backup.Trigger(ctx.Context())
	w := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(w, backupSummary(res)); err != nil {
			return err
		}
	} else {
		printBackupResult(cmd, res)
	}

	if res.Status == backup.StatusEmergencyFallback {
		return fmt.Errorf("backup failed: %s", apperrors.SanitizeString(res.Error))
	}
	return nil
}

func printBackupResult(cmd *cobra.Command, res *backup.Result) {
	w := cmd.OutOrStdout()
	switch {
	case res.Status == backup.StatusEmergencyFallback:
		printError(cmd.ErrOrStderr(), "%s: %s", res.Status, apperrors.SanitizeString(res.Error))
	case res.Warning:
		printWarning(w, "%s: %s", res.Status, res.Message)
	default:
		printSuccess(w, "%s", res.Status)
	}
	if res.SnapshotID != "" {
		printInfo(w, "Snapshot:  %s", res.SnapshotID)
		printInfo(w, "Records:   %d", res.TotalRecords)
	}
	for _, c := range res.Copies {
		printInfo(w, "Copy:      %s (%d bytes)", c.Ref, c.Size)
	}
	for _, f := range res.Failures {
		printWarning(w, "Location %s failed: %s", f.Location, apperrors.SanitizeError(f.Err))
	}
	printCounts(w, "Collections", res.Counts)
}

type backupSummaryJSON struct {
	Success      bool           `json:"success"`
	Status       string         `json:"status"`
	Warning      bool           `json:"warning,omitempty"`
	Message      string         `json:"message,omitempty"`
	Error        string         `json:"error,omitempty"`
	SnapshotID   string         `json:"snapshotId,omitempty"`
	TotalRecords int            `json:"totalRecords"`
	Counts       map[string]int `json:"perCollectionCounts,omitempty"`
	Copies       []string       `json:"copies"`
}

func backupSummary(res *backup.Result) backupSummaryJSON {
	out := backupSummaryJSON{
		Success:      res.Success,
		Status:       string(res.Status),
		Warning:      res.Warning,
		Message:      res.Message,
		Error:        apperrors.SanitizeString(res.Error),
		SnapshotID:   res.SnapshotID,
		TotalRecords: res.TotalRecords,
		Counts:       res.Counts,
		Copies:       []string{},
	}
	for _, c := range res.Copies {
		out.Copies = append(out.Copies, c.Ref)
	}
	return out
}

func runList(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	flags := runner.Flags(cmd)
	limit := flags.Int("limit")
	if err := flags.Err(); err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	svc, err := ctx.Services()
	if err != nil {
		return err
	}
	entries := svc.Backup.List(ctx.Context())
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(w, entries)
	}
	if len(entries) == 0 {
		printInfo(w, "No backups found")
		return nil
	}
	printHeader(w, fmt.Sprintf("Backups (%d)", len(entries)))
	for _, e := range entries {
		printInfo(w, "%-20s %-10s %10d  %s", e.Created.Format("2006-01-02 15:04:05"), e.Kind, e.Size, e.Path)
	}
	return nil
}
