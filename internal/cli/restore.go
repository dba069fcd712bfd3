package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/cli/runner"
	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recovery"
)

var validateCmd = &cobra.Command{
	Use:   "validate <backup-path>",
	Short: "Check that a stored backup is complete and untampered",
	Example: `  clinicguard validate local:manual-backup-20250101-020000-1a2b3c4d.json
  clinicguard validate /var/lib/clinicguard/backups/full-backup-20250101-020000-1a2b3c4d.json`,
	Args: cobra.ExactArgs(1),
	RunE: runners.Services().Wrap(runValidate),
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-path>",
	Short: "Restore records from a validated backup",
	Long: `Restore inserts records missing from the live store and, with
--overwrite, updates records that differ. Nothing is ever deleted. A
pre-recovery backup of the current state is written before any change.`,
	Example: `  clinicguard restore local:full-backup-20250101-020000-1a2b3c4d.json
  clinicguard restore --overwrite --include patients,appointments <backup-path>`,
	Args: cobra.ExactArgs(1),
	RunE: runners.Services().Wrap(runRestore),
}

func init() {
	f := restoreCmd.Flags()
	f.Bool("overwrite", false, "Update existing records that differ from the backup")
	f.StringSlice("include", nil, "Only restore these collections (comma-separated)")
	rootCmd.AddCommand(validateCmd, restoreCmd)
}

func runValidate(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	svc, err := ctx.Services()
	if err != nil {
		return err
	}

	v := svc.Recovery.Validate(ctx.Context(), args[0])
	w := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(w, validationSummary(v)); err != nil {
			return err
		}
	} else if v.IsValid {
		printSuccess(w, "Backup is valid")
		printInfo(w, "Snapshot:  %s (%s)", v.Snapshot.ID, v.Snapshot.Kind)
		printInfo(w, "Taken:     %s", v.Snapshot.Timestamp.Format("2006-01-02 15:04:05 MST"))
		printInfo(w, "Records:   %d", v.Snapshot.TotalRecords)
		printCounts(w, "Collections", v.Snapshot.Counts())
	}

	if !v.IsValid {
		return fmt.Errorf("invalid backup: %s", apperrors.SanitizeString(v.Error))
	}
	return nil
}

type validationJSON struct {
	Valid        bool           `json:"valid"`
	Error        string         `json:"error,omitempty"`
	SnapshotID   string         `json:"snapshotId,omitempty"`
	TotalRecords int            `json:"totalRecords"`
	Counts       map[string]int `json:"perCollectionCounts,omitempty"`
}

func validationSummary(v recovery.ValidationResult) validationJSON {
	out := validationJSON{Valid: v.IsValid, Error: apperrors.SanitizeString(v.Error)}
	if v.Snapshot != nil {
		out.SnapshotID = v.Snapshot.ID
		out.TotalRecords = v.Snapshot.TotalRecords
		out.Counts = v.Snapshot.Counts()
	}
	return out
}

func runRestore(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	flags := runner.Flags(cmd)
	policy := recovery.Policy{
		OverwriteExisting: flags.Bool("overwrite"),
		Include:           flags.StringSlice("include"),
	}
	if err := flags.Err(); err != nil {
		return err
	}
	for _, c := range policy.Include {
		if !recordstore.IsProtected(c) {
			return fmt.Errorf("%w: %q (known: %s)", apperrors.ErrUnknownCollection, c, strings.Join(recordstore.Protected(), ", "))
		}
	}

	svc, err := ctx.Services()
	if err != nil {
		return err
	}

	res, v := svc.Recovery.Restore(ctx.Context(), args[0], policy)
	if res == nil {
		return fmt.Errorf("invalid backup: %s", apperrors.SanitizeString(v.Error))
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(w, restoreSummary(res)); err != nil {
			return err
		}
	} else {
		if res.Success {
			printSuccess(w, "%s", res.Message)
		}
		if res.PreRestoreSnapshotRef != "" {
			printInfo(w, "Pre-recovery backup: %s", res.PreRestoreSnapshotRef)
		}
		printCounts(w, "Recovered", res.RecoveredCounts)
		printCounts(w, "Skipped", res.SkippedCounts)
		printCounts(w, "Failed", res.FailedCounts)
	}

	if !res.Success {
		return fmt.Errorf("restore failed: %s", apperrors.SanitizeString(res.Message))
	}
	return nil
}

type restoreJSON struct {
	Success           bool           `json:"success"`
	Message           string         `json:"message"`
	Recovered         map[string]int `json:"recovered"`
	Failed            map[string]int `json:"failed"`
	Skipped           map[string]int `json:"skipped"`
	PreRecoveryBackup string         `json:"preRecoveryBackup,omitempty"`
}

func restoreSummary(res *recovery.RestoreResult) restoreJSON {
	return restoreJSON{
		Success:           res.Success,
		Message:           apperrors.SanitizeString(res.Message),
		Recovered:         res.RecoveredCounts,
		Failed:            res.FailedCounts,
		Skipped:           res.SkippedCounts,
		PreRecoveryBackup: res.PreRestoreSnapshotRef,
	}
}
