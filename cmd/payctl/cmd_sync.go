package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/comp-engine/payroll"
	"github.com/warp/comp-engine/scoring"
)

// =============================================================================
// SYNC COMMAND - Freeze a cycle into snapshots
// =============================================================================

var (
	syncDate     string
	syncActor    string
	syncUserArgs []string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Freeze a cycle's scores into payout snapshots",
	Long: `Recomputes every user's scores for the cycle containing --date and
upserts one snapshot per user, keyed by (user, cycle start). Re-running
overwrites the previous snapshots for the cycle. Failures are reported
per user and never roll back snapshots already written in the run.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncDate, "date", "", "reference date (default: today)")
	syncCmd.Flags().StringVar(&syncActor, "synced-by", "payctl", "actor recorded on the snapshots")
	syncCmd.Flags().StringSliceVar(&syncUserArgs, "user", nil, "limit to specific user IDs (repeatable)")
}

func runSync(cmd *cobra.Command, args []string) error {
	ref := time.Now().UTC()
	if syncDate != "" {
		parsed, err := parseDateArg(syncDate)
		if err != nil {
			return err
		}
		ref = parsed
	}
	cycle := scoring.ResolveCycle(ref)

	store, calc, closeFn, err := openEngine()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	userIDs := make([]scoring.UserID, 0, len(syncUserArgs))
	for _, id := range syncUserArgs {
		userIDs = append(userIDs, scoring.UserID(id))
	}
	if len(userIDs) == 0 {
		users, err := store.ListUsers(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			userIDs = append(userIDs, u.ID)
		}
	}

	sync := payroll.NewSynchronizer(calc, store, logger)
	result, err := sync.Sync(ctx, cycle, userIDs, syncActor)
	if err != nil {
		return err
	}

	logger.Info("sync finished",
		zap.String("cycle", cycle.Key()),
		zap.Int("synced", len(result.Snapshots)),
		zap.Int("failed", len(result.Failures)))

	fmt.Printf("Cycle %s: %d snapshot(s) written, %d failure(s)\n",
		cycle.Label(), len(result.Snapshots), len(result.Failures))
	for _, f := range result.Failures {
		fmt.Printf("  FAILED %s: %v\n", f.UserID, f)
	}
	if len(result.Failures) > 0 {
		return fmt.Errorf("%d user(s) failed to sync", len(result.Failures))
	}
	return nil
}
