package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/comp-engine/scoring"
)

// =============================================================================
// SCORE COMMAND - Live per-user scores for a cycle
// =============================================================================

var scoreDate string

var scoreCmd = &cobra.Command{
	Use:   "score [user-id...]",
	Short: "Compute live scores for the cycle containing --date",
	Long: `Recomputes availability, stability, and output scores plus the
expected payout from current records. Without user arguments, all
users are scored. This is the live view; it never reads or writes
snapshots.`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVar(&scoreDate, "date", "", "reference date (default: today)")
}

func runScore(cmd *cobra.Command, args []string) error {
	ref := time.Now().UTC()
	if scoreDate != "" {
		parsed, err := parseDateArg(scoreDate)
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
	userIDs := make([]scoring.UserID, 0, len(args))
	for _, id := range args {
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

	logger.Debug("computing live scores",
		zap.String("cycle", cycle.Key()),
		zap.Int("users", len(userIDs)))

	fmt.Printf("Cycle: %s\n", cycle.Label())
	for _, userID := range userIDs {
		live, err := calc.LiveUser(ctx, cycle, userID)
		if err != nil {
			fmt.Printf("  %-16s ERROR: %v\n", userID, err)
			continue
		}
		fmt.Printf("  %-16s avail=%.3f stab=%.3f output=%.3f expected=%s diff=%s (%d working days)\n",
			live.UserID,
			live.Scores.AvailabilityScore,
			live.Scores.StabilityScore,
			live.Scores.MonthlyOutputScore,
			live.Payout.ExpectedINR.StringFixed(2),
			live.Payout.DifferenceINR.StringFixed(2),
			live.WorkingDaysInCycle)
	}
	return nil
}
