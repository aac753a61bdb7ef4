package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/comp-engine/scoring"
)

// =============================================================================
// CYCLES COMMAND - List selectable billing cycles
// =============================================================================

var cyclesMax int

var cyclesCmd = &cobra.Command{
	Use:   "cycles [reference-date]",
	Short: "List billing cycles back to the adoption epoch",
	Long: `Lists billing cycles ending with the one containing the reference
date (default: today), newest first. Cycles never reach back past the
November 2025 adoption epoch.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCycles,
}

func init() {
	cyclesCmd.Flags().IntVar(&cyclesMax, "max", 12, "maximum cycles to list")
}

func runCycles(cmd *cobra.Command, args []string) error {
	ref := time.Now().UTC()
	if len(args) == 1 {
		parsed, err := parseDateArg(args[0])
		if err != nil {
			return err
		}
		ref = parsed
	}

	cycles := scoring.ResolvePastCycles(ref, cyclesMax)
	if len(cycles) == 0 {
		fmt.Println("no cycles: reference date predates the adoption epoch")
		return nil
	}
	for _, c := range cycles {
		fmt.Printf("%s  %s\n", c.Key(), c.Label())
	}
	return nil
}

func parseDateArg(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", v, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use RFC3339 or YYYY-MM-DD", v)
}
