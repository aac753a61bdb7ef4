// Package main implements the payctl CLI.
//
// payctl is the operational entry point for the compensation engine:
// cron jobs freeze cycles with `payctl sync`, and operators inspect
// cycles and live scores without going through the HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/comp-engine/calendar"
	"github.com/warp/comp-engine/payroll"
	"github.com/warp/comp-engine/store/sqlite"
)

var (
	dbPath      string
	holidayPath string
	verbose     bool
	logger      *zap.Logger
)

// =============================================================================
// ROOT COMMAND
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "payctl",
	Short: "Compensation engine control CLI",
	Long: `payctl operates the compensation scoring engine from the command line.

Billing cycles run from the 19th of a month to the 18th of the next.
Live scores are recomputed on demand; snapshots are frozen explicitly
with the sync command and never change until re-synced.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "payroll.db", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&holidayPath, "holidays", "", "YAML holiday calendar path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(cyclesCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(syncCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// =============================================================================
// SHARED WIRING
// =============================================================================

// openEngine wires store, calendar, and calculator for a command run.
// The returned close function must be deferred.
func openEngine() (*sqlite.Store, *payroll.Calculator, func(), error) {
	store, err := sqlite.New(dbPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	var holidays []calendar.Holiday
	if holidayPath != "" {
		holidays, err = calendar.LoadHolidays(holidayPath)
		if err != nil {
			store.Close()
			return nil, nil, nil, err
		}
	}

	calc := payroll.NewCalculator(payroll.Sources{
		Compensation: store,
		Exceptions:   store,
		Tasks:        store,
		Incidents:    store,
	}, calendar.New(holidays))

	return store, calc, func() { store.Close() }, nil
}
