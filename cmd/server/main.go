/*
main.go - Compensation engine server entry point

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize zap logger
  3. Open SQLite store (":memory:" supported)
  4. Load the holiday calendar (optional YAML file)
  5. Wire calculator + synchronizer + handlers
  6. Start HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: 8080)
  -db        SQLite database path (default: payroll.db)
  -holidays  Optional YAML holiday calendar path

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  active requests, close the database, exit.

EXAMPLES:
  ./server -db=./data/payroll.db -holidays=./holidays.yaml
  ./server -db=:memory: -port=3000
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/comp-engine/api"
	"github.com/warp/comp-engine/calendar"
	"github.com/warp/comp-engine/payroll"
	"github.com/warp/comp-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "payroll.db", "SQLite database path")
	holidayPath := flag.String("holidays", "", "YAML holiday calendar path")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	var holidays []calendar.Holiday
	if *holidayPath != "" {
		holidays, err = calendar.LoadHolidays(*holidayPath)
		if err != nil {
			logger.Fatal("failed to load holiday calendar", zap.Error(err))
		}
	}
	cal := calendar.New(holidays)

	calc := payroll.NewCalculator(payroll.Sources{
		Compensation: store,
		Exceptions:   store,
		Tasks:        store,
		Incidents:    store,
	}, cal)
	sync := payroll.NewSynchronizer(calc, store, logger)

	handler := api.NewHandler(store, calc, sync, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", *port),
			zap.String("db", *dbPath),
			zap.Int("holidays", len(holidays)))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
