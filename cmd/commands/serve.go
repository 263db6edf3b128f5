package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tangle-sim/dag"
	"tangle-sim/db"
	"tangle-sim/handlers"
	"tangle-sim/logger"
	"tangle-sim/repository"
	"tangle-sim/routers"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation API over HTTP",
		RunE:  runServe,
	}
	cmd.Flags().Int("port", 8080, "HTTP listen port")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{"server.port": "port"}); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Logger.Sync()

	logger.Logger.Info("Starting tangle simulator...")

	// In-memory run archive
	ldb, err := db.NewMemLevelDB()
	if err != nil {
		return fmt.Errorf("open leveldb: %w", err)
	}
	defer ldb.Close()

	runRepo := repository.NewRunRepository(ldb)
	sim := dag.NewSimulator(runRepo, cfg.Store.MaxRuns, cfg.Simulation.MaxNodeCount)
	h := handlers.NewHandler(sim, cfg.Simulation.Parameters())

	r := mux.NewRouter()
	routers.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Error("Server stopped", zap.Error(err))
		}
	}()

	logger.Logger.Info("Server running on port", zap.Int("port", cfg.Server.Port))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Logger.Info("Shutdown signal received, exiting...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
