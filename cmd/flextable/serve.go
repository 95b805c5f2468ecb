// Serve command: runs the HTTP API over the configured backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/astarworks/flextable/internal/httpapi"
	"github.com/astarworks/flextable/pkg/engine"
	"github.com/astarworks/flextable/pkg/memory"
	"github.com/astarworks/flextable/pkg/sqlite"
	"github.com/astarworks/flextable/pkg/types"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the flextable HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	configDir, err := resolveConfigDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}

	backendName := cfg.GetString(cfgKeyBackend)
	if flagBackend != "" {
		backendName = flagBackend
	}

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	backend, err := openBackend(backendName)
	if err != nil {
		return err
	}
	if err := backend.Attach(types.Config{Backend: backendName, DataDir: dataDir}); err != nil {
		return fmt.Errorf("attach %s backend: %w", backendName, err)
	}
	defer backend.Detach()

	server := httpapi.NewServer(backend, log, httpapi.Options{
		PageLimits: engine.PageLimits{
			Default: cfg.GetInt(cfgKeyPageSize),
			Max:     cfg.GetInt(cfgKeyPageSizeMax),
		},
		RateRPS:   cfg.GetFloat64(cfgKeyRateRPS),
		RateBurst: cfg.GetInt(cfgKeyRateBurst),
	})

	addr := cfg.GetString(cfgKeyListen)
	httpServer := &http.Server{Addr: addr, Handler: server.Router()}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("backend", backendName).Msg("serving")
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// openBackend maps a backend name to an unattached backend instance.
func openBackend(name string) (types.Backend, error) {
	switch name {
	case types.BackendSQLite:
		return sqlite.NewBackend(), nil
	case types.BackendMemory:
		return memory.NewBackend(), nil
	default:
		return nil, fmt.Errorf("backend %q: %w", name, types.ErrBackendUnknown)
	}
}
