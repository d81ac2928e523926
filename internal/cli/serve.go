package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lazypower/mnemo/internal/engine"
	"github.com/lazypower/mnemo/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(engine.WithMetrics(engine.NewMetrics()))
	if err != nil {
		return err
	}
	defer rt.close()

	srv := server.New(rt.db, rt.engine, VersionString(), rt.log)
	srv.StartAutosave(rt.cfg.Server.Autosave)

	addr := rt.cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		rt.log.Info("mnemo serving",
			zap.String("addr", addr),
			zap.String("db", rt.db.Path),
			zap.String("phase", string(rt.engine.Phase())))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-done:
		rt.log.Info("shutting down")
	case err := <-errCh:
		srv.Stop()
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdownErr := httpServer.Shutdown(ctx)

	srv.Stop()
	if _, err := srv.Save(); err != nil {
		return err
	}
	return shutdownErr
}
