// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pdiddy/patent-chooser/internal/server"
	"github.com/pdiddy/patent-chooser/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search and basket API over HTTP",
	Long: `Serve exposes searches, the basket of the active project, and basket
exports as a JSON API. Events from the signal bus (results ready, basket
changes, notifications) are streamed to websocket clients on /ws and
Prometheus metrics are served on /metrics.

The configured project is activated at startup; POST
/api/projects/:name/activate switches to another one.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	viewerURL, _ := cmd.Flags().GetString("viewer-url")
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.ActivateProject(context.Background(), cfg.Basket.Project, session.ActivateOptions{}); err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Search:    a.search,
		Sessions:  a.session,
		Bus:       a.bus,
		Gatherer:  a.registry,
		ViewerURL: viewerURL,
	})
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Server.Addr, "project", cfg.Basket.Project)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer ossignal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().String("viewer-url", "http://localhost:8080/", "address share links point to")

	rootCmd.AddCommand(serveCmd)
}
