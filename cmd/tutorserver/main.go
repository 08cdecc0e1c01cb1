// Command tutorserver serves tutoring sessions over HTTP and WebSocket.
//
// Usage:
//
//	tutorserver [-config tutormesh.yaml]
//
// Configuration is read from the YAML file (optional) and TUTOR_*
// environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Titouaaaan/tutormesh"
	"github.com/Titouaaaan/tutormesh/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tutorserver:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", config.DefaultConfigFile, "path to the YAML configuration")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tm, err := tutormesh.New(ctx, *cfg)
	if err != nil {
		return err
	}
	defer func() { _ = tm.Close() }()
	logger := tm.Logger()

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: tm.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("tutorserver.listen", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("tutorserver.shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tm.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tutorserver.session.shutdown_failed", "error", err.Error())
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
