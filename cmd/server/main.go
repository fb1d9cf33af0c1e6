// Package main starts the missiond HTTP(S) server: it resolves the
// configuration, sets up logging, opens the configured store and serves the
// mission API until interrupted.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/fieldops/missiond/internal/app"
	"github.com/fieldops/missiond/internal/config"
	"github.com/fieldops/missiond/internal/logger"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	options, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, options, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init application", zap.String("store", options.Store), zap.Error(err))
	}

	server := &nethttp.Server{
		Addr:    options.Address,
		Handler: application.Handler,
	}
	if options.TLSCertFile != "" {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	serveErr := make(chan error, 1)
	go func() {
		if server.TLSConfig != nil {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Address))
			serveErr <- server.ListenAndServeTLS(options.TLSCertFile, options.TLSKeyFile)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Address))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Error("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), options.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("http shutdown", zap.Error(err))
	}
	if err := application.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("application shutdown", zap.Error(err))
	}
}
