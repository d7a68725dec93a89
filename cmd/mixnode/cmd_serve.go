/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/friendsincode/auteur/internal/config"
	"github.com/friendsincode/auteur/internal/logging"
	"github.com/friendsincode/auteur/internal/mixer"
	"github.com/friendsincode/auteur/internal/setting"
	"github.com/friendsincode/auteur/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Boot the mixer node and serve its health/metrics endpoints",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.Setup(cfg.Environment)
	logger.Info().Str("node_id", cfg.NodeID).Msg("mixnode starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracerProvider, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:  "mixnode",
		NodeID:       cfg.NodeID,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.TracingEnabled,
		SampleRate:   cfg.TraceSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("tracer shutdown failed")
		}
	}()

	settings, err := setting.MixerSettings(
		cfg.DefaultWidth,
		cfg.DefaultHeight,
		cfg.DefaultSampleRate,
		cfg.DefaultFallbackImage,
		int32(cfg.DefaultFallbackTimeout/time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("building settings table: %w", err)
	}

	// A standalone mixnode has no fleet-wide node registry to notify, so it
	// runs without a NotificationSink; Stopped/error events are only logged.
	node := mixer.NewWithSettings(cfg.NodeID, logger, nil, settings)
	go node.Run(ctx)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Get("/nodeinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(node.GetNodeInfo(r.Context())); err != nil {
			logger.Error().Err(err).Msg("encoding nodeinfo response")
		}
	})
	router.Handle("/metrics", telemetry.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	httpServer := &http.Server{Addr: addr, Handler: router}

	go func() {
		logger.Info().Str("addr", addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully")

	timeoutCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}

	if err := node.Stop(context.Background()); err != nil {
		logger.Error().Err(err).Msg("mixer stop failed")
	}
	cancel()

	logger.Info().Msg("mixnode stopped")
	return nil
}
