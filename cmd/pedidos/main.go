package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pedidos/internal/config"
	"pedidos/internal/database"
	"pedidos/internal/handler"
	"pedidos/internal/inference"
	"pedidos/internal/metrics"
	"pedidos/internal/printer"
	"pedidos/internal/service"
	"pedidos/internal/store"
)

func main() {
	cfg := config.New()
	slog.SetDefault(newLogger(cfg.LogLevel, cfg.LogFormat))

	if cfg.UsesDefaultSecret() {
		slog.Warn("HANDOFF_SECRET not set, hand-off cookies are signed with the built-in default")
	}

	ctx := context.Background()

	// Stores
	var active, saved store.OrderStore
	if cfg.DatabaseURI != "" {
		db, err := database.NewDB(ctx, cfg.DatabaseURI)
		if err != nil {
			slog.Error("failed to connect to DB", "error", err)
			os.Exit(1)
		}
		defer database.CloseDB(db)

		if err := database.InitSchema(ctx, db); err != nil {
			slog.Error("failed to init DB schema", "error", err)
			os.Exit(1)
		}
		active = store.NewPostgresStore(db, false)
		saved = store.NewPostgresStore(db, true)
	} else {
		slog.Warn("no DATABASE_URI set, orders are kept in memory")
		active = store.NewMemoryStore()
		saved = store.NewMemoryStore()
	}

	llm, err := inference.New(cfg.LLM)
	if err != nil {
		slog.Error("failed to build inference client", "error", err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Print.Timezone)
	if err != nil {
		slog.Warn("unknown print timezone, using UTC", "timezone", cfg.Print.Timezone, "error", err)
		loc = time.UTC
	}

	// Services
	reg := metrics.NewRegistry()
	orderSvc := service.NewOrderService(active, saved, llm,
		service.WithMetrics(reg),
		service.WithTemplateMode(cfg.TemplateMode),
	)
	printSvc := service.NewPrintService(
		printer.NewDispatcher(cfg.Print.SinkURL, cfg.Print.Timeout),
		reg, cfg.Print.Width, loc,
	)

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      handler.NewRouter(orderSvc, printSvc, reg, cfg.HandoffSecret),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress, "llm", cfg.LLM.Provider, "template_mode", cfg.TemplateMode)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
