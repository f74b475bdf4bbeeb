package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/talksyhq/talksy/internal/app"
	"github.com/talksyhq/talksy/internal/config"
	"github.com/talksyhq/talksy/internal/logger"
	"github.com/talksyhq/talksy/internal/routes"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

	app, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		panic(err)
	}
	defer func() {
		closeErr := app.Close()
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRoutes(app),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)

	err = server.ListenAndServe()
	if err != nil {
		slog.Error("server failed", "error", err)
		panic(err)
	}
}
