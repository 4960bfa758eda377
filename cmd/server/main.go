// cmd/server/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reddit-harvest/internal/app"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	application, err := app.Initialize(log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("err", err.Error()))
		os.Exit(1)
	}

	go func() {
		if err := application.Start(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("err", err.Error()))
		}
	}()

	log.Info("server started", slog.String("port", application.Config.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Echo.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", slog.String("err", err.Error()))
	}

	log.Info("server stopped")
}
