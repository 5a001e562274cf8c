package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vv-aa-ss/CyrrencyConverter/internal/app"
	"github.com/vv-aa-ss/CyrrencyConverter/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	if err := bootstrap.Refresher.Start(ctx); err != nil {
		slog.Error("Failed to start refresher", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Refresher.Stop()

	srv := server.New(bootstrap.Config.Server.Addr, bootstrap.Refresher)
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("Shutdown complete")
}
