package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
)

var Version = "dev"

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func main() {
	settingsService := NewSettingsService()
	settings := settingsService.GetSettings()
	if err := settings.validate(); err != nil {
		log.Fatal("invalid settings:", err)
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel(settings.LogLevel),
		TimeFormat: time.TimeOnly,
	})))
	slog.Info("winwing-bridge starting", "version", Version)

	instance, err := NewSingleInstance()
	if err != nil {
		log.Fatal(err)
	}
	defer instance.Close()

	status := NewStatusStream()
	clock := clockwork.NewRealClock()

	client := NewXPlaneClient(settings.XPlaneHost, settings.XPlanePort, settings.LocalPort, clock)
	if err := client.Connect(); err != nil {
		log.Fatal("open simulator link:", err)
	}
	defer client.Close()

	bridge := NewBridgeService(settings, clock, status, client,
		func() (PanelTransport, error) { return OpenPanel() })

	instance.SetOnPing(func() string {
		status.Publish(StatusEvent{Message: "another instance tried to start"})
		return bridge.State().String()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-status.ShutdownRequested()
		stop()
	}()

	// Console observer, stands in for the GUI layer.
	events, cancel := status.Subscribe()
	defer cancel()
	go func() {
		for ev := range events {
			if ev.Message != "" {
				slog.Info("status", "state", ev.State.String(), "msg", ev.Message)
			}
		}
	}()

	if err := bridge.Run(ctx); err != nil {
		slog.Error("bridge exited", "error", err)
		os.Exit(1)
	}
	slog.Info("winwing-bridge stopped")
}
