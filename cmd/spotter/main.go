package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"

	"ft8spotter/go-spotter/internal/app"
	"ft8spotter/go-spotter/internal/config"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to a YAML configuration file")
	level := flag.String("log-level", "", "log level: debug, info, warn or error")
	band := flag.Int("band", 0, "default band in meters until WSJT-X reports its dial frequency")
	mode := flag.String("mode", "", "default mode until WSJT-X reports one")
	listen := flag.String("listen", "", "UDP address to receive WSJT-X datagrams on")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if flag.CommandLine.Changed("log-level") {
		cfg.LogLevel = *level
	}
	if flag.CommandLine.Changed("band") {
		cfg.Band = *band
	}
	if flag.CommandLine.Changed("mode") {
		cfg.Mode = strings.ToUpper(*mode)
	}
	if flag.CommandLine.Changed("listen") {
		cfg.ListenAddress = *listen
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))

	application := app.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("application terminated", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped cleanly")
}

func logLevel(level string) slog.Leveler {
	var lvl slog.Level

	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	lv := new(slog.LevelVar)
	lv.Set(lvl)
	return lv
}
