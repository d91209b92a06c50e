//go:build linux

// Command irdecoded decodes a lirccode device with the remotes of a YAML
// config, printing every packet to stdout. Commands such as
// "SEND_ONCE TV POWER 2" are read from stdin. SIGHUP reloads the remotes.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"libdb.so/go-lircd"
	"libdb.so/go-lircd/config"
	"libdb.so/go-lircd/driver/lirccode"
)

func main() {
	var (
		configPath = flag.String("config", "/etc/lirc/lircd.yaml", "Path to the YAML config")
		device     = flag.String("device", "", "lirccode device (overrides driver.device)")
		logLevel   = flag.String("log-level", "", "Log level: error|warn|info|debug (overrides logging.level)")
	)
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "irdecoded: %v\n", err)
		os.Exit(1)
	}
	if *device != "" {
		cfg.Driver.Device = *device
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "irdecoded: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, cfg, *configPath); err != nil && err != context.Canceled {
		logger.Error("irdecoded failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg config.Config, configPath string) error {
	remotes, err := cfg.BuildRemotes()
	if err != nil {
		return err
	}

	drv, err := lirccode.Open(cfg.Driver.Device, cfg.Driver.CodeLength)
	if err != nil {
		return err
	}
	defer drv.Close()

	daemon := lirc.NewDaemon(drv, remotes, lirc.Options{
		RepeatMax:     cfg.Daemon.RepeatMax,
		DynamicCodes:  cfg.Daemon.DynamicCodes,
		Release:       cfg.Daemon.Release,
		ReleaseSuffix: cfg.Daemon.ReleaseSuffix,
	})

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	signals := make(chan lirc.Signal)
	go func() {
		defer close(signals)
		if err := drv.Read(ctx, logger.With("driver", cfg.Driver.Device), signals); err != nil && ctx.Err() == nil {
			cancel(err)
		}
	}()

	go lirc.RouteEvents(ctx, daemon.Events, lirc.RemoteHandlers{
		"*": lirc.ButtonHandlers{
			"*": func(p lirc.ButtonPress) { fmt.Print(p.Packet()) },
		},
	})

	go readCommands(ctx, logger, daemon)
	go reloadOnHangup(ctx, logger, daemon, configPath)

	if err := daemon.Run(ctx, logger, signals); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return cause
		}
		return err
	}
	return nil
}

func readCommands(ctx context.Context, logger *slog.Logger, daemon *lirc.Daemon) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, err := lirc.ParseCommand(line)
		if err != nil {
			logger.Warn("bad command", "line", line, "err", err)
			continue
		}
		// SEND_ONCE replies only when done, so do not block further input.
		go func() {
			reply, err := daemon.SendCommand(ctx, cmd)
			if err != nil {
				logger.Warn(
					"command failed",
					"command", reply.Command,
					"reply", reply.Data,
					"err", err)
				return
			}
			logger.Info(
				"command done",
				"command", reply.Command,
				"reply", reply.Data)
		}()
	}
}

func reloadOnHangup(ctx context.Context, logger *slog.Logger, daemon *lirc.Daemon, configPath string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				logger.Error("cannot reload config", "err", err)
				continue
			}
			remotes, err := cfg.BuildRemotes()
			if err != nil {
				logger.Error("cannot reload remotes", "err", err)
				continue
			}
			if err := daemon.Reload(ctx, remotes); err != nil {
				return
			}
		}
	}
}
