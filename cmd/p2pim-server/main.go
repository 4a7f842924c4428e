package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"

	"github.com/p2pim/p2pim/server"
)

var backendLog = slog.NewBackend(logWriter{})

var log = backendLog.Logger("SRVR")

// logWriter writes every log line to stdout and, once run has set
// logRotator from --log-file, to the rotated log file as well.
type logWriter struct{}

var logRotator *rotator.Rotator

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		return logRotator.Write(p)
	}
	return len(p), nil
}

func newLogRotator(logFile string) (*rotator.Rotator, error) {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return rotator.New(logFile, 10*1024, false, 3)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	defaults := server.DefaultConfig()
	cfg := defaults

	fs := flag.NewFlagSet("p2pim-server", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.Addr, "addr", defaults.Addr, "bind address")
	fs.IntVar(&cfg.Port, "port", defaults.Port, "bind port")
	fs.IntVar(&cfg.MemBytes, "mem", defaults.MemBytes, "max total wire bytes held across all stored messages")
	currentTime := fs.String("current-time", "", "pretend current UTC time is this (YYYYMMDDhhmmss); enables __exit__ and __memory__ (for testing only)")
	logLevel := fs.String("log-level", "info", "log level: trace|debug|info|warn|error|critical")
	logFile := fs.String("log-file", "", "also write logs to this file, rotated at 10MiB")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *currentTime != "" {
		t, err := time.Parse("20060102150405", *currentTime)
		if err != nil {
			fmt.Fprintf(stderr, "invalid --current-time: %v\n", err)
			return 2
		}
		t = t.UTC()
		cfg.CurrentTime = &t
	}

	if err := server.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return 2
	}

	level, ok := slog.LevelFromString(*logLevel)
	if !ok {
		fmt.Fprintf(stderr, "invalid --log-level: %s\n", *logLevel)
		return 2
	}
	log.SetLevel(level)

	if *logFile != "" {
		r, err := newLogRotator(*logFile)
		if err != nil {
			fmt.Fprintf(stderr, "log file init failed: %v\n", err)
			return 2
		}
		logRotator = r
		defer logRotator.Close()
	}

	addr := net.JoinHostPort(cfg.Addr, fmt.Sprintf("%d", cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(stderr, "listen failed: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, log)
	fmt.Fprintf(stdout, "p2pim-server listening on %s (mem=%d test_mode=%v)\n", addr, cfg.MemBytes, srv.TestMode())
	log.Infof("listening on %s mem=%d test_mode=%v", addr, cfg.MemBytes, srv.TestMode())

	if err := server.ListenAndServe(ctx, ln, srv, log); err != nil {
		fmt.Fprintf(stderr, "serve failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "p2pim-server stopped")
	return 0
}
