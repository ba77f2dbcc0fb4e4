package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tcpchat/core/internal/chat"
)

func main() {
	metricsAddr := flag.String("metrics-addr", ":9090", "metrics listen address")
	logPath := flag.String("logfile", "server.log", "event log output path")
	flag.Parse()

	port, err := parsePort(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage: %s [-metrics-addr addr] [-logfile path] <port>\n", os.Args[0])
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logFile, err := os.OpenFile(*logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Error("failed to open event log", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	srv := chat.NewServer(fmt.Sprintf(":%d", port), logger, logFile)
	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	srv.Stop()
}

func parsePort(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one positional port argument, got %d", len(args))
	}
	port, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid port number: %q", args[0])
	}
	if port <= 0 || port > 10000 {
		return 0, fmt.Errorf("port must be in (0, 10000], got %d", port)
	}
	return port, nil
}
