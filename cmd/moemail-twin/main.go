// Command moemail-twin serves a fake Moemail provider for local
// development and end-to-end tests.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/moemail/client-go/internal/twin"
)

// Config holds the command-line settings.
type Config struct {
	Port     int
	APIKey   string
	Domains  string
	RedisURL string
	Verbose  bool
}

// parseFlags reads flags from args, falling back to PORT for the port.
func parseFlags(args []string, getenv func(string) string, output io.Writer) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("moemail-twin", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&cfg.Port, "port", 0, "HTTP listen port (default: $PORT or 8080)")
	fs.StringVar(&cfg.APIKey, "api-key", "", "require this X-API-Key on /api requests")
	fs.StringVar(&cfg.Domains, "domains", "moemail.app", "comma-separated mailbox domains")
	fs.StringVar(&cfg.RedisURL, "redis-url", "", "store state in Redis instead of memory")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "log every request")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Port == 0 {
		if p := getenv("PORT"); p != "" {
			if _, err := fmt.Sscanf(p, "%d", &cfg.Port); err != nil {
				return nil, fmt.Errorf("invalid PORT %q", p)
			}
		}
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	return cfg, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// newServer builds the twin and returns a cleanup function for its store.
func newServer(ctx context.Context, cfg *Config, logger *slog.Logger) (*twin.Server, func(), error) {
	tc := twin.Config{
		Domains: strings.Split(cfg.Domains, ","),
		APIKey:  cfg.APIKey,
		Logger:  logger,
	}
	cleanup := func() {}

	if cfg.RedisURL != "" {
		store, err := twin.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		tc.Store = store
		cleanup = func() { store.Close() }
	}
	return twin.New(tc), cleanup, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	logger := newLogger(cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, cleanup, err := newServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("setup failed", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting moemail twin", "addr", addr, "domains", server.Domains(), "redis", cfg.RedisURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down moemail twin")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
