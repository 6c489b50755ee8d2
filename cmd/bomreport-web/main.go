// Command bomreport-web serves the material usage and cost reports over an
// authenticated JSON API.
//
// Usage:
//
//	BOMCOST_JWT_SECRET=... bomreport-web -config configs/report.json -addr :8080
//	bomreport-web -hash-password 's3cret'   # prints a bcrypt hash for auth.users
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bomcost/internal/config"
	"bomcost/internal/logging"
	"bomcost/internal/metrics"
	"bomcost/internal/metrics/datadog"
	"bomcost/internal/metrics/prompush"
	"bomcost/internal/report"
	"bomcost/internal/server"
	"bomcost/internal/session"
	"bomcost/internal/source"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("bomreport-web", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "report config JSON path (defaults when empty)")
	addr := fs.String("addr", "", "listen address (overrides server.addr)")
	hash := fs.String("hash-password", "", "print a bcrypt hash of the given password and exit")
	verbose := fs.Bool("v", false, "enable verbose logs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *hash != "" {
		h, err := session.HashPassword(*hash)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, h)
		return nil
	}

	cfg, err := loadConfig(*cfgPath, stderr)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	log := logging.Must(cfg.Logging)
	defer func() { _ = log.Sync() }()

	h, err := newHandler(cfg, log)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	return serve(ctx, ln, h, log)
}

func loadConfig(path string, stderr io.Writer) (config.App, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.App{}, err
	}
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.App{}, err
		}
	}
	if err := config.ApplyEnv(&cfg, nil); err != nil {
		return config.App{}, err
	}
	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return config.App{}, errors.New("configuration is invalid")
	}
	if cfg.Auth.JWTSecret == "" {
		return config.App{}, fmt.Errorf("auth.jwt_secret is required (set %sJWT_SECRET)", config.EnvPrefix)
	}
	return cfg, nil
}

// newHandler wires the source, report engine, sessions and metrics into
// the HTTP handler.
func newHandler(cfg config.App, log *zap.Logger) (http.Handler, error) {
	users := make(map[string]string, len(cfg.Auth.Users))
	for _, u := range cfg.Auth.Users {
		users[u.Username] = u.PasswordHash
	}
	sessions, err := session.NewManager(session.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TokenTTL.D(),
		Users:  users,
	})
	if err != nil {
		return nil, err
	}

	src, err := source.FromConfig(cfg, log)
	if err != nil {
		return nil, err
	}

	metricsHandler, err := setupMetrics(cfg.Metrics, log)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(server.Params{
		Reports:  report.New(src, cfg, log),
		Sessions: sessions,
		Logger:   log,
		Metrics:  metricsHandler,
	})
	return srv.Engine(), nil
}

// setupMetrics installs the configured backend. The prometheus backend is
// scraped from /metrics; the others return a nil handler.
func setupMetrics(cfg config.Metrics, log *zap.Logger) (http.Handler, error) {
	switch strings.ToLower(cfg.Backend) {
	case "prometheus":
		b, err := prompush.NewScrapeBackend(cfg.Job)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		return b.Handler(), nil
	case "pushgateway":
		b, err := prompush.NewBackend(cfg.Job, cfg.PushgatewayURL)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		return b.Handler(), nil
	case "datadog":
		b, err := datadog.NewBackend(cfg.Datadog)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		return nil, nil
	default:
		log.Debug("metrics: disabled", zap.String("backend", cfg.Backend))
		return nil, nil
	}
}

// serve runs h on ln until ctx is done, then drains in-flight requests.
func serve(ctx context.Context, ln net.Listener, h http.Handler, log *zap.Logger) error {
	hs := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", ln.Addr().String()))
		errCh <- hs.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := metrics.Flush(); err != nil {
		log.Warn("metrics: flush error", zap.Error(err))
	}
	return nil
}
