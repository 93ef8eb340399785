package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"timesplit/internal/backend"
	"timesplit/internal/cache"
	"timesplit/internal/config"
	apphttp "timesplit/internal/http"
	applog "timesplit/internal/log"
)

// Server limits applied on top of the handler.
const (
	readTimeout    = 10 * time.Second
	writeTimeout   = 10 * time.Second
	idleTimeout    = 60 * time.Second
	maxHeaderBytes = 1 << 16 // 64KB
)

type serveOptions struct {
	envFile string
	port    string
	backend string
}

func newServeCmd(configPath *string) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := LoadEnvFile(opts.envFile); err != nil {
				return err
			}
			cfg, err := LoadAndValidateConfig(FromConfigFile(*configPath), opts.apply)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "listen port (overrides PORT)")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "data backend: memory or sqlite (overrides DATA_BACKEND)")
	return cmd
}

// apply lets flags win over the environment.
func (o serveOptions) apply(cfg *config.Config) error {
	if o.port != "" {
		cfg.Port = o.port
	}
	if o.backend != "" {
		cfg.DataBackend = o.backend
	}
	return nil
}

func runServe(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := SetupLogger(nil, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := SignalContext(parent)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()
	svc := result.Service

	caches := cache.NewManager()
	caches.Register(svc.SummaryCache())
	caches.StartCleanup(cfg.SummaryCacheTTL)
	defer caches.Stop()

	serverOpts := []apphttp.Option{
		apphttp.WithLogger(logger.WithComponent(applog.ComponentHTTP)),
		apphttp.WithRateLimit(cfg.RateLimit),
	}
	for _, cidr := range cfg.TrustedProxies {
		serverOpts = append(serverOpts, apphttp.WithTrustedProxy(cidr))
	}
	srv := apphttp.NewServer(":"+cfg.Port, svc, serverOpts...)
	srv.ReadTimeout = readTimeout
	srv.WriteTimeout = writeTimeout
	srv.IdleTimeout = idleTimeout
	srv.MaxHeaderBytes = maxHeaderBytes

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting timesplit server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp_enabled", cfg.AMQPURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
