package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"timesplit/internal/amqp"
	"timesplit/internal/config"
	applog "timesplit/internal/log"
	"timesplit/internal/worker"
)

type workerOptions struct {
	envFile        string
	queue          string
	reportInterval time.Duration
}

func newWorkerCmd(configPath *string) *cobra.Command {
	var opts workerOptions

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume change events and keep a replica of the rate split",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := LoadEnvFile(opts.envFile); err != nil {
				return err
			}
			cfg, err := LoadAndValidateConfig(FromConfigFile(*configPath), opts.apply)
			if err != nil {
				return err
			}
			if cfg.AMQPURL == "" {
				return errors.New("worker needs AMQP_URL")
			}
			if cfg.AMQPQueue == "" {
				return errors.New("worker needs a queue name")
			}
			if opts.reportInterval <= 0 {
				return fmt.Errorf("invalid report interval %s: must be positive", opts.reportInterval)
			}
			return runWorker(cmd.Context(), cfg, opts.reportInterval)
		},
	}

	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.Flags().StringVar(&opts.queue, "queue", "", "queue to consume (overrides AMQP_QUEUE)")
	cmd.Flags().DurationVar(&opts.reportInterval, "report-interval", time.Minute, "how often the replica summary is logged")
	return cmd
}

func (o workerOptions) apply(cfg *config.Config) error {
	if o.queue != "" {
		cfg.AMQPQueue = o.queue
	}
	return nil
}

func runWorker(parent context.Context, cfg *config.Config, reportInterval time.Duration) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := SetupLogger(nil, cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting timesplit worker", "queue", cfg.AMQPQueue, "exchange", cfg.AMQPExchange)

	ctx, stop := SignalContext(parent)
	defer stop()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingPrefix)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()

	replica := worker.NewReplicaWorker(cfg.DefaultBaseAmount, logger.WithComponent(applog.ComponentAMQP))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.Consume(gctx, cfg.AMQPQueue, replica.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(reportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				replica.Report(gctx)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		return err
	}
	replica.Report(context.Background())
	logger.Info("Worker stopped gracefully", applog.FieldOperation, applog.OpShutdown)
	return nil
}
