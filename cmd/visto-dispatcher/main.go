// Package main provides the Visto dispatcher, the worker that turns
// document events into participant notifications.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"

	"github.com/vistolabs/visto/pkg/cmd"
	"github.com/vistolabs/visto/pkg/directory"
	"github.com/vistolabs/visto/pkg/dispatch"
	"github.com/vistolabs/visto/pkg/engine"
	"github.com/vistolabs/visto/pkg/log"
	"github.com/vistolabs/visto/pkg/otelhelper"
	"github.com/vistolabs/visto/pkg/services"
)

const dedupeTTL = 24 * time.Hour

func main() {
	command := &cli.Command{
		Name:                  "visto-dispatcher",
		Usage:                 "Start the Visto notification dispatcher",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dispatcher-id",
				Aliases: []string{"id"},
				Usage:   "Custom dispatcher ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("DISPATCHER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for event deduplication (empty disables dedupe)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringSliceFlag{
				Name:    "tenants",
				Usage:   "Tenant IDs included in the overdue scan",
				Sources: cli.EnvVars("SLA_TENANTS"),
			},
			&cli.StringFlag{
				Name:    "scan-spec",
				Usage:   "Cron spec for the overdue scan",
				Value:   "@every 15m",
				Sources: cli.EnvVars("SLA_SCAN_SPEC"),
			},
			&cli.DurationFlag{
				Name:    "sla-threshold",
				Usage:   "How long a pending decision may wait before the document counts as overdue",
				Value:   72 * time.Hour,
				Sources: cli.EnvVars("SLA_THRESHOLD"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	dispatcherID := command.String("dispatcher-id")
	if dispatcherID == "" {
		dispatcherID = fmt.Sprintf("dispatcher-%s", uuid.New().String()[:8])
	}

	logger := log.WithModule("visto-dispatcher").With("dispatcher_id", dispatcherID)
	logger.InfoContext(ctx, "Initializing Visto Dispatcher")

	tracerProvider, err := otelhelper.InitTracer(ctx, "visto-dispatcher")
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			slog.Error("Failed to shutdown tracer provider", "error", err)
		}
	}()

	eventBus := cmd.NewEventBus(command.String("event-bus"), "visto-dispatcher", logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	deduper, err := newDeduper(ctx, command.String("redis-url"))
	if err != nil {
		return err
	}

	schemaService := services.NewSchema(persistence)
	documentService := services.NewDocument(
		persistence,
		schemaService,
		engine.New(directory.Open{}),
		nil, // the dispatcher consumes events, it does not publish
		logger,
		command.Duration("sla-threshold"),
	)

	dispatcher := dispatch.NewDispatcher(
		dispatcherID,
		eventBus,
		documentService,
		dispatch.NewSlogNotifier(logger),
		deduper,
		command.StringSlice("tenants"),
		command.String("scan-spec"),
		logger,
	)

	if err := dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("dispatcher stopped: %w", err)
	}

	return nil
}

func newDeduper(ctx context.Context, redisURL string) (dispatch.Deduper, error) {
	if redisURL == "" {
		return dispatch.NoopDeduper{}, nil
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}

	return dispatch.NewRedisDeduper(client, dedupeTTL), nil
}
