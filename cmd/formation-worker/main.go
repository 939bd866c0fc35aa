// Package main provides the formation worker: it completes document upload steps once
// every required document is present.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/formation/pkg/cmd"
	"github.com/dukex/formation/pkg/log"
	"github.com/dukex/formation/pkg/otelhelper"
	"github.com/dukex/formation/pkg/services"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

const defaultSweepSchedule = "@every 5m"

func main() {
	cmd := &cli.Command{
		Name:                  "formation-worker",
		EnableShellCompletion: true,
		Usage:                 "Complete document upload steps from events and a periodic sweep",
		Commands: []*cli.Command{
			RunWorkerCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func RunWorkerCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start worker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "Directory holding workflows/ and forms/ definitions",
				Value:   "./config",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file://, postgres://, redis://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "sweep-schedule",
				Usage:   "Cron spec of the document step sweep",
				Value:   defaultSweepSchedule,
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.BoolFlag{
				Name:    "watch-config",
				Usage:   "Reload definitions when files under the config directory change",
				Sources: cli.EnvVars("WATCH_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log output format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("formation-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Formation Worker")

			tracer := otelhelper.NewNoopTracer()

			if command.Bool("tracing") {
				t, shutdown, err := otelhelper.NewTracer(ctx, "formation-worker")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(ctx); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()

				tracer = t
			}

			definitions, err := cmd.NewDefinitions(ctx, logger, command.String("config-dir"), command.Bool("watch-config"))
			if err != nil {
				return fmt.Errorf("failed to load definitions: %w", err)
			}

			defer func() {
				if err := definitions.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to stop config watcher", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return fmt.Errorf("failed to open persistence: %w", err)
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "worker", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			formation := services.NewFormation(services.Config{
				Workflows:   definitions.Workflows,
				Forms:       definitions.Forms,
				Persistence: persistence,
				Publisher:   eventBus,
				Tracer:      tracer,
				Logger:      logger,
			})

			worker := NewWorker(workerID, formation, eventBus, logger, command.String("sweep-schedule"))

			err = worker.Run(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)
			}

			return err
		},
	}
}
