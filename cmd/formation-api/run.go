package main

import (
	"context"
	"fmt"

	"github.com/dukex/formation/pkg/cmd"
	"github.com/dukex/formation/pkg/log"
	"github.com/dukex/formation/pkg/otelhelper"
	"github.com/dukex/formation/pkg/rules"
	"github.com/dukex/formation/pkg/services"
	"github.com/urfave/cli/v3"
)

const defaultPort = 9092

func RunAPICommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start api",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
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
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
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
				Name:    "banned-word-match",
				Usage:   "Banned company name token matching (substring, word)",
				Value:   "substring",
				Sources: cli.EnvVars("BANNED_WORD_MATCH"),
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

			logger := log.WithModule("formation-api")

			logger.InfoContext(ctx, "Initializing Formation API")

			matcher, err := matcherFor(command.String("banned-word-match"))
			if err != nil {
				return err
			}

			tracer := otelhelper.NewNoopTracer()

			if command.Bool("tracing") {
				t, shutdown, err := otelhelper.NewTracer(ctx, "formation-api")
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

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "api", logger)
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
				Matcher:     matcher,
				Logger:      logger,
			})

			api := NewAPI(logger, formation)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}
}

func matcherFor(name string) (rules.MatchFunc, error) {
	switch name {
	case "", "substring":
		return rules.SubstringMatch, nil
	case "word":
		return rules.WordBoundaryMatch, nil
	default:
		return nil, fmt.Errorf("unknown banned word matching %q, expected substring or word", name)
	}
}
