package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dukex/formation/pkg/definition"
	"github.com/dukex/formation/pkg/log"
	"github.com/urfave/cli/v3"
)

var ErrInvalidDefinitions = errors.New("invalid definitions found")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate every workflow and form definition in the config directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "Directory holding workflows/ and forms/ definitions",
				Value:   "./config",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
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

			logger := slog.With(
				"module", "formation-api",
				"action", "validate",
			)

			invalid, err := lintDefinitions(ctx, os.Stdout, logger, command.String("config-dir"))
			if err != nil {
				return err
			}

			if invalid > 0 {
				return fmt.Errorf("%w: %d", ErrInvalidDefinitions, invalid)
			}

			return nil
		},
	}
}

// lintDefinitions loads every definition under configDir, writes one line per problem to
// out and returns the number of invalid documents.
func lintDefinitions(ctx context.Context, out io.Writer, logger *slog.Logger, configDir string) (int, error) {
	workflowSource, formSource := definition.DirSources(configDir)
	cache := definition.NewCache()

	workflows := definition.NewWorkflowLoader(workflowSource, cache, logger)
	forms := definition.NewFormConfigLoader(formSource, cache, logger)

	workflowKeys, err := workflowSource.Keys()
	if err != nil {
		return 0, err
	}

	formKeys, err := formSource.Keys()
	if err != nil {
		return 0, err
	}

	_, _ = fmt.Fprintln(out, "Definition Validation Results:")
	_, _ = fmt.Fprintln(out, "==============================")

	invalid := 0

	report := func(kind, key string, err error) {
		if err == nil {
			_, _ = fmt.Fprintf(out, "✓ %s %s\n", kind, key)

			return
		}

		invalid++

		_, _ = fmt.Fprintf(out, "✗ %s %s\n", kind, key)

		var cfgErr *definition.ConfigurationError
		if errors.As(err, &cfgErr) {
			for _, problem := range cfgErr.Problems {
				_, _ = fmt.Fprintf(out, "    - %s\n", problem)
			}

			return
		}

		_, _ = fmt.Fprintf(out, "    - %v\n", err)
	}

	for _, key := range workflowKeys {
		_, err := workflows.Load(ctx, key)
		report(definition.KindWorkflow, key, err)
	}

	for _, key := range formKeys {
		_, err := forms.Load(ctx, key)
		report(definition.KindForm, key, err)
	}

	_, _ = fmt.Fprintf(out, "\n%d definitions checked, %d invalid\n", len(workflowKeys)+len(formKeys), invalid)

	return invalid, nil
}
