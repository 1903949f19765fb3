// Package main provides caseflow-compile, which checks a workflow definition document
// and prints the compiled runtime instructions.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dukex/caseflow/pkg/compiler"
	"github.com/dukex/caseflow/pkg/log"
	"github.com/dukex/caseflow/pkg/models"
	cli "github.com/urfave/cli/v3"
)

var errCompileFailed = errors.New("definition does not compile")

func newCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "caseflow-compile",
		Usage:     "Validate and compile a workflow definition document",
		ArgsUsage: "<definition.json>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "Print JSON without indentation",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), "text")

			path := command.Args().First()
			if path == "" {
				return errors.New("a definition file is required")
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			return compile(ctx, stdout, raw, command.Bool("compact"))
		},
	}
}

func compile(ctx context.Context, stdout io.Writer, raw []byte, compact bool) error {
	logger := log.WithModule("compile")

	encoder := json.NewEncoder(stdout)
	if !compact {
		encoder.SetIndent("", "  ")
	}

	steps, err := parseAndCompile(raw)
	if err == nil {
		logger.DebugContext(ctx, "definition compiled", "steps", len(steps))

		return encoder.Encode(map[string]any{"steps": steps})
	}

	errs, ok := compiler.AsErrors(err)
	if !ok {
		return err
	}

	if encodeErr := encoder.Encode(map[string]any{"errors": errs}); encodeErr != nil {
		return encodeErr
	}

	return fmt.Errorf("%w: %d error(s)", errCompileFailed, len(errs))
}

func parseAndCompile(raw []byte) ([]models.RuntimeStep, error) {
	definition, err := compiler.ParseDocument(raw)
	if err != nil {
		return nil, err
	}

	return compiler.Compile(definition)
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
