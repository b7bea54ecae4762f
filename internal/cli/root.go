// Package cli is the fretctl admin command line. Commands run with the
// server's configuration and act as a trusted operator, so they skip the
// authorization gate.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/lalith-99/fretboard/internal/app"
	"github.com/lalith-99/fretboard/internal/config"
	"github.com/lalith-99/fretboard/internal/observ"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fretctl",
		Short: "Fretboard admin tool",
		Long:  "Operator commands for the guitar factory tracker: roles, backups, notifications and schema.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewBackfillCommand(opts))
	cmd.AddCommand(NewSetRoleCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewListBackupsCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// env is what every command body gets.
type env struct {
	ctx    context.Context
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
	format string
}

func newEnv(cmd *cobra.Command, opts *RootOptions) (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return &env{
		ctx:    cmd.Context(),
		cfg:    cfg,
		logger: logger,
		out:    cmd.OutOrStdout(),
		format: opts.Format,
	}, nil
}

// withApp runs fn against a fully wired App and releases it afterwards.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(e *env, a *app.App) error) error {
	e, err := newEnv(cmd, opts)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	a, err := app.New(e.ctx, e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(e, a)
}

// print writes v as JSON, or text via the callback.
func (e *env) print(v any, text func(w io.Writer)) error {
	if e.format == "json" {
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(e.out)
	return nil
}
