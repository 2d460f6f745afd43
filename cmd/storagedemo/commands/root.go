/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	storagegateway "github.com/suparena/storagegateway"
	"github.com/suparena/storagegateway/config"
	"github.com/suparena/storagegateway/datastore"
	"github.com/suparena/storagegateway/internal/logging"
)

// app carries state shared by every subcommand of one process.
type app struct {
	cfgFile string
	envFile string

	newRowKey func() string

	cfg      *config.Config
	logger   *slog.Logger
	gw       *storagegateway.Gateway
	out      io.Writer
	styles   styles
	shutdown func(context.Context) error
}

type styles struct {
	title lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
	label lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF99")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("#00FF99")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
		label: r.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
	}
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{newRowKey: uuid.NewString})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "storagedemo",
		Short: "Exercise the storage gateway against a table and a blob store",
		Long: `storagedemo drives the storage gateway from the command line.

Backends are chosen with --table-backend (dynamodb, memory) and
--blob-backend (s3, minio, memory), or the matching STORAGEGATEWAY_*
environment variables.`,
		Version:           storagegateway.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "YAML config file")
	flags.StringVar(&a.envFile, "env-file", "", "dotenv file (default .env when present)")
	flags.String("table-backend", "", "table backend: dynamodb or memory")
	flags.String("table", "", "table name")
	flags.String("blob-backend", "", "blob backend: s3, minio or memory")
	flags.String("container", "", "blob container")
	flags.String("region", "", "AWS region")
	flags.String("endpoint", "", "AWS endpoint override, e.g. http://localhost:4566")
	flags.String("minio-endpoint", "", "MinIO host:port")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-format", "", "text or json")
	flags.Bool("trace", false, "print OpenTelemetry spans to stderr")

	root.AddCommand(
		newRunCmd(a),
		newTableCmd(a),
		newBlobCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	a.out = cmd.OutOrStdout()
	a.styles = newStyles(a.out)

	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: a.cfgFile,
		EnvFile:    a.envFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return err
	}
	a.logger = logging.New(cmd.ErrOrStderr(), level, format)

	if cfg.Trace {
		shutdown, err := setupTracing(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		a.shutdown = shutdown
	}
	return nil
}

func (a *app) gateway() (*storagegateway.Gateway, error) {
	if a.gw != nil {
		return a.gw, nil
	}
	gw, err := storagegateway.New(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.gw = gw
	return gw, nil
}

func (a *app) users(ctx context.Context) (datastore.TableStore[User], error) {
	gw, err := a.gateway()
	if err != nil {
		return nil, err
	}
	return storagegateway.Table[User](ctx, gw, a.cfg.Table.Name)
}

func (a *app) blobs(ctx context.Context) (datastore.BlobStore, error) {
	gw, err := a.gateway()
	if err != nil {
		return nil, err
	}
	return gw.Blobs(ctx)
}

func (a *app) success(format string, args ...any) {
	fmt.Fprintln(a.out, a.styles.ok.Render("✅ "+fmt.Sprintf(format, args...)))
}

func (a *app) failure(format string, args ...any) {
	fmt.Fprintln(a.out, a.styles.fail.Render("❌ "+fmt.Sprintf(format, args...)))
}
