package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"useeio/internal/blob"
	"useeio/internal/config"
	"useeio/internal/core"
	"useeio/internal/datastore"
)

// app carries the resolved configuration shared by all subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	verbose    bool
	logFormat  string
	dataRoot   string
	driver     string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "useeio",
		Short: "Query and serve environmentally-extended input-output models",
		Long: `useeio loads input-output models (sector, flow and indicator registries plus
their matrices) from a data store and answers matrix queries and demand-driven
impact calculations, either over HTTP or directly from the command line.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text or json")
	flags.StringVarP(&a.dataRoot, "data", "d", "", "Data directory for the fs driver")
	flags.StringVar(&a.driver, "driver", "", "Data driver: fs, memory, s3, minio, sqlite or postgres")

	root.AddCommand(
		a.newServeCmd(),
		a.newModelsCmd(),
		a.newCalcCmd(),
		a.newMatrixCmd(),
		a.newImportCmd(),
	)
	return root
}

// setup resolves configuration with flags taking precedence over the
// environment and the config file.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath, nil)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.Data.FSRoot = a.dataRoot
	}
	if flags.Changed("driver") {
		cfg.Data.Driver = blob.Driver(a.driver)
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Log.NewLogger(a.stderr)
	slog.SetDefault(a.logger)
	return nil
}

// openSource opens the configured blob driver as a model source.
func (a *app) openSource(ctx context.Context) (*datastore.Store, error) {
	blobs, err := blob.Open(ctx, a.cfg.Data)
	if err != nil {
		return nil, fmt.Errorf("open data store: %w", err)
	}
	return datastore.New(blobs, datastore.WithLogger(a.logger)), nil
}

// newService opens the configured source and returns an empty service over it.
func (a *app) newService(ctx context.Context, opts ...core.ServiceOption) (*core.Service, *datastore.Store, error) {
	src, err := a.openSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc := core.NewService(core.NewModelRegistry(), append([]core.ServiceOption{core.WithLogger(a.logger)}, opts...)...)
	return svc, src, nil
}

// loadService discovers every model once and returns a service over them.
func (a *app) loadService(ctx context.Context) (*core.Service, error) {
	svc, src, err := a.newService(ctx)
	if err != nil {
		return nil, err
	}
	report, err := svc.Discover(ctx, src, a.cfg.LoadConcurrency)
	if err != nil {
		return nil, fmt.Errorf("discover models: %w", err)
	}
	a.logger.Debug("models loaded", "admitted", report.Admitted, "skipped", len(report.Skipped))
	return svc, nil
}
