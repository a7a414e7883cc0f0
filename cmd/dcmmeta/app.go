package main

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	dcmmeta "github.com/goliatone/go-dcmmeta"
	"github.com/goliatone/go-dcmmeta/internal/config"
	"github.com/goliatone/go-dcmmeta/internal/jsonschema/loader"
	"github.com/goliatone/go-dcmmeta/internal/logging"
	pkgjsonschema "github.com/goliatone/go-dcmmeta/pkg/jsonschema"
	"github.com/goliatone/go-dcmmeta/pkg/prompt"
	"github.com/goliatone/go-dcmmeta/pkg/sources"
)

const simulatedLatency = 750 * time.Millisecond

type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	manifest   string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
	wb     *dcmmeta.Workbench
	driver prompt.Driver
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	return newApp(in, out, errOut).command()
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: in, out: out, errOut: errOut}
}

func (a *app) command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dcmmeta",
		Short:         "Assemble and validate DICOM meta information documents",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	rootCmd.SetIn(a.in)
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (YAML, JSON or TOML)")
	flags.StringVar(&a.manifest, "manifest", "", "source manifest overriding the embedded one")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(resolveCmd(a))
	rootCmd.AddCommand(validateCmd(a))
	rootCmd.AddCommand(codesCmd(a))
	rootCmd.AddCommand(createCmd(a))
	rootCmd.AddCommand(sourcesCmd(a))
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("manifest") {
		cfg.Manifest = a.manifest
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.LogLevel, cfg.LogFormat, a.errOut)

	manifest, err := sources.Load(cfg.Manifest)
	if err != nil {
		return err
	}

	var loaderOpts []pkgjsonschema.LoaderOption
	if cfg.AllowHTTP {
		loaderOpts = append(loaderOpts, pkgjsonschema.WithHTTPFallback(cfg.HTTPTimeout))
	}
	options := []dcmmeta.Option{
		dcmmeta.WithLoader(loader.New(pkgjsonschema.NewLoaderOptions(loaderOpts...))),
		dcmmeta.WithManifest(manifest),
		dcmmeta.WithLogger(a.logger),
	}
	if cfg.SimulateQuery {
		options = append(options, dcmmeta.WithSimulatedLatency(simulatedLatency))
	}
	a.wb = dcmmeta.New(options...)
	if a.driver == nil {
		a.driver = prompt.NewSurveyDriver(a.out)
	}
	return nil
}
