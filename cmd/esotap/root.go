package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/jonwraymond/esotap/config"
	"github.com/jonwraymond/esotap/eso"
)

var version = "dev"

type options struct {
	configPath string
	logLevel   string
	noCache    bool
	metrics    bool
	dev        bool

	cfg *config.File
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "esotap",
		Short:         "query and download from the ESO science archive",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			level := opts.logLevel
			if level == "" {
				level = cfg.LogLevel
			}
			if level != "" {
				parsed, err := logrus.ParseLevel(level)
				if err != nil {
					return fmt.Errorf("invalid log level %q", level)
				}
				logrus.SetLevel(parsed)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(),
		"path to the configuration file")
	cmd.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "",
		"set the logging level (debug, info, warn or error)")
	cmd.PersistentFlags().BoolVar(&opts.noCache, "no-cache", false,
		"bypass the on-disk query cache")
	cmd.PersistentFlags().BoolVar(&opts.metrics, "metrics", false,
		"print collected metrics to stderr on exit")
	cmd.PersistentFlags().BoolVar(&opts.dev, "dev", false,
		"query the development TAP service instead of the production archive")

	cmd.AddCommand(newQueryCmd(opts))
	cmd.AddCommand(newInstrumentsCmd(opts))
	cmd.AddCommand(newCollectionsCmd(opts))
	cmd.AddCommand(newRetrieveCmd(opts))
	cmd.AddCommand(newLoginCmd(opts))

	return cmd
}

// newClient builds the archive client for a command run. The returned
// shutdown func flushes metrics when --metrics is set.
func (o *options) newClient(ctx context.Context) (*eso.Client, func(), error) {
	cfg := o.cfg.ClientConfig()
	if o.dev {
		if cfg.TAPEndpoint != "" && cfg.TAPEndpoint != eso.DevTAPEndpoint {
			return nil, nil, fmt.Errorf(
				"--dev conflicts with tap_endpoint %q from the configuration", cfg.TAPEndpoint)
		}
		cfg.TAPEndpoint = eso.DevTAPEndpoint
	}

	shutdown := func() {}
	if o.metrics {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, nil, fmt.Errorf("building metrics exporter: %w", err)
		}
		provider := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		)
		cfg.Meter = provider.Meter("esotap")
		shutdown = func() {
			if err := provider.Shutdown(ctx); err != nil {
				logrus.WithError(err).Warn("failed to flush metrics")
			}
		}
	}

	client, err := eso.New(cfg)
	if err != nil {
		shutdown()
		return nil, nil, err
	}

	// Credentials from the configuration log in eagerly so downloads
	// of proprietary data work without a separate login step.
	if o.cfg.Username != "" {
		if !client.Login(ctx, o.cfg.Username, o.cfg.Password) {
			shutdown()
			return nil, nil, fmt.Errorf("login failed for %s", o.cfg.Username)
		}
	}
	return client, shutdown, nil
}
