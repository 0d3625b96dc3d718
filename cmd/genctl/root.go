package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/Text2APK/client/internal/app"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/config"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/logging"
)

// errSessionFailed is returned after a failed session has been reported,
// so main only sets the exit code.
var errSessionFailed = errors.New("generation failed")

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	backendURL string
	logLevel   string
	dev        bool

	// logger overrides the configured logger; tests use it.
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&globalOptions{})
}

func newRootCmdWith(opts *globalOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "genctl",
		Short: "Client for the Text2APK generation backend",
		Long: `genctl turns a natural-language prompt into an Android APK by driving
the Text2APK backend: it submits the prompt, follows the live progress
channel until the build finishes and keeps the recent history in view.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (.yaml, .yml or .toml)")
	flags.StringVar(&opts.backendURL, "backend", "", "backend base URL (overrides BACKEND_URL)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&opts.dev, "dev", false, "human-readable development logging")

	root.AddCommand(
		newGenerateCmd(opts),
		newHistoryCmd(opts),
		newFrameworksCmd(opts),
		newCategoriesCmd(opts),
		newStatusCmd(opts),
		newHealthCmd(opts),
		newDownloadCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// loadConfig resolves environment, config file and flags, in that order.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if o.backendURL != "" {
		cfg.Backend.URL = o.backendURL
		cfg.Backend.WebSocketURL = ""
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.dev {
		cfg.Logging.Development = true
	}
	return cfg, nil
}

// newApp builds the application; callers must Close it.
func (o *globalOptions) newApp(extra ...app.Option) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	var appOpts []app.Option
	if o.logger != nil {
		appOpts = append(appOpts, app.WithLogger(o.logger))
	}
	a, err := app.New(cfg, append(appOpts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
