// cmd/storefront/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ayyooya/internal/domain/common"
	"ayyooya/internal/infra/config"
	"ayyooya/internal/infra/logging"
	"ayyooya/internal/platform/di"
)

// app carries the global flags and the lazily built container.
type app struct {
	configPath string
	logLevel   string
	verbose    bool
	ephemeral  bool
	out        io.Writer

	log       *zap.Logger
	container *di.Container
}

// containerFor builds the container on first use.
func (a *app) containerFor(ctx context.Context) (*di.Container, error) {
	if a.container != nil {
		return a.container, nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if a.ephemeral {
		cfg.Local.Driver = config.LocalMemory
	}
	log, err := logging.New(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return nil, err
	}
	c, err := di.NewContainer(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	a.log, a.container = log, c
	return c, nil
}

func (a *app) close() {
	if a.container != nil {
		if err := a.container.Close(); err != nil && a.log != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Second-hand clothing storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file (default $"+config.EnvConfigPath+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&a.ephemeral, "ephemeral", false, "keep cart and session in memory only")

	root.AddCommand(
		newServeCmd(a),
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newCartCmd(a),
		newProductsCmd(a),
		newCheckoutCmd(a),
		newOrdersCmd(a),
		newAdminCmd(a),
	)
	return root
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with live session and order updates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			return c.Serve(cmd.Context())
		},
	}
}

// exitCode maps error codes to process exit statuses.
func exitCode(err error) int {
	switch common.CodeOf(err) {
	case "":
		return 0
	case common.CodeValidation:
		return 2
	case common.CodeUnauthenticated, common.CodeForbidden:
		return 3
	case common.CodeNotFound:
		return 4
	case common.CodePartial:
		return 5
	default:
		return 1
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}
