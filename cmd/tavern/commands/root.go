package commands

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tavern-client/internal/app"
	"tavern-client/internal/config"
)

const skipBootstrap = "skip-bootstrap"

var (
	backendURL string
	logLevel   string

	appCtx  *app.App
	printer *toastPrinter
)

func Execute() error {
	return run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

// run ejecuta una invocacion completa del CLI: setup, comando y cierre.
func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	appCtx, printer = nil, nil
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if appCtx != nil {
		printer.flush()
		fmt.Fprintf(out, "route: %s\n", appCtx.Router.Current().Path())
		if cerr := appCtx.Close(); cerr != nil {
			appCtx.Logger.Warn("shutdown", zap.Error(cerr))
		}
		_ = appCtx.Logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tavern",
		Short:         "Command line client for the tavern game backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipBootstrap] == "true" {
				return nil
			}
			return setup(cmd.Context(), cmd.OutOrStdout())
		},
	}

	root.PersistentFlags().StringVar(&backendURL, "backend", "", "backend origin (overrides BACKEND_URL)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(
		loginCmd(),
		registerCmd(),
		logoutCmd(),
		profileCmd(),
		statusCmd(),
		currenciesCmd(),
		createGameCmd(),
		openCmd(),
		devserverCmd(),
	)
	return root
}

// setup arma el cliente y corre bootstrap antes de cualquier comando.
func setup(ctx context.Context, out io.Writer) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if backendURL != "" {
		cfg.BackendURL = backendURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, logger, cfg)
	if err != nil {
		return err
	}
	appCtx = a
	printer = newToastPrinter(out, a.Queue)
	a.Bootstrap(ctx)
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}
