package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tavern-client/internal/backendtest"
)

// devserverCmd levanta el backend fake para desarrollo local del cliente.
func devserverCmd() *cobra.Command {
	var (
		addr    string
		secret  string
		balance int64
	)
	cmd := &cobra.Command{
		Use:         "devserver",
		Short:       "Run an in-memory fake backend",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipBootstrap: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger("info")
			if err != nil {
				return err
			}
			defer logger.Sync()

			gin.SetMode(gin.ReleaseMode)
			backend := backendtest.New(logger, backendtest.Config{
				Secret:          secret,
				StartingBalance: decimal.NewFromInt(balance),
			})
			srv := &http.Server{
				Addr:              addr,
				Handler:           backend.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("devserver listening", zap.String("addr", addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("listen: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":3000", "listen address")
	cmd.Flags().StringVar(&secret, "secret", "devserver-secret", "JWT signing secret")
	cmd.Flags().Int64Var(&balance, "balance", 1000, "starting balance for new accounts")
	return cmd
}
