// Package app arma el grafo de componentes del cliente a partir de la config.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tavern-client/internal/api"
	"tavern-client/internal/config"
	"tavern-client/internal/credentials"
	"tavern-client/internal/gateway"
	"tavern-client/internal/navigation"
	"tavern-client/internal/notify"
	"tavern-client/internal/session"
)

type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Credentials credentials.Store
	Queue       *notify.Queue
	Bus         *navigation.Bus
	Router      *navigation.Router
	Gateway     *gateway.Gateway
	API         *api.Client
	Session     *session.Store
	Registry    *prometheus.Registry

	redis   *redis.Client
	watcher *credentials.Watcher
	detach  func()
}

type Option func(*options)

type options struct {
	credentials credentials.Store
	gatewayOpts []gateway.Option
	queueOpts   []notify.Option
}

// WithCredentialStore fuerza un credential store ignorando CREDENTIAL_BACKEND.
func WithCredentialStore(s credentials.Store) Option {
	return func(o *options) { o.credentials = s }
}

// WithGatewayOptions agrega opciones al gateway (tests).
func WithGatewayOptions(opts ...gateway.Option) Option {
	return func(o *options) { o.gatewayOpts = append(o.gatewayOpts, opts...) }
}

func WithQueueOptions(opts ...notify.Option) Option {
	return func(o *options) { o.queueOpts = append(o.queueOpts, opts...) }
}

// New construye el cliente. La sesion se crea despues del gateway; el gateway
// la lee a traves de closures.
func New(ctx context.Context, logger *zap.Logger, cfg *config.Config, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Bus:      navigation.NewBus(),
		Registry: prometheus.NewRegistry(),
	}

	creds := o.credentials
	if creds == nil {
		var err error
		creds, err = a.credentialStore(ctx)
		if err != nil {
			return nil, err
		}
	}
	a.Credentials = creds

	a.Queue = notify.NewQueue(logger.Named("notify"),
		append([]notify.Option{notify.WithDefaultTimeout(cfg.ToastTimeoutMs)}, o.queueOpts...)...)

	gwOpts := []gateway.Option{
		gateway.WithTokenSource(gateway.TokenSourceFunc(func() (string, bool) {
			return a.Session.CurrentToken()
		})),
		gateway.WithNotifier(a.Queue),
		gateway.WithNavigator(a.Bus),
		gateway.WithUnauthorizedHandler(func(ctx context.Context) {
			a.Session.Invalidate(ctx)
		}),
		gateway.WithMetrics(gateway.NewMetrics(a.Registry)),
		gateway.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	if cfg.BreakerEnabled {
		gwOpts = append(gwOpts, gateway.WithCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerTimeout))
	}
	gw, err := gateway.New(logger.Named("gateway"), cfg.APIBaseURL(), cfg.RequestTimeout, append(gwOpts, o.gatewayOpts...)...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Gateway = gw
	a.API = api.NewClient(logger.Named("api"), gw)
	a.Session = session.NewStore(logger.Named("session"), creds, a.API, a.Queue, a.Bus)
	a.Router = navigation.NewRouter(logger.Named("router"), nil, a.Session)
	a.detach = a.Router.Attach(a.Bus)

	if err := a.startWatcher(ctx); err != nil {
		logger.Warn("credential watcher disabled", zap.Error(err))
	}
	return a, nil
}

func (a *App) credentialStore(ctx context.Context) (credentials.Store, error) {
	cfg := a.Config
	switch cfg.CredentialBackend {
	case config.CredentialBackendMemory:
		return credentials.NewMemoryStore(), nil
	case config.CredentialBackendRedis:
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := a.redis.Ping(ctxPing).Err(); err != nil {
			_ = a.redis.Close()
			a.redis = nil
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return credentials.NewRedisStore(a.redis, cfg.CredentialKey), nil
	default:
		return credentials.NewFileStore(cfg.CredentialPath, cfg.CredentialKey), nil
	}
}

func (a *App) startWatcher(ctx context.Context) error {
	fs, ok := a.Credentials.(*credentials.FileStore)
	if !a.Config.CredentialWatch || !ok {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(fs.Path()), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	w, err := credentials.NewWatcher(a.Logger.Named("watcher"), fs.Path(), func() {
		a.Session.Resync(context.Background())
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return err
	}
	a.watcher = w
	return nil
}

// Bootstrap recupera la sesion persistida y hace la navegacion inicial. El
// caller no debe mostrar nada hasta que vuelva.
func (a *App) Bootstrap(ctx context.Context) session.State {
	state := a.Session.Bootstrap(ctx)
	if _, err := a.Router.Open("/"); err != nil {
		a.Logger.Warn("initial navigation failed", zap.Error(err))
	}
	return state
}

func (a *App) Close() error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Stop())
	}
	if a.detach != nil {
		a.detach()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
