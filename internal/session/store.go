// Package session es el dueño del token y del perfil del usuario actual.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"tavern-client/internal/credentials"
	"tavern-client/internal/domain"
	"tavern-client/internal/navigation"
)

// ErrSessionEnded indica que la sesion se cerro o cambio de token mientras un
// login esperaba el perfil.
var ErrSessionEnded = errors.New("session ended before login completed")

// State es el estado de la maquina de sesion.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Backend son los colaboradores de autenticacion y perfil.
type Backend interface {
	Login(ctx context.Context, username, password string) (domain.AuthResult, error)
	Register(ctx context.Context, username, password string) (domain.AuthResult, error)
	Profile(ctx context.Context) (domain.Profile, error)
}

type Notifier interface {
	Push(spec domain.NotificationSpec) string
}

// Store mantiene la sesion en memoria y la refleja en el credential store.
// Los intents y notificaciones se emiten siempre fuera del lock.
type Store struct {
	logger   *zap.Logger
	creds    credentials.Store
	backend  Backend
	notifier Notifier
	nav      navigation.Emitter
	now      func() time.Time

	mu    sync.RWMutex
	token string
	user  *domain.Profile

	bootstrapOnce  sync.Once
	bootstrapState State
}

type Option func(*Store)

// WithClock reemplaza el reloj usado para revisar la expiracion del token.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(logger *zap.Logger, creds credentials.Store, backend Backend, notifier Notifier, nav navigation.Emitter, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if creds == nil {
		creds = credentials.NewMemoryStore()
	}
	s := &Store{
		logger:   logger,
		creds:    creds,
		backend:  backend,
		notifier: notifier,
		nav:      nav,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentToken devuelve el token en memoria.
func (s *Store) CurrentToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// IsLoggedIn se deriva del token; no hay flag propio.
func (s *Store) IsLoggedIn() bool {
	_, ok := s.CurrentToken()
	return ok
}

func (s *Store) State() State {
	if s.IsLoggedIn() {
		return Authenticated
	}
	return Anonymous
}

// User devuelve una copia del perfil actual.
func (s *Store) User() (domain.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.Profile{}, false
	}
	return *s.user, true
}

func (s *Store) Session() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := domain.Session{Token: s.token}
	if s.user != nil {
		u := *s.user
		out.User = &u
	}
	return out
}

// SetToken reemplaza el token y lo persiste. Las fallas de persistencia se
// registran y no se propagan. Un token vacio equivale a cerrar la sesion sin
// notificar.
func (s *Store) SetToken(ctx context.Context, token string) {
	if token == "" {
		s.clear(ctx)
		return
	}

	s.mu.Lock()
	if s.token != token {
		s.user = nil
	}
	s.token = token
	s.mu.Unlock()

	if err := s.creds.Save(ctx, token); err != nil {
		s.logger.Warn("persist credential failed", zap.Error(err))
	}
}

// SetUser reemplaza el perfil completo. Sin token el perfil se descarta.
func (s *Store) SetUser(profile *domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if profile == nil {
		s.user = nil
		return
	}
	if s.token == "" {
		s.logger.Warn("profile dropped without session", zap.Uint("user_id", profile.ID))
		return
	}
	p := *profile
	s.user = &p
}

func (s *Store) Login(ctx context.Context, username, password string) (domain.Profile, error) {
	res, err := s.backend.Login(ctx, username, password)
	if err != nil {
		return domain.Profile{}, err
	}
	return s.establish(ctx, res)
}

func (s *Store) Register(ctx context.Context, username, password string) (domain.Profile, error) {
	res, err := s.backend.Register(ctx, username, password)
	if err != nil {
		return domain.Profile{}, err
	}
	return s.establish(ctx, res)
}

func (s *Store) establish(ctx context.Context, res domain.AuthResult) (domain.Profile, error) {
	s.SetToken(ctx, res.Token)
	profile, err := s.FetchProfile(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	if current, ok := s.CurrentToken(); !ok || current != res.Token {
		s.logger.Warn("session ended during login", zap.Uint("user_id", profile.ID))
		return domain.Profile{}, ErrSessionEnded
	}
	s.logger.Info("session established", zap.Uint("user_id", profile.ID))
	s.emit(navigation.Intent{Target: navigation.DefaultAuthenticatedRoute})
	return profile, nil
}

// FetchProfile pide el perfil con el token actual y lo guarda.
func (s *Store) FetchProfile(ctx context.Context) (domain.Profile, error) {
	profile, err := s.backend.Profile(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	s.SetUser(&profile)
	return profile, nil
}

// Logout limpia la sesion y el credential persistido y pide ir a login. Si
// ya no habia sesion se omite el toast.
func (s *Store) Logout(ctx context.Context) {
	wasLoggedIn := s.clear(ctx)
	if wasLoggedIn {
		s.push(domain.NotificationSpec{Title: "Success", Message: "Logged out", Kind: domain.KindSuccess})
		s.logger.Info("logged out")
	}
	s.emit(navigation.Intent{Target: navigation.LoginRoute})
}

// Invalidate descarta la sesion sin notificar ni navegar. Lo usa el gateway
// ante un 401, que ya emite su propio redirect.
func (s *Store) Invalidate(ctx context.Context) {
	if s.clear(ctx) {
		s.logger.Info("session invalidated by backend")
	}
}

// clear devuelve true si habia un token en memoria.
func (s *Store) clear(ctx context.Context) bool {
	s.mu.Lock()
	had := s.token != ""
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.creds.Clear(ctx); err != nil {
		s.logger.Warn("clear persisted credential failed", zap.Error(err))
	}
	return had
}

// Bootstrap reconcilia el credential persistido con una sesion verificada.
// Corre una sola vez; llamadas siguientes devuelven el resultado original.
func (s *Store) Bootstrap(ctx context.Context) State {
	s.bootstrapOnce.Do(func() {
		s.bootstrapState = s.bootstrap(ctx)
	})
	return s.bootstrapState
}

func (s *Store) bootstrap(ctx context.Context) State {
	token, ok, err := s.creds.Load(ctx)
	if err != nil {
		s.logger.Warn("load persisted credential failed", zap.Error(err))
		return Anonymous
	}
	if !ok {
		return Anonymous
	}

	s.mu.Lock()
	s.token = token
	s.user = nil
	s.mu.Unlock()

	if credentials.Expired(token, s.now()) {
		s.logger.Info("persisted credential expired")
		s.Logout(ctx)
		return Anonymous
	}

	if _, err := s.FetchProfile(ctx); err != nil {
		s.logger.Info("persisted credential rejected", zap.Error(err))
		s.Logout(ctx)
		return Anonymous
	}
	return s.State()
}

// Resync vuelve a leer el credential persistido despues de un cambio externo.
func (s *Store) Resync(ctx context.Context) {
	token, ok, err := s.creds.Load(ctx)
	if err != nil {
		s.logger.Warn("reload persisted credential failed", zap.Error(err))
		return
	}

	current, loggedIn := s.CurrentToken()
	switch {
	case !ok && !loggedIn:
		return
	case !ok:
		s.mu.Lock()
		s.token = ""
		s.user = nil
		s.mu.Unlock()
		s.logger.Info("credential removed externally")
		s.emit(navigation.Intent{Target: navigation.LoginRoute})
	case token == current:
		return
	default:
		s.mu.Lock()
		s.token = token
		s.user = nil
		s.mu.Unlock()
		s.logger.Info("credential changed externally")
		if _, err := s.FetchProfile(ctx); err != nil {
			s.Logout(ctx)
		}
	}
}

func (s *Store) push(spec domain.NotificationSpec) {
	if s.notifier != nil {
		s.notifier.Push(spec)
	}
}

func (s *Store) emit(intent navigation.Intent) {
	if s.nav != nil {
		s.nav.Emit(intent)
	}
}
