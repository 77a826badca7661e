package session

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tavern-client/internal/api"
	"tavern-client/internal/backendtest"
	"tavern-client/internal/credentials"
	"tavern-client/internal/gateway"
	"tavern-client/internal/navigation"
	"tavern-client/internal/notify"
)

type harness struct {
	backend *backendtest.Backend
	creds   credentials.Store
	queue   *notify.Queue
	router  *navigation.Router
	store   *Store
}

// newHarness arma el mismo grafo que el CLI contra el backend fake.
func newHarness(t *testing.T, creds credentials.Store) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	backend := backendtest.New(zap.NewNop(), backendtest.Config{})
	srv := backend.Start()
	t.Cleanup(srv.Close)

	if creds == nil {
		creds = credentials.NewMemoryStore()
	}
	queue := notify.NewQueue(nil, notify.WithDefaultTimeout(0))
	bus := navigation.NewBus()

	var store *Store
	gw, err := gateway.New(nil, srv.URL+"/api/", 5*time.Second,
		gateway.WithTokenSource(gateway.TokenSourceFunc(func() (string, bool) { return store.CurrentToken() })),
		gateway.WithNotifier(queue),
		gateway.WithNavigator(bus),
		gateway.WithUnauthorizedHandler(func(ctx context.Context) { store.Invalidate(ctx) }),
	)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	store = NewStore(nil, creds, api.NewClient(nil, gw), queue, bus)
	router := navigation.NewRouter(nil, nil, store)
	t.Cleanup(router.Attach(bus))

	return &harness{backend: backend, creds: creds, queue: queue, router: router, store: store}
}

func (h *harness) messages() []string {
	var out []string
	for _, n := range h.queue.Items() {
		out = append(out, n.Message)
	}
	return out
}

func TestIntegration_RegisterLandsOnHome(t *testing.T) {
	h := newHarness(t, nil)
	h.router.Navigate(navigation.RouteRegister, nil)

	if _, err := h.store.Register(context.Background(), "sunTzu", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := h.router.Current().Route.Name; got != navigation.RouteHome {
		t.Fatalf("expected home, got %s", got)
	}
	msgs := h.messages()
	if len(msgs) != 1 || msgs[0] != "Success registration" {
		t.Fatalf("unexpected toasts %v", msgs)
	}
}

func TestIntegration_UnauthorizedClearsSessionAndRedirects(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.store.Register(context.Background(), "aethel", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	h.router.Navigate(navigation.RouteLeaderboard, nil)

	h.backend.FailNext("/api/profile", http.StatusUnauthorized, map[string]any{
		"errors": map[string][]string{"token": {"expired"}},
	})
	_, err := h.store.FetchProfile(context.Background())
	if !errors.Is(err, gateway.ErrUnauthenticated) {
		t.Fatalf("expected authentication failure, got %v", err)
	}

	if h.store.IsLoggedIn() {
		t.Fatalf("expected session cleared on 401")
	}
	if _, ok, _ := h.creds.Load(context.Background()); ok {
		t.Fatalf("expected persisted credential erased on 401")
	}
	if got := h.router.Current().Route.Name; got != navigation.RouteLogin {
		t.Fatalf("expected login, got %s", got)
	}
	if len(h.router.History()) != 1 {
		t.Fatalf("expected hard redirect to reset history, got %d entries", len(h.router.History()))
	}
	msgs := h.messages()
	if msgs[len(msgs)-1] != "expired" {
		t.Fatalf("expected validation toast alongside redirect, got %v", msgs)
	}
}

func TestIntegration_BootstrapWithRejectedToken(t *testing.T) {
	creds := credentials.NewMemoryStore()
	_ = creds.Save(context.Background(), "not-a-real-token")
	h := newHarness(t, creds)

	if got := h.store.Bootstrap(context.Background()); got != Anonymous {
		t.Fatalf("expected anonymous, got %s", got)
	}
	if _, ok, _ := creds.Load(context.Background()); ok {
		t.Fatalf("expected persisted credential erased")
	}
	if got := h.router.Current().Route.Name; got != navigation.RouteLogin {
		t.Fatalf("expected login, got %s", got)
	}
}

func TestIntegration_BootstrapRestoresSession(t *testing.T) {
	creds := credentials.NewMemoryStore()
	h := newHarness(t, creds)
	_, token, err := h.backend.CreateUser("bjorn", "secret123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	_ = creds.Save(context.Background(), token)

	if got := h.store.Bootstrap(context.Background()); got != Authenticated {
		t.Fatalf("expected authenticated, got %s", got)
	}
	user, ok := h.store.User()
	if !ok || user.Username != "bjorn" {
		t.Fatalf("unexpected user %+v", user)
	}
	loc := h.router.Navigate(navigation.RouteLogin, nil)
	if loc.Route.Name != navigation.RouteHome {
		t.Fatalf("expected guard to redirect logged-in user to home, got %s", loc.Route.Name)
	}
}
