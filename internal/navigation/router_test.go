package navigation

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeSession struct{ loggedIn bool }

func (f *fakeSession) IsLoggedIn() bool { return f.loggedIn }

func TestRouterNavigate_EvaluatesGuardEveryTime(t *testing.T) {
	session := &fakeSession{}
	r := NewRouter(zap.NewNop(), nil, session)

	if got := r.Navigate(RouteLeaderboard, nil); got.Route.Name != RouteLogin {
		t.Fatalf("anonymous user should be sent to login, got %s", got.Route.Name)
	}
	if got := r.Navigate(RouteRegister, nil); got.Route.Name != RouteRegister {
		t.Fatalf("anonymous user may open register, got %s", got.Route.Name)
	}

	session.loggedIn = true
	if got := r.Navigate(RouteLogin, nil); got.Route.Name != RouteHome {
		t.Fatalf("logged in user should be sent home, got %s", got.Route.Name)
	}
	if got := r.Navigate(RouteLeaderboard, nil); got.Route.Name != RouteLeaderboard {
		t.Fatalf("logged in user may open leaderboard, got %s", got.Route.Name)
	}

	session.loggedIn = false
	if got := r.Navigate(RouteLeaderboard, nil); got.Route.Name != RouteLogin {
		t.Fatalf("guard result must not be cached, got %s", got.Route.Name)
	}
}

func TestRouterOpen_KeepsParams(t *testing.T) {
	r := NewRouter(nil, nil, &fakeSession{loggedIn: true})

	loc, err := r.Open("/room/TAV-QW77")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if loc.Route.Name != RouteRoom || loc.Path() != "/room/TAV-QW77" {
		t.Fatalf("unexpected location: %+v path=%s", loc, loc.Path())
	}
	if r.Current().Route.Name != RouteRoom {
		t.Fatalf("current route not updated")
	}
}

func TestRouterHandleIntent_HardClearsHistory(t *testing.T) {
	session := &fakeSession{loggedIn: true}
	r := NewRouter(nil, nil, session)
	bus := NewBus()
	detach := r.Attach(bus)
	defer detach()

	r.Navigate(RouteHome, nil)
	r.Navigate(RouteJoin, nil)
	if len(r.History()) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(r.History()))
	}

	session.loggedIn = false
	bus.Emit(Intent{Target: RouteLogin, Hard: true})

	if r.Current().Route.Name != RouteLogin {
		t.Fatalf("expected login after hard intent, got %s", r.Current().Route.Name)
	}
	if h := r.History(); len(h) != 1 || h[0].Route.Name != RouteLogin {
		t.Fatalf("hard intent should reset history, got %+v", h)
	}
}

func TestRouterHandleIntent_GuardStillApplies(t *testing.T) {
	r := NewRouter(nil, nil, &fakeSession{loggedIn: false})
	r.HandleIntent(Intent{Target: RouteHome})
	if r.Current().Route.Name != RouteLogin {
		t.Fatalf("intent to protected route while anonymous must land on login, got %s", r.Current().Route.Name)
	}
}

func TestRouterOnChange(t *testing.T) {
	r := NewRouter(nil, nil, &fakeSession{loggedIn: true})
	var seen []RouteName
	r.OnChange(func(l Location) { seen = append(seen, l.Route.Name) })

	r.Navigate(RouteCreate, nil)
	r.Navigate(RouteRegister, nil)

	if len(seen) != 2 || seen[0] != RouteCreate || seen[1] != RouteHome {
		t.Fatalf("unexpected listener calls: %v", seen)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsubscribe := bus.Subscribe(func(Intent) { calls++ })
	bus.Emit(Intent{Target: RouteLogin})
	unsubscribe()
	bus.Emit(Intent{Target: RouteLogin})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRouterOnChange_DeliversInOrder(t *testing.T) {
	r := NewRouter(nil, nil, &fakeSession{loggedIn: true})

	entered := make(chan struct{})
	release := make(chan struct{})
	var (
		mu      sync.Mutex
		blocked bool
		seen    []RouteName
	)
	r.OnChange(func(l Location) {
		mu.Lock()
		block := !blocked
		blocked = true
		mu.Unlock()
		if block {
			close(entered)
			<-release
		}
		mu.Lock()
		seen = append(seen, l.Route.Name)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		r.Navigate(RouteCreate, nil)
		close(done)
	}()
	<-entered

	if got := r.Navigate(RouteLeaderboard, nil); got.Route.Name != RouteLeaderboard {
		t.Fatalf("expected leaderboard, got %s", got.Route.Name)
	}
	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("navigate did not return")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != RouteCreate || seen[1] != RouteLeaderboard {
		t.Fatalf("expected [create leaderboard], got %v", seen)
	}
	if r.Current().Route.Name != RouteLeaderboard {
		t.Fatalf("expected current leaderboard, got %s", r.Current().Route.Name)
	}
}

func TestRouterOnChange_ListenerMayNavigate(t *testing.T) {
	r := NewRouter(nil, nil, &fakeSession{loggedIn: true})
	var seen []RouteName
	r.OnChange(func(l Location) {
		seen = append(seen, l.Route.Name)
		if l.Route.Name == RouteCreate {
			r.Navigate(RouteLeaderboard, nil)
		}
	})

	r.Navigate(RouteCreate, nil)

	if len(seen) != 2 || seen[0] != RouteCreate || seen[1] != RouteLeaderboard {
		t.Fatalf("unexpected listener calls: %v", seen)
	}
}
