package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"tavern-client/internal/backendtest"
)

// setupCLI levanta el backend fake y apunta el CLI a el con un credential
// store de archivo propio del test.
func setupCLI(t *testing.T) *backendtest.Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)
	backend := backendtest.New(nil, backendtest.Config{BcryptCost: bcrypt.MinCost})
	srv := backend.Start()
	t.Cleanup(srv.Close)

	t.Setenv("BACKEND_URL", srv.URL)
	t.Setenv("CREDENTIAL_BACKEND", "file")
	t.Setenv("CREDENTIAL_PATH", t.TempDir())
	t.Setenv("CREDENTIAL_WATCH", "false")
	t.Setenv("TOAST_TIMEOUT_MS", "0")
	t.Setenv("LOG_LEVEL", "error")
	return backend
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), args, &out, &errOut)
	return out.String(), err
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Fatalf("expected output to contain %q, got:\n%s", w, out)
		}
	}
}

func TestAuthCommands(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "register", "joan", "-p", "secret123")
	if err != nil {
		t.Fatalf("register: %v\n%s", err, out)
	}
	assertContains(t, out, "[success] Success: Success registration", "registered as joan", "route: /\n")

	out, err = runCLI(t, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	assertContains(t, out, "session: authenticated", "user: joan (#1)", "route: /\n")

	out, err = runCLI(t, "logout")
	if err != nil {
		t.Fatalf("logout: %v\n%s", err, out)
	}
	assertContains(t, out, "[success] Success: Logged out", "route: /login")

	out, err = runCLI(t, "login", "joan", "-p", "wrong-password")
	if err == nil {
		t.Fatalf("expected login with a bad password to fail")
	}
	assertContains(t, out, "[error] Error: Invalid username or password", "route: /login")

	out, err = runCLI(t, "login", "joan", "-p", "secret123")
	if err != nil {
		t.Fatalf("login: %v\n%s", err, out)
	}
	assertContains(t, out, "[success] Success: Logged in", "logged in as joan", "route: /\n")
}

func TestRegisterCommand_ValidationToasts(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "register", "jo", "-p", "123")
	if err == nil {
		t.Fatalf("expected register to fail")
	}
	assertContains(t, out,
		"[error] Error: The username must be at least 3 characters.\n[error] Error: The password must be at least 6 characters.",
		"route: /login",
	)
}

func TestProfileCommands(t *testing.T) {
	backend := setupCLI(t)

	out, err := runCLI(t, "profile")
	if err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("expected not logged in error, got %v", err)
	}
	assertContains(t, out, "route: /login")

	out, err = runCLI(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	assertContains(t, out, "session: anonymous")

	if _, _, err := backend.CreateUser("hermann", "secret123"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := runCLI(t, "login", "hermann", "-p", "secret123"); err != nil {
		t.Fatalf("login: %v", err)
	}

	out, err = runCLI(t, "profile")
	if err != nil {
		t.Fatalf("profile: %v\n%s", err, out)
	}
	assertContains(t, out, "user: hermann (#1)", "balance: 1000 Bronze")

	out, err = runCLI(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	assertContains(t, out, "backend calls: method=GET outcome=success count=1")
}

func TestGameCommands(t *testing.T) {
	backend := setupCLI(t)

	out, err := runCLI(t, "create-game", "--bet", "10")
	if err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("expected guard to block create-game, got %v", err)
	}
	assertContains(t, out, "route: /login")

	out, err = runCLI(t, "open", "/leaderboard")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	assertContains(t, out, "redirected to login", "route: /login")

	if _, _, err := backend.CreateUser("joan", "secret123"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := runCLI(t, "login", "joan", "-p", "secret123"); err != nil {
		t.Fatalf("login: %v", err)
	}

	out, err = runCLI(t, "currencies")
	if err != nil {
		t.Fatalf("currencies: %v", err)
	}
	assertContains(t, out, "1\tbronze\tBronze\n2\tsilver\tSilver\n3\tgold\tGold\n")

	if _, err := runCLI(t, "create-game", "--bet", "10", "--join", "nobody"); err == nil {
		t.Fatalf("expected unknown join type to be rejected")
	}
	if len(backend.Games()) != 0 {
		t.Fatalf("invalid join type must not reach the backend")
	}

	out, err = runCLI(t, "create-game", "--bet", "100", "--points", "5000", "--join", "link")
	if err != nil {
		t.Fatalf("create-game: %v\n%s", err, out)
	}
	games := backend.Games()
	if len(games) != 1 {
		t.Fatalf("expected 1 game, got %d", len(games))
	}
	assertContains(t, out,
		"game "+games[0].Code+": bet 100 Bronze, 5000 points",
		"route: /lobby/"+games[0].Code,
	)

	out, err = runCLI(t, "create-game", "--bet", "100", "--points", "50000")
	if err == nil {
		t.Fatalf("expected winning points limit to be rejected")
	}
	assertContains(t, out, "[error] Error: winning points limit exceeded 20000 points", "route: /create")
}
