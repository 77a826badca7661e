package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tavern-client/internal/backendtest"
	"tavern-client/internal/config"
	"tavern-client/internal/navigation"
	"tavern-client/internal/session"
)

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		BackendURL:        backendURL,
		APIPrefix:         "/api/",
		RequestTimeout:    5 * time.Second,
		CredentialBackend: config.CredentialBackendMemory,
		CredentialKey:     "access_token",
		ToastTimeoutMs:    0,
		RateLimitBurst:    1,
	}
}

func startBackend(t *testing.T) (*backendtest.Backend, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	backend := backendtest.New(zap.NewNop(), backendtest.Config{})
	srv := backend.Start()
	t.Cleanup(srv.Close)
	return backend, srv.URL
}

func TestApp_AnonymousBootstrapLandsOnLogin(t *testing.T) {
	_, url := startBackend(t)
	a, err := New(context.Background(), nil, testConfig(url))
	require.NoError(t, err)
	defer a.Close()

	state := a.Bootstrap(context.Background())
	assert.Equal(t, session.Anonymous, state)
	assert.Equal(t, navigation.RouteLogin, a.Router.Current().Route.Name)
}

func TestApp_LoginPersistsToFile(t *testing.T) {
	backend, url := startBackend(t)
	_, _, err := backend.CreateUser("hermann", "secret123")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := testConfig(url)
	cfg.CredentialBackend = config.CredentialBackendFile
	cfg.CredentialPath = dir

	a, err := New(context.Background(), nil, cfg)
	require.NoError(t, err)
	a.Bootstrap(context.Background())

	profile, err := a.Session.Login(context.Background(), "hermann", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "hermann", profile.Username)
	assert.Equal(t, navigation.RouteHome, a.Router.Current().Route.Name)
	require.NoError(t, a.Close())

	raw, err := os.ReadFile(filepath.Join(dir, "access_token"))
	require.NoError(t, err)
	assert.NotEmpty(t, string(raw))

	// Un proceso nuevo recupera la sesion desde el archivo.
	again, err := New(context.Background(), nil, cfg)
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, session.Authenticated, again.Bootstrap(context.Background()))
	assert.Equal(t, navigation.RouteHome, again.Router.Current().Route.Name)
}

func TestApp_RedisBackend(t *testing.T) {
	backend, url := startBackend(t)
	_, token, err := backend.CreateUser("yulia", "secret123")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("tavern:credentials:access_token", token))

	cfg := testConfig(url)
	cfg.CredentialBackend = config.CredentialBackendRedis
	cfg.RedisAddr = mr.Addr()

	a, err := New(context.Background(), nil, cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, session.Authenticated, a.Bootstrap(context.Background()))
	user, ok := a.Session.User()
	require.True(t, ok)
	assert.Equal(t, "yulia", user.Username)

	a.Session.Logout(context.Background())
	assert.False(t, mr.Exists("tavern:credentials:access_token"))
}

func TestApp_RedisUnavailable(t *testing.T) {
	cfg := testConfig("http://localhost:3000")
	cfg.CredentialBackend = config.CredentialBackendRedis
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := New(context.Background(), nil, cfg)
	require.Error(t, err)
}

func TestApp_WatcherResyncsOnExternalRemoval(t *testing.T) {
	backend, url := startBackend(t)
	_, _, err := backend.CreateUser("max", "secret123")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := testConfig(url)
	cfg.CredentialBackend = config.CredentialBackendFile
	cfg.CredentialPath = dir
	cfg.CredentialWatch = true

	a, err := New(context.Background(), nil, cfg)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Session.Login(context.Background(), "max", "secret123")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "access_token")))

	require.Eventually(t, func() bool {
		return !a.Session.IsLoggedIn()
	}, 2*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		return a.Router.Current().Route.Name == navigation.RouteLogin
	}, time.Second, 20*time.Millisecond)
}
