// Package backendtest implementa un backend fake del juego sobre gin. Emite
// JWT reales y responde con los mismos shapes de exito y de falla que el
// backend productivo. Se usa en tests y con el comando devserver.
package backendtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tavern-client/internal/domain"
)

const (
	WinningPointsMinimum = 3000
	WinningPointsLimit   = 20000

	authUserKey = "auth_user_id"
)

// DefaultCurrencies son las monedas sembradas por el backend.
var DefaultCurrencies = []domain.Currency{
	{ID: 1, Slug: "bronze", Name: "Bronze"},
	{ID: 2, Slug: "silver", Name: "Silver"},
	{ID: 3, Slug: "gold", Name: "Gold"},
}

type Config struct {
	Secret          string
	TokenTTL        time.Duration
	StartingBalance decimal.Decimal
	BcryptCost      int
	Now             func() time.Time
}

// cannedResponse es una falla inyectada para el proximo request a una ruta.
type cannedResponse struct {
	status int
	body   any
}

// Backend es el backend fake. Es seguro para uso concurrente.
type Backend struct {
	logger     *zap.Logger
	users      *userRegistry
	tokens     *tokenIssuer
	currencies []domain.Currency
	engine     *gin.Engine

	mu       sync.Mutex
	failures map[string][]cannedResponse
	games    []domain.Game
	hits     map[string]int
	lastAuth map[string]string
}

func New(logger *zap.Logger, cfg Config) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Secret == "" {
		cfg.Secret = "backendtest-secret"
	}
	if cfg.StartingBalance.IsZero() {
		cfg.StartingBalance = decimal.NewFromInt(1000)
	}
	b := &Backend{
		logger:     logger,
		tokens:     newTokenIssuer(cfg.Secret, cfg.TokenTTL, cfg.Now),
		currencies: DefaultCurrencies,
		failures:   make(map[string][]cannedResponse),
		hits:       make(map[string]int),
		lastAuth:   make(map[string]string),
	}
	b.users = newUserRegistry(cfg.BcryptCost, domain.Balance{
		Amount:   cfg.StartingBalance,
		Currency: DefaultCurrencies[0],
	})
	b.engine = b.newRouter()
	return b
}

// Handler expone el router gin.
func (b *Backend) Handler() http.Handler {
	return b.engine
}

// Start levanta el backend en un httptest.Server. El caller debe cerrarlo.
func (b *Backend) Start() *httptest.Server {
	return httptest.NewServer(b.engine)
}

// FailNext hace que el proximo request a path ("/api/profile") responda con
// status y body en lugar del handler real. Las fallas se encolan.
func (b *Backend) FailNext(path string, status int, body any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[path] = append(b.failures[path], cannedResponse{status: status, body: body})
}

// CreateUser registra una cuenta y devuelve un token valido para ella.
func (b *Backend) CreateUser(username, password string) (domain.Profile, string, error) {
	u, err := b.users.create(username, password)
	if err != nil {
		return domain.Profile{}, "", err
	}
	token, err := b.tokens.issue(u.id)
	if err != nil {
		return domain.Profile{}, "", err
	}
	return u.profile(), token, nil
}

// ExpiredToken firma un token ya vencido para el usuario.
func (b *Backend) ExpiredToken(userID uint) (string, error) {
	return b.tokens.issueAt(userID, b.tokens.now().Add(-time.Hour))
}

func (b *Backend) SetBalance(userID uint, amount decimal.Decimal) error {
	return b.users.setBalance(userID, amount)
}

// Hits cuenta los requests recibidos por path.
func (b *Backend) Hits(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

// LastAuthorization devuelve el header Authorization del ultimo request a path.
func (b *Backend) LastAuthorization(path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAuth[path]
}

func (b *Backend) Games() []domain.Game {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Game, len(b.games))
	copy(out, b.games)
	return out
}

func (b *Backend) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(zapLoggerMiddleware(b.logger), gin.Recovery(), b.recordMiddleware(), b.failureMiddleware())

	api := r.Group("/api")
	api.POST("/login", b.login)
	api.POST("/register", b.register)
	api.GET("/currencies", b.listCurrencies)

	protected := api.Group("", b.authMiddleware())
	protected.GET("/profile", b.profile)
	protected.POST("/games", b.createGame)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
	})
	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (b *Backend) recordMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		b.mu.Lock()
		b.hits[path]++
		b.lastAuth[path] = c.GetHeader("Authorization")
		b.mu.Unlock()
		c.Next()
	}
}

func (b *Backend) failureMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		b.mu.Lock()
		queue := b.failures[path]
		var canned *cannedResponse
		if len(queue) > 0 {
			canned = &queue[0]
			b.failures[path] = queue[1:]
		}
		b.mu.Unlock()

		if canned == nil {
			c.Next()
			return
		}
		if canned.body == nil {
			c.AbortWithStatus(canned.status)
			return
		}
		c.AbortWithStatusJSON(canned.status, canned.body)
	}
}

// authMiddleware valida el bearer token y guarda el id del usuario.
func (b *Backend) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing or malformed JWT"})
			return
		}
		userID, err := b.tokens.parse(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired JWT"})
			return
		}
		c.Set(authUserKey, userID)
		c.Next()
	}
}

func authUser(c *gin.Context) (uint, bool) {
	val, ok := c.Get(authUserKey)
	if !ok {
		return 0, false
	}
	id, ok := val.(uint)
	return id, ok
}
