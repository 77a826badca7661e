package backendtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tavern-client/internal/domain"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createGameRequest struct {
	CurrencyID    uint   `json:"currency_id"`
	Bet           uint   `json:"bet"`
	WinningPoints uint   `json:"winning_points"`
	JoinType      string `json:"join_type"`
}

// fieldErrors conserva el orden de insercion al serializar.
type fieldErrors struct {
	keys   []string
	values map[string][]string
}

func (f *fieldErrors) add(field, msg string) {
	if f.values == nil {
		f.values = make(map[string][]string)
	}
	if _, ok := f.values[field]; !ok {
		f.keys = append(f.keys, field)
	}
	f.values[field] = append(f.values[field], msg)
}

func (f *fieldErrors) empty() bool { return len(f.keys) == 0 }

func (f *fieldErrors) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		key, _ := json.Marshal(k)
		sb.Write(key)
		sb.WriteByte(':')
		val, err := json.Marshal(f.values[k])
		if err != nil {
			return nil, err
		}
		sb.Write(val)
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

func validateCredentials(req credentialsRequest) *fieldErrors {
	errs := &fieldErrors{}
	username := strings.TrimSpace(req.Username)
	switch {
	case username == "":
		errs.add("username", "The username field is required.")
	case len(username) < 3:
		errs.add("username", "The username must be at least 3 characters.")
	case len(username) > 255:
		errs.add("username", "The username may not be greater than 255 characters.")
	}
	switch {
	case req.Password == "":
		errs.add("password", "The password field is required.")
	case len(req.Password) < 6:
		errs.add("password", "The password must be at least 6 characters.")
	case len(req.Password) > 50:
		errs.add("password", "The password may not be greater than 50 characters.")
	}
	return errs
}

func (b *Backend) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}
	if errs := validateCredentials(req); !errs.empty() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
		return
	}

	u, err := b.users.authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password"})
		return
	}
	token, err := b.tokens.issue(u.id)
	if err != nil {
		b.logger.Error("sign token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusOK, domain.AuthResult{Message: "Logged in", Token: token})
}

func (b *Backend) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}
	if errs := validateCredentials(req); !errs.empty() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
		return
	}

	u, err := b.users.create(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			errs := &fieldErrors{}
			errs.add("username", "The username has already been taken.")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
			return
		}
		b.logger.Error("create user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
		return
	}
	token, err := b.tokens.issue(u.id)
	if err != nil {
		b.logger.Error("sign token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusOK, domain.AuthResult{Message: "Success registration", Token: token})
}

func (b *Backend) profile(c *gin.Context) {
	id, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	u, err := b.users.get(id)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": u.profile()})
}

func (b *Backend) listCurrencies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": b.currencies})
}

func (b *Backend) currency(id uint) (domain.Currency, bool) {
	for _, cur := range b.currencies {
		if cur.ID == id {
			return cur, true
		}
	}
	return domain.Currency{}, false
}

func (b *Backend) createGame(c *gin.Context) {
	id, ok := authUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}

	errs := &fieldErrors{}
	currency, found := b.currency(req.CurrencyID)
	if !found {
		errs.add("currency_id", "invalid currency")
	}
	if req.Bet == 0 {
		errs.add("bet", "The bet must be greater than 0.")
	}
	if req.WinningPoints < WinningPointsMinimum {
		errs.add("winning_points", "winning points must be at least 3000 points")
	}
	if req.WinningPoints > WinningPointsLimit {
		errs.add("winning_points", "winning points limit exceeded 20000 points")
	}
	if !domain.JoinType(req.JoinType).Valid() {
		errs.add("join_type", "invalid join type "+req.JoinType)
	}
	if !errs.empty() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
		return
	}

	u, err := b.users.get(id)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	if u.balance.Currency.ID != currency.ID || u.balance.Amount.LessThan(decimal.NewFromInt(int64(req.Bet))) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "insufficient funds"})
		return
	}

	code := uuid.NewString()
	b.mu.Lock()
	game := domain.Game{
		ID:            uint(len(b.games) + 1),
		Code:          code,
		Bet:           req.Bet,
		WinningPoints: req.WinningPoints,
		Link:          code,
		Currency:      currency,
	}
	b.games = append(b.games, game)
	b.mu.Unlock()

	c.JSON(http.StatusOK, game)
}
