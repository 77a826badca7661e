// Package api agrupa los colaboradores HTTP del backend del juego. Todas las
// llamadas pasan por el gateway.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"tavern-client/internal/domain"
	"tavern-client/internal/gateway"
)

var (
	ErrInvalidJoinType = errors.New("invalid join type")
	ErrEmptyToken      = errors.New("backend returned an empty token")
)

// Requester es el subconjunto del gateway que usa el cliente.
type Requester interface {
	Do(ctx context.Context, method, path string, body any) (*gateway.Response, error)
}

type Client struct {
	logger *zap.Logger
	gw     Requester
}

func NewClient(logger *zap.Logger, gw Requester) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{logger: logger, gw: gw}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

func (c *Client) Login(ctx context.Context, username, password string) (domain.AuthResult, error) {
	return c.authenticate(ctx, "login", username, password)
}

func (c *Client) Register(ctx context.Context, username, password string) (domain.AuthResult, error) {
	return c.authenticate(ctx, "register", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (domain.AuthResult, error) {
	resp, err := c.gw.Do(ctx, http.MethodPost, path, credentialsRequest{
		Username: strings.TrimSpace(username),
		Password: password,
	})
	if err != nil {
		return domain.AuthResult{}, err
	}
	var out domain.AuthResult
	if err := resp.Decode(&out); err != nil {
		return domain.AuthResult{}, fmt.Errorf("%s: %w", path, err)
	}
	if strings.TrimSpace(out.Token) == "" {
		return domain.AuthResult{}, fmt.Errorf("%s: %w", path, ErrEmptyToken)
	}
	return out, nil
}

// Profile trae el perfil del usuario dueño del token enviado.
func (c *Client) Profile(ctx context.Context) (domain.Profile, error) {
	resp, err := c.gw.Do(ctx, http.MethodGet, "profile", nil)
	if err != nil {
		return domain.Profile{}, err
	}
	var out dataEnvelope[domain.Profile]
	if err := resp.Decode(&out); err != nil {
		return domain.Profile{}, fmt.Errorf("profile: %w", err)
	}
	return out.Data, nil
}

func (c *Client) Currencies(ctx context.Context) ([]domain.Currency, error) {
	resp, err := c.gw.Do(ctx, http.MethodGet, "currencies", nil)
	if err != nil {
		return nil, err
	}
	var out dataEnvelope[[]domain.Currency]
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("currencies: %w", err)
	}
	if out.Data == nil {
		out.Data = []domain.Currency{}
	}
	return out.Data, nil
}

// CreateGame valida el join type antes de enviar; un valor desconocido no
// llega al backend.
func (c *Client) CreateGame(ctx context.Context, input domain.CreateGameInput) (domain.Game, error) {
	if !input.JoinType.Valid() {
		return domain.Game{}, fmt.Errorf("%w %q", ErrInvalidJoinType, input.JoinType)
	}
	resp, err := c.gw.Do(ctx, http.MethodPost, "games", input)
	if err != nil {
		return domain.Game{}, err
	}
	var game domain.Game
	if err := resp.Decode(&game); err != nil {
		return domain.Game{}, fmt.Errorf("create game: %w", err)
	}
	c.logger.Info("game created", zap.String("code", game.Code), zap.Uint("bet", game.Bet))
	return game, nil
}
