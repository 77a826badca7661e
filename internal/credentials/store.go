package credentials

import (
	"context"
	"sync"
)

// DefaultKey es la clave fija bajo la que se persiste el token.
const DefaultKey = "access_token"

// Store es el slot durable del token de sesion. Sobrevive reinicios del
// proceso; su presencia indica si el usuario estaba logueado. El token es
// opaco y se guarda tal cual; solo el valor vacio equivale a ausente.
type Store interface {
	Load(ctx context.Context) (token string, ok bool, err error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type memoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore devuelve un Store en memoria (tests y backend "memory").
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (s *memoryStore) Load(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", false, nil
	}
	return s.token, true, nil
}

func (s *memoryStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *memoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
