package backendtest

import (
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"tavern-client/internal/domain"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// dummyHash se compara cuando el usuario no existe para igualar tiempos.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), bcrypt.MinCost)

type user struct {
	id           uint
	username     string
	passwordHash []byte
	balance      domain.Balance
}

func (u user) profile() domain.Profile {
	return domain.Profile{ID: u.id, Username: u.username, Balance: u.balance}
}

// userRegistry es el almacenamiento en memoria de cuentas del backend fake.
type userRegistry struct {
	mu         sync.Mutex
	cost       int
	nextID     uint
	byID       map[uint]*user
	byUsername map[string]uint
	starting   domain.Balance
}

func newUserRegistry(cost int, starting domain.Balance) *userRegistry {
	if cost <= 0 {
		cost = bcrypt.MinCost
	}
	return &userRegistry{
		cost:       cost,
		nextID:     1,
		byID:       make(map[uint]*user),
		byUsername: make(map[string]uint),
		starting:   starting,
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (r *userRegistry) create(username, password string) (user, error) {
	key := normalizeUsername(username)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return user{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUsername[key]; ok {
		return user{}, ErrUserExists
	}
	u := &user{
		id:           r.nextID,
		username:     strings.TrimSpace(username),
		passwordHash: hash,
		balance:      r.starting,
	}
	r.nextID++
	r.byID[u.id] = u
	r.byUsername[key] = u.id
	return *u, nil
}

func (r *userRegistry) authenticate(username, password string) (user, error) {
	r.mu.Lock()
	id, ok := r.byUsername[normalizeUsername(username)]
	var u user
	if ok {
		u = *r.byID[id]
	}
	r.mu.Unlock()

	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return user{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return user{}, ErrInvalidCredentials
	}
	return u, nil
}

func (r *userRegistry) get(id uint) (user, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return user{}, ErrUserNotFound
	}
	return *u, nil
}

func (r *userRegistry) setBalance(id uint, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.balance.Amount = amount
	return nil
}
