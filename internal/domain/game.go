package domain

import "fmt"

// JoinType define quien puede unirse a una partida.
type JoinType string

const (
	JoinAnyone  JoinType = "anyone"
	JoinFriends JoinType = "friends"
	JoinLink    JoinType = "link"
)

// Valid indica si el tipo de union es conocido por el backend.
func (j JoinType) Valid() bool {
	switch j {
	case JoinAnyone, JoinFriends, JoinLink:
		return true
	default:
		return false
	}
}

// ParseJoinType normaliza la entrada del usuario.
func ParseJoinType(s string) (JoinType, error) {
	j := JoinType(s)
	if !j.Valid() {
		return "", fmt.Errorf("invalid join type %q", s)
	}
	return j, nil
}

type CreateGameInput struct {
	CurrencyID    uint     `json:"currency_id"`
	Bet           uint     `json:"bet"`
	WinningPoints uint     `json:"winning_points"`
	JoinType      JoinType `json:"join_type"`
}

type Game struct {
	ID            uint     `json:"id"`
	Code          string   `json:"code"`
	Bet           uint     `json:"bet"`
	WinningPoints uint     `json:"winning_points"`
	Link          string   `json:"link"`
	Currency      Currency `json:"currency"`
}
