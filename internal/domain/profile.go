package domain

import "github.com/shopspring/decimal"

// Currency describe una moneda del juego (gold, silver, bronze).
type Currency struct {
	ID   uint   `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Balance es el saldo del usuario en una moneda.
type Balance struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// Profile es el perfil del usuario autenticado. Se reemplaza completo en cada
// fetch, nunca se modifica campo a campo.
type Profile struct {
	ID       uint    `json:"id"`
	Username string  `json:"username"`
	Balance  Balance `json:"balance"`
}

// AuthResult es la respuesta de login y registro.
type AuthResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}
