package domain

// Session combina el token de credencial y el perfil que autoriza.
// User solo esta presente si Token no esta vacio.
type Session struct {
	Token string   `json:"-"`
	User  *Profile `json:"user,omitempty"`
}

// LoggedIn deriva el estado de autenticacion del token.
func (s Session) LoggedIn() bool {
	return s.Token != ""
}
