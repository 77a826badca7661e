package navigation

const (
	// DefaultAuthenticatedRoute es el destino tras login o al visitar una
	// ruta publica con sesion.
	DefaultAuthenticatedRoute = RouteHome
	// LoginRoute es el destino de toda ruta protegida sin sesion.
	LoginRoute = RouteLogin
)

// Decision es el resultado del guard para una transicion.
type Decision struct {
	Allow    bool
	Redirect RouteName
}

// Decide es la funcion total del guard. No guarda estado; se evalua en cada
// navegacion.
func Decide(loggedIn bool, access Access) Decision {
	switch {
	case loggedIn && access == Public:
		return Decision{Redirect: DefaultAuthenticatedRoute}
	case !loggedIn && access == Protected:
		return Decision{Redirect: LoginRoute}
	default:
		return Decision{Allow: true}
	}
}
