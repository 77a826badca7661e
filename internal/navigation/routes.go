package navigation

import (
	"errors"
	"strings"
)

type RouteName string

const (
	RouteHome        RouteName = "home"
	RouteCreate      RouteName = "create"
	RouteJoin        RouteName = "join"
	RouteLeaderboard RouteName = "leaderboard"
	RouteLogin       RouteName = "login"
	RouteRegister    RouteName = "register"
	RouteLobby       RouteName = "lobby"
	RouteRoom        RouteName = "room"
)

// Access es la clasificacion estatica de una ruta.
type Access int

const (
	Protected Access = iota
	Public
)

func (a Access) String() string {
	if a == Public {
		return "public"
	}
	return "protected"
}

type Route struct {
	Name   RouteName
	Path   string
	Access Access
}

// DefaultRoutes es la tabla de rutas del cliente.
var DefaultRoutes = []Route{
	{Name: RouteHome, Path: "/", Access: Protected},
	{Name: RouteCreate, Path: "/create", Access: Protected},
	{Name: RouteJoin, Path: "/join", Access: Protected},
	{Name: RouteLeaderboard, Path: "/leaderboard", Access: Protected},
	{Name: RouteLogin, Path: "/login", Access: Public},
	{Name: RouteRegister, Path: "/register", Access: Public},
	{Name: RouteLobby, Path: "/lobby/:code", Access: Protected},
	{Name: RouteRoom, Path: "/room/:code", Access: Protected},
}

var ErrRouteNotFound = errors.New("route not found")

// Table indexa las rutas por nombre. Es inmutable despues de construida.
type Table struct {
	routes []Route
	byName map[RouteName]Route
}

func NewTable(routes []Route) *Table {
	t := &Table{
		routes: make([]Route, len(routes)),
		byName: make(map[RouteName]Route, len(routes)),
	}
	copy(t.routes, routes)
	for _, r := range routes {
		t.byName[r.Name] = r
	}
	return t
}

func (t *Table) Lookup(name RouteName) (Route, bool) {
	r, ok := t.byName[name]
	return r, ok
}

// Access devuelve la clasificacion de la ruta; las desconocidas son protegidas.
func (t *Table) Access(name RouteName) Access {
	r, ok := t.byName[name]
	if !ok {
		return Protected
	}
	return r.Access
}

// Resolve busca la ruta que coincide con path y extrae sus parametros.
func (t *Table) Resolve(path string) (Route, map[string]string, error) {
	segments := splitPath(path)
	for _, r := range t.routes {
		pattern := splitPath(r.Path)
		if len(pattern) != len(segments) {
			continue
		}
		params := make(map[string]string)
		matched := true
		for i, p := range pattern {
			if strings.HasPrefix(p, ":") {
				if segments[i] == "" {
					matched = false
					break
				}
				params[p[1:]] = segments[i]
				continue
			}
			if p != segments[i] {
				matched = false
				break
			}
		}
		if matched {
			return r, params, nil
		}
	}
	return Route{}, nil, ErrRouteNotFound
}

func splitPath(path string) []string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
