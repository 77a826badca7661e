package navigation

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// LoginState es lo unico que el guard necesita de la sesion.
type LoginState interface {
	IsLoggedIn() bool
}

// Location es la ruta en la que quedo el router, con sus parametros.
type Location struct {
	Route  Route
	Params map[string]string
}

// Path arma la ruta concreta reemplazando los parametros.
func (l Location) Path() string {
	path := l.Route.Path
	for k, v := range l.Params {
		path = strings.ReplaceAll(path, ":"+k, v)
	}
	return path
}

// Router aplica el guard en cada transicion y lleva la ubicacion actual.
type Router struct {
	logger  *zap.Logger
	table   *Table
	session LoginState

	mu         sync.Mutex
	current    Location
	history    []Location
	listeners  []func(Location)
	pending    []change
	delivering bool
}

type change struct {
	loc       Location
	listeners []func(Location)
}

func NewRouter(logger *zap.Logger, table *Table, session LoginState) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if table == nil {
		table = NewTable(DefaultRoutes)
	}
	return &Router{
		logger:  logger,
		table:   table,
		session: session,
	}
}

// Navigate intenta ir a la ruta con ese nombre y devuelve donde quedo
// despues de aplicar el guard.
func (r *Router) Navigate(name RouteName, params map[string]string) Location {
	route, ok := r.table.Lookup(name)
	if !ok {
		route = Route{Name: name, Path: "/" + string(name), Access: Protected}
	}
	return r.transition(Location{Route: route, Params: params}, false)
}

// Open resuelve un path concreto ("/lobby/TAV-AA22") y navega.
func (r *Router) Open(path string) (Location, error) {
	route, params, err := r.table.Resolve(path)
	if err != nil {
		return Location{}, err
	}
	return r.transition(Location{Route: route, Params: params}, false), nil
}

// HandleIntent consume un intent emitido por el core.
func (r *Router) HandleIntent(intent Intent) {
	route, ok := r.table.Lookup(intent.Target)
	if !ok {
		r.logger.Warn("intent for unknown route", zap.String("route", string(intent.Target)))
		return
	}
	r.transition(Location{Route: route}, intent.Hard)
}

// Attach suscribe el router al bus de intents.
func (r *Router) Attach(bus *Bus) (detach func()) {
	return bus.Subscribe(r.HandleIntent)
}

func (r *Router) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Router) History() []Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Location, len(r.history))
	copy(out, r.history)
	return out
}

// OnChange registra un listener que recibe cada ubicacion nueva.
func (r *Router) OnChange(fn func(Location)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Router) transition(target Location, hard bool) Location {
	loggedIn := r.session != nil && r.session.IsLoggedIn()

	dest := target
	decision := Decide(loggedIn, target.Route.Access)
	if !decision.Allow {
		redirect, _ := r.table.Lookup(decision.Redirect)
		r.logger.Debug("navigation redirected",
			zap.String("from", string(target.Route.Name)),
			zap.String("to", string(decision.Redirect)),
			zap.Bool("logged_in", loggedIn),
		)
		dest = Location{Route: redirect}
	}

	r.mu.Lock()
	if hard {
		r.history = nil
	}
	r.current = dest
	r.history = append(r.history, dest)
	listeners := make([]func(Location), len(r.listeners))
	copy(listeners, r.listeners)
	r.pending = append(r.pending, change{loc: dest, listeners: listeners})
	drain := !r.delivering
	r.delivering = true
	r.mu.Unlock()

	if drain {
		r.deliver()
	}
	return dest
}

// deliver despacha los cambios pendientes de a uno y en orden. Una transicion
// iniciada desde un listener se entrega despues de la actual.
func (r *Router) deliver() {
	for {
		r.mu.Lock()
		if len(r.pending) == 0 {
			r.delivering = false
			r.mu.Unlock()
			return
		}
		c := r.pending[0]
		r.pending[0] = change{}
		r.pending = r.pending[1:]
		r.mu.Unlock()

		for _, fn := range c.listeners {
			fn(c.loc)
		}
	}
}
