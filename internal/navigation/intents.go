package navigation

import "sync"

// Intent es un pedido de navegacion emitido por el core (sesion, gateway).
// Hard equivale a una recarga completa: el router descarta su historial.
type Intent struct {
	Target RouteName
	Hard   bool
}

// Emitter desacopla al core del router concreto.
type Emitter interface {
	Emit(Intent)
}

// Bus reparte los intents de forma sincronica a sus suscriptores.
type Bus struct {
	mu   sync.Mutex
	subs map[int]func(Intent)
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Intent))}
}

func (b *Bus) Emit(intent Intent) {
	b.mu.Lock()
	subs := make([]func(Intent), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(intent)
	}
}

func (b *Bus) Subscribe(fn func(Intent)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// EmitterFunc adapta una funcion a Emitter.
type EmitterFunc func(Intent)

func (f EmitterFunc) Emit(i Intent) { f(i) }
