package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tavern-client/internal/domain"
)

// Timer es la tarea programada de auto-descarte de un toast.
type Timer interface {
	Stop() bool
}

// Scheduler programa callbacks diferidos. En produccion es time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Listener recibe una copia de la secuencia despues de cada cambio.
type Listener func(items []domain.Notification)

// Queue mantiene los toasts visibles en orden de insercion.
//
// Los listeners corren fuera del lock, de a uno y en el orden de los cambios:
// el goroutine que encuentra la entrega libre despacha todo lo pendiente, y
// los demas (incluido un listener que hace Push o Dismiss) solo encolan.
type Queue struct {
	logger           *zap.Logger
	scheduler        Scheduler
	defaultTimeoutMs int

	mu         sync.Mutex
	items      []domain.Notification
	timers     map[string]Timer
	listeners  map[int]Listener
	nextSub    int
	pending    []delivery
	delivering bool
}

type delivery struct {
	items     []domain.Notification
	listeners []Listener
}

type Option func(*Queue)

// WithScheduler reemplaza time.AfterFunc (tests).
func WithScheduler(s Scheduler) Option {
	return func(q *Queue) {
		if s != nil {
			q.scheduler = s
		}
	}
}

// WithDefaultTimeout cambia el timeout aplicado cuando el push no trae uno.
func WithDefaultTimeout(ms int) Option {
	return func(q *Queue) {
		if ms >= 0 {
			q.defaultTimeoutMs = ms
		}
	}
}

func NewQueue(logger *zap.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{
		logger:           logger,
		scheduler:        realScheduler{},
		defaultTimeoutMs: domain.DefaultNotificationTimeoutMs,
		timers:           make(map[string]Timer),
		listeners:        make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push agrega un toast al final y devuelve su id. Si el timeout es mayor a
// cero programa el descarte automatico.
func (q *Queue) Push(spec domain.NotificationSpec) string {
	kind := spec.Kind
	if kind == "" {
		kind = domain.KindInfo
	}
	timeout := q.defaultTimeoutMs
	if spec.TimeoutMs != nil && *spec.TimeoutMs >= 0 {
		timeout = *spec.TimeoutMs
	}

	n := domain.Notification{
		ID:        uuid.NewString(),
		Title:     spec.Title,
		Message:   spec.Message,
		Kind:      kind,
		TimeoutMs: timeout,
	}

	q.mu.Lock()
	q.items = append(q.items, n)
	if timeout > 0 {
		id := n.ID
		q.timers[id] = q.scheduler.AfterFunc(time.Duration(timeout)*time.Millisecond, func() {
			q.expire(id)
		})
	}
	drain := q.enqueueLocked()
	q.mu.Unlock()

	q.logger.Debug("notification pushed",
		zap.String("id", n.ID),
		zap.String("kind", string(n.Kind)),
		zap.Int("timeout_ms", timeout),
	)
	if drain {
		q.deliver()
	}
	return n.ID
}

// Dismiss quita el toast con ese id. Un id desconocido es un no-op.
func (q *Queue) Dismiss(id string) {
	q.remove(id, "notification dismissed")
}

func (q *Queue) expire(id string) {
	q.remove(id, "notification expired")
}

func (q *Queue) remove(id, reason string) {
	q.mu.Lock()
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	idx := -1
	for i, n := range q.items {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	drain := q.enqueueLocked()
	q.mu.Unlock()

	q.logger.Debug(reason, zap.String("id", id))
	if drain {
		q.deliver()
	}
}

// Items devuelve una copia de la secuencia actual.
func (q *Queue) Items() []domain.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Notification, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Subscribe registra un listener y devuelve la funcion para darlo de baja.
func (q *Queue) Subscribe(l Listener) (unsubscribe func()) {
	q.mu.Lock()
	id := q.nextSub
	q.nextSub++
	q.listeners[id] = l
	q.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			delete(q.listeners, id)
			q.mu.Unlock()
		})
	}
}

// enqueueLocked agrega la secuencia actual a las entregas pendientes. Devuelve
// true si el caller debe despacharlas.
func (q *Queue) enqueueLocked() bool {
	items := make([]domain.Notification, len(q.items))
	copy(items, q.items)
	listeners := make([]Listener, 0, len(q.listeners))
	for _, l := range q.listeners {
		listeners = append(listeners, l)
	}
	q.pending = append(q.pending, delivery{items: items, listeners: listeners})
	if q.delivering {
		return false
	}
	q.delivering = true
	return true
}

func (q *Queue) deliver() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.delivering = false
			q.mu.Unlock()
			return
		}
		d := q.pending[0]
		q.pending[0] = delivery{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		for _, l := range d.listeners {
			l(d.items)
		}
	}
}
