package domain

// NotificationKind clasifica un toast.
type NotificationKind string

const (
	KindInfo    NotificationKind = "info"
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
)

// DefaultNotificationTimeoutMs se usa cuando el push no indica timeout.
const DefaultNotificationTimeoutMs = 3000

// Notification es un mensaje transitorio para el usuario.
// TimeoutMs = 0 significa que nunca se descarta solo.
type Notification struct {
	ID        string           `json:"id"`
	Title     string           `json:"title,omitempty"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"kind"`
	TimeoutMs int              `json:"timeout_ms"`
}

// NotificationSpec es la entrada de push. Kind vacio equivale a info y
// TimeoutMs nil al timeout por defecto de la cola.
type NotificationSpec struct {
	Title     string
	Message   string
	Kind      NotificationKind
	TimeoutMs *int
}

// TimeoutMs construye el puntero para NotificationSpec.TimeoutMs.
func TimeoutMs(ms int) *int {
	return &ms
}
