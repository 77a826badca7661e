package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// Kind es la clase de falla de una llamada.
type Kind string

const (
	KindTransport      Kind = "transport"
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindServer         Kind = "server"
)

var (
	ErrTransport       = errors.New("transport failure")
	ErrValidation      = errors.New("validation failure")
	ErrUnauthenticated = errors.New("authentication failure")
	ErrForbidden       = errors.New("authorization failure")
	ErrServer          = errors.New("server failure")
)

func (k Kind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindValidation:
		return ErrValidation
	case KindAuthentication:
		return ErrUnauthenticated
	case KindAuthorization:
		return ErrForbidden
	default:
		return ErrServer
	}
}

// FieldErrors son los mensajes de validacion de un campo, en el orden del body.
type FieldErrors struct {
	Field    string
	Messages []string
}

// RequestError es la falla clasificada que el gateway devuelve al caller
// despues de notificar. Messages son exactamente los textos notificados.
type RequestError struct {
	Kind     Kind
	Method   string
	Path     string
	Status   int
	Messages []string
	Fields   []FieldErrors
	Err      error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, strings.Join(e.Messages, "; "))
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is permite errors.Is(err, gateway.ErrUnauthenticated) y similares.
func (e *RequestError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// AsRequestError extrae el RequestError de una cadena de errores.
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}
