package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const forbiddenMessage = "Forbidden"

type failureBody struct {
	Fields  []FieldErrors
	Message string
}

// decodeFailureBody intenta, en orden, el shape de validacion y el de mensaje.
// Un body que no es JSON devuelve el valor cero.
func decodeFailureBody(body []byte) failureBody {
	var envelope struct {
		Errors  json.RawMessage `json:"errors"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return failureBody{}
	}
	out := failureBody{Fields: orderedFieldErrors(envelope.Errors)}
	if len(envelope.Message) > 0 {
		var msg string
		if err := json.Unmarshal(envelope.Message, &msg); err == nil {
			out.Message = msg
		}
	}
	return out
}

// orderedFieldErrors recorre el objeto errors token a token para conservar el
// orden de los campos tal como llegaron.
func orderedFieldErrors(raw json.RawMessage) []FieldErrors {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil
	}

	var out []FieldErrors
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return out
		}
		field, _ := keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return out
		}
		if msgs := stringsOf(value); len(msgs) > 0 {
			out = append(out, FieldErrors{Field: field, Messages: msgs})
		}
	}
	return out
}

func stringsOf(raw json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// successMessage devuelve el campo message de una respuesta exitosa, si existe.
func successMessage(body []byte) string {
	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Message) == 0 {
		return ""
	}
	var msg string
	if err := json.Unmarshal(envelope.Message, &msg); err != nil {
		return ""
	}
	return msg
}

// classify arma el RequestError de una falla. cause != nil significa que no
// llego respuesta. La precedencia de mensajes es: validacion, message (403
// reemplazado por "Forbidden"), y por ultimo el error de transporte.
func classify(method, path string, status int, body []byte, cause error, timeout time.Duration) *RequestError {
	reqErr := &RequestError{
		Method: method,
		Path:   path,
		Status: status,
		Err:    cause,
	}

	var parsed failureBody
	if cause == nil {
		parsed = decodeFailureBody(body)
	}

	switch {
	case len(parsed.Fields) > 0:
		reqErr.Fields = parsed.Fields
		for _, f := range parsed.Fields {
			reqErr.Messages = append(reqErr.Messages, f.Messages...)
		}
	case parsed.Message != "":
		if status == http.StatusForbidden {
			reqErr.Messages = []string{forbiddenMessage}
		} else {
			reqErr.Messages = []string{parsed.Message}
		}
	default:
		reqErr.Messages = []string{transportMessage(status, cause, timeout)}
	}

	switch {
	case cause != nil:
		reqErr.Kind = KindTransport
	case status == http.StatusUnauthorized:
		reqErr.Kind = KindAuthentication
	case status == http.StatusForbidden:
		reqErr.Kind = KindAuthorization
	case len(reqErr.Fields) > 0:
		reqErr.Kind = KindValidation
	default:
		reqErr.Kind = KindServer
	}
	return reqErr
}

func transportMessage(status int, cause error, timeout time.Duration) string {
	if cause == nil {
		return fmt.Sprintf("Request failed with status code %d", status)
	}
	if isTimeout(cause) {
		return fmt.Sprintf("timeout of %dms exceeded", timeout.Milliseconds())
	}
	return cause.Error()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
