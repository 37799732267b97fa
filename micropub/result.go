package micropub

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Result is the value an operation callback hands back to the dispatcher.
// It is a sealed union: the concrete types are Done, Code, Payload, Location
// and Raw. A nil Result means "nothing"; how that is interpreted depends on
// the call site (default success for queries, "not handled" for extension
// hooks, "not found" for source queries).
type Result interface {
	isResult()
}

// Done signals bare success with no payload. Action call sites (delete,
// undelete, update) answer it with an empty 204 response.
type Done struct{}

// Payload is a JSON object response body. If it carries an "error" key whose
// value is one of the protocol error codes, response coercion overrides the
// status with that code's mapped status.
type Payload map[string]any

// Location signals that a resource now lives at the given URL. Create,
// update, undelete and media call sites answer it with an empty 201 response
// carrying a Location header.
type Location string

// Raw wraps a fully-formed response. It passes through coercion untouched,
// bypassing all status and body handling.
type Raw struct {
	Handler http.Handler
}

func (Done) isResult()     {}
func (Code) isResult()     {}
func (Payload) isResult()  {}
func (Location) isResult() {}
func (Raw) isResult()      {}

// Fail builds an error payload with the given code and a custom description.
func Fail(code Code, description string) Payload {
	return Payload{
		"error":             string(code),
		"error_description": description,
	}
}

// payloadCode extracts a protocol error code from a payload's "error" key,
// if present and valid.
func payloadCode(p Payload) (Code, bool) {
	raw, ok := p["error"]
	if !ok {
		return "", false
	}

	var code Code
	switch v := raw.(type) {
	case string:
		code = Code(v)
	case Code:
		code = v
	default:
		return "", false
	}

	if !code.Valid() {
		return "", false
	}

	return code, true
}

// writeResult coerces a callback result into a concrete HTTP response.
// This is the only place where error payloads are mapped to status codes.
func writeResult(w http.ResponseWriter, r *http.Request, res Result, defaultStatus int) {
	switch v := res.(type) {
	case Raw:
		if v.Handler == nil {
			writeJSON(w, defaultStatus, Payload{})
			return
		}
		v.Handler.ServeHTTP(w, r)
	case Code:
		writeJSON(w, v.Status(), Fail(v, v.Description()))
	case Payload:
		status := defaultStatus
		if code, ok := payloadCode(v); ok {
			status = code.Status()
		}
		writeJSON(w, status, v)
	case Done, nil:
		writeJSON(w, defaultStatus, Payload{})
	default:
		writeJSON(w, defaultStatus, v)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, fmt.Sprintf("failed to write response: %v", err), http.StatusInternalServerError)
	}
}

func writeCreated(w http.ResponseWriter, location string) {
	if location != "" {
		w.Header().Set("Location", location)
	}

	w.WriteHeader(http.StatusCreated)
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
