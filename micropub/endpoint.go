// Package micropub implements the server-side request lifecycle of the
// Micropub protocol: classification of incoming requests into protocol
// operations, per-operation validation, authentication, dispatch to pluggable
// operation callbacks, and coercion of callback results into protocol
// compliant HTTP responses. Token verification, storage and file persistence
// are supplied by the application through Callbacks.
package micropub

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// Callbacks supplies the application logic behind an endpoint. VerifyToken is
// required; every other callback is optional. A nil operation callback causes
// the dispatcher to answer the corresponding request with invalid_request,
// except Config, which behaves as if it returned nothing.
type Callbacks struct {
	// VerifyToken validates a bearer credential. A Payload result becomes
	// the authenticated principal, a Raw result short-circuits the request,
	// and anything else is treated as verification failure.
	VerifyToken func(ctx context.Context, token string) Result

	// Extension runs after authentication and before standard handling on
	// the micropub endpoint. A non-nil result fully replaces standard
	// handling. MediaExtension is its counterpart on the media endpoint.
	Extension      func(ctx context.Context, r *http.Request) Result
	MediaExtension func(ctx context.Context, r *http.Request) Result

	Config   func(ctx context.Context, query url.Values) Result
	Source   func(ctx context.Context, url string, properties []string) Result
	Create   func(ctx context.Context, doc Document, files []File) Result
	Update   func(ctx context.Context, url string, body map[string]any) Result
	Delete   func(ctx context.Context, url string) Result
	Undelete func(ctx context.Context, url string) Result
	Media    func(ctx context.Context, file File) Result
}

// Limits bounds request body handling. Zero values take defaults.
type Limits struct {
	MaxPayloadSize     int64
	MaxFileSize        int64
	MaxMultipartMemory int64
}

const (
	defaultMaxPayloadSize     = 1 << 20
	defaultMaxFileSize        = 50 << 20
	defaultMaxMultipartMemory = 8 << 20
)

// Endpoint dispatches Micropub requests to the configured callbacks. It is
// stateless across requests; the authenticated principal lives in the request
// context only.
type Endpoint struct {
	cb     Callbacks
	limits Limits
}

// NewEndpoint builds an endpoint around the given callbacks.
func NewEndpoint(cb Callbacks, limits Limits) (*Endpoint, error) {
	if cb.VerifyToken == nil {
		return nil, errors.New("micropub: VerifyToken callback is required")
	}

	if limits.MaxPayloadSize <= 0 {
		limits.MaxPayloadSize = defaultMaxPayloadSize
	}
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = defaultMaxFileSize
	}
	if limits.MaxMultipartMemory <= 0 {
		limits.MaxMultipartMemory = defaultMaxMultipartMemory
	}

	return &Endpoint{cb: cb, limits: limits}, nil
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body parsedBody
	if r.Method == http.MethodPost {
		body = e.readBody(w, r)
		defer body.closeFiles()
	}

	r, ok := e.authenticate(w, r, body.data)
	if !ok {
		return
	}

	if e.cb.Extension != nil {
		if res := e.cb.Extension(r.Context(), r); res != nil {
			writeResult(w, r, res, http.StatusOK)
			return
		}
	}

	switch r.Method {
	case http.MethodGet:
		e.serveQuery(w, r)
	case http.MethodPost:
		e.servePost(w, r, body)
	default:
		writeResult(w, r, CodeInvalidRequest, 0)
	}
}

// authenticate extracts the bearer credential and runs the token verifier.
// On success it returns a request whose context carries the principal. On
// failure the response has already been written.
func (e *Endpoint) authenticate(w http.ResponseWriter, r *http.Request, body map[string]any) (*http.Request, bool) {
	token := ExtractToken(r, body)
	if token == "" {
		writeResult(w, r, CodeUnauthorized, 0)
		return r, false
	}

	switch v := e.cb.VerifyToken(r.Context(), token).(type) {
	case Raw:
		writeResult(w, r, v, http.StatusOK)
		return r, false
	case Payload:
		return r.WithContext(withPrincipal(r.Context(), Principal(v))), true
	default:
		writeResult(w, r, CodeForbidden, 0)
		return r, false
	}
}

func (e *Endpoint) serveQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	switch query.Get("q") {
	case "config":
		writeResult(w, r, e.callConfig(r.Context(), query), http.StatusOK)
	case "source":
		e.serveSource(w, r, query)
	case "syndicate-to":
		e.serveSyndicateTo(w, r, query)
	default:
		writeResult(w, r, CodeInvalidRequest, 0)
	}
}

func (e *Endpoint) callConfig(ctx context.Context, query url.Values) Result {
	if e.cb.Config == nil {
		return nil
	}

	return e.cb.Config(ctx, query)
}

func (e *Endpoint) serveSource(w http.ResponseWriter, r *http.Request, query url.Values) {
	target := query.Get("url")
	if target == "" {
		writeResult(w, r, Fail(CodeInvalidRequest, "source query requires a url parameter"), 0)
		return
	}

	properties := append(query["properties"], query["properties[]"]...)

	if e.cb.Source == nil {
		writeResult(w, r, CodeInvalidRequest, 0)
		return
	}

	res := e.cb.Source(r.Context(), target, properties)
	if res == nil {
		writeResult(w, r, Fail(CodeInvalidRequest, "post not found"), 0)
		return
	}

	writeResult(w, r, res, http.StatusOK)
}

// serveSyndicateTo answers q=syndicate-to from the config callback. Only the
// syndicate-to key of a payload result is echoed back; a raw result is
// assumed to answer the query on its own.
func (e *Endpoint) serveSyndicateTo(w http.ResponseWriter, r *http.Request, query url.Values) {
	switch v := e.callConfig(r.Context(), query).(type) {
	case Raw:
		writeResult(w, r, v, http.StatusOK)
	case Payload:
		if targets, ok := v["syndicate-to"]; ok {
			writeJSON(w, http.StatusOK, Payload{"syndicate-to": targets})
			return
		}
		writeJSON(w, http.StatusOK, Payload{"syndicate-to": []any{}})
	default:
		writeJSON(w, http.StatusOK, Payload{"syndicate-to": []any{}})
	}
}

func (e *Endpoint) servePost(w http.ResponseWriter, r *http.Request, body parsedBody) {
	if body.data == nil {
		writeResult(w, r, CodeInvalidRequest, 0)
		return
	}

	// The credential must never reach a callback or storage.
	delete(body.data, "access_token")

	if action, ok := body.data["action"].(string); ok {
		switch strings.ToLower(action) {
		case "delete":
			e.serveAction(w, r, body.data, e.cb.Delete, false)
		case "undelete":
			e.serveAction(w, r, body.data, e.cb.Undelete, true)
		case "update":
			e.serveUpdate(w, r, body.data)
		default:
			writeResult(w, r, CodeInvalidRequest, 0)
		}
		return
	}

	e.serveCreate(w, r, body)
}

// serveAction handles delete and undelete. Undelete may answer a Location
// result with 201 to signal that the post came back under a new URL; delete
// coerces anything that is not a bare success.
func (e *Endpoint) serveAction(w http.ResponseWriter, r *http.Request, data map[string]any, cb func(context.Context, string) Result, allowLocation bool) {
	target, ok := data["url"].(string)
	if !ok || target == "" {
		writeResult(w, r, Fail(CodeInvalidRequest, "action requires a url parameter"), 0)
		return
	}

	if cb == nil {
		writeResult(w, r, CodeInvalidRequest, 0)
		return
	}

	res := cb(r.Context(), target)

	switch v := res.(type) {
	case Done:
		writeNoContent(w)
	case Location:
		if allowLocation {
			writeCreated(w, string(v))
			return
		}
		writeResult(w, r, res, http.StatusOK)
	default:
		writeResult(w, r, res, http.StatusOK)
	}
}

func (e *Endpoint) serveUpdate(w http.ResponseWriter, r *http.Request, data map[string]any) {
	target, ok := data["url"].(string)
	if !ok || target == "" {
		writeResult(w, r, Fail(CodeInvalidRequest, "update requires a url parameter"), 0)
		return
	}

	// replace and add must map properties to values; delete may also be a
	// bare list of property names to drop.
	for _, key := range []string{"replace", "add"} {
		raw, present := data[key]
		if !present {
			continue
		}

		if _, ok := raw.(map[string]any); !ok {
			writeResult(w, r, Fail(CodeInvalidRequest, key+" must be an object"), 0)
			return
		}
	}

	if raw, present := data["delete"]; present {
		switch raw.(type) {
		case map[string]any, []any:
		default:
			writeResult(w, r, Fail(CodeInvalidRequest, "delete must be an object or an array"), 0)
			return
		}
	}

	if e.cb.Update == nil {
		writeResult(w, r, CodeInvalidRequest, 0)
		return
	}

	switch v := e.cb.Update(r.Context(), target, data).(type) {
	case Done:
		writeNoContent(w)
	case Location:
		writeCreated(w, string(v))
	default:
		writeResult(w, r, v, http.StatusOK)
	}
}

func (e *Endpoint) serveCreate(w http.ResponseWriter, r *http.Request, body parsedBody) {
	var doc Document
	if body.isJSON {
		doc = DocumentFromMap(body.data)
	} else {
		doc = NormalizeForm(body.data)
	}

	if e.cb.Create == nil {
		writeResult(w, r, CodeInvalidRequest, 0)
		return
	}

	switch v := e.cb.Create(r.Context(), doc, body.files).(type) {
	case Location:
		writeCreated(w, string(v))
	default:
		writeResult(w, r, v, http.StatusOK)
	}
}
