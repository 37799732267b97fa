package micropub

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
)

func okVerifier(ctx context.Context, token string) Result {
	return Payload{"me": "https://example.org/", "scope": "create update delete undelete media"}
}

func newTestEndpoint(t *testing.T, cb Callbacks) *Endpoint {
	t.Helper()

	if cb.VerifyToken == nil {
		cb.VerifyToken = okVerifier
	}

	e, err := NewEndpoint(cb, Limits{})
	if err != nil {
		t.Fatalf("NewEndpoint failed: %v", err)
	}

	return e
}

func authorize(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer abc123")
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("response body is not a JSON object: %v (%q)", err, rr.Body.String())
	}

	return out
}

func TestNewEndpoint_RequiresVerifier(t *testing.T) {
	if _, err := NewEndpoint(Callbacks{}, Limits{}); err == nil {
		t.Fatalf("expected error for missing VerifyToken callback")
	}
}

func TestMissingCredentialRejectedBeforeVerification(t *testing.T) {
	verifierCalled := false
	e := newTestEndpoint(t, Callbacks{
		VerifyToken: func(ctx context.Context, token string) Result {
			verifierCalled = true
			return Payload{}
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/?q=config", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing credential, got %d", rr.Code)
	}

	if verifierCalled {
		t.Fatalf("verifier should not run when no credential is present")
	}

	body := decodeBody(t, rr)
	if body["error"] != "unauthorized" {
		t.Fatalf("expected unauthorized error code, got %#v", body["error"])
	}

	if _, ok := body["error_description"].(string); !ok {
		t.Fatalf("expected error_description in body, got %#v", body)
	}
}

func TestRejectedTokenIsForbidden(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{
		VerifyToken: func(ctx context.Context, token string) Result { return nil },
	})

	req := authorize(httptest.NewRequest(http.MethodGet, "/?q=config", nil))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for rejected token, got %d", rr.Code)
	}

	if body := decodeBody(t, rr); body["error"] != "forbidden" {
		t.Fatalf("expected forbidden error code, got %#v", body["error"])
	}
}

func TestVerifierRawShortCircuits(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{
		VerifyToken: func(ctx context.Context, token string) Result {
			return Raw{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			})}
		},
		Config: func(ctx context.Context, query url.Values) Result {
			t.Fatalf("config callback should not run")
			return nil
		},
	})

	req := authorize(httptest.NewRequest(http.MethodGet, "/?q=config", nil))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected raw verifier response to pass through, got %d", rr.Code)
	}
}

func TestBodyAccessTokenAuthenticates(t *testing.T) {
	var seenToken string
	var created *Document

	e := newTestEndpoint(t, Callbacks{
		VerifyToken: func(ctx context.Context, token string) Result {
			seenToken = token
			return Payload{"me": "https://example.org/"}
		},
		Create: func(ctx context.Context, doc Document, files []File) Result {
			created = &doc
			return Location("https://example.org/posts/hello")
		},
	})

	body := "h=entry&content=hello&access_token=bodytoken"
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if seenToken != "bodytoken" {
		t.Fatalf("expected body access_token to reach verifier, got %q", seenToken)
	}

	if created == nil {
		t.Fatalf("expected create callback to run")
	}

	if _, exists := created.Properties["access_token"]; exists {
		t.Fatalf("access_token must be stripped before the document is built")
	}
}

func TestHeaderCredentialTakesPrecedence(t *testing.T) {
	var seenToken string
	e := newTestEndpoint(t, Callbacks{
		VerifyToken: func(ctx context.Context, token string) Result {
			seenToken = token
			return Payload{}
		},
		Create: func(ctx context.Context, doc Document, files []File) Result { return Done{} },
	})

	body := "h=entry&access_token=bodytoken"
	req := authorize(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if seenToken != "abc123" {
		t.Fatalf("expected header token to win, verifier saw %q", seenToken)
	}
}

func TestConfigQuery(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{
		Config: func(ctx context.Context, query url.Values) Result {
			return Payload{
				"media-endpoint": "https://example.org/media",
				"syndicate-to":   []any{},
			}
		},
	})

	req := authorize(httptest.NewRequest(http.MethodGet, "/?q=config", nil))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	body := decodeBody(t, rr)
	if body["media-endpoint"] != "https://example.org/media" {
		t.Fatalf("unexpected config body: %#v", body)
	}
}

func TestConfigQueryWithoutCallback(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{})

	req := authorize(httptest.NewRequest(http.MethodGet, "/?q=config", nil))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for config without callback, got %d", rr.Code)
	}

	if body := decodeBody(t, rr); len(body) != 0 {
		t.Fatalf("expected empty object, got %#v", body)
	}
}

func TestUnknownQueryRejected(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{})

	req := authorize(httptest.NewRequest(http.MethodGet, "/?q=bogus", nil))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown query, got %d", rr.Code)
	}
}

func TestSourceQueryRequiresURL(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{
		Source: func(ctx context.Context, url string, properties []string) Result {
			t.Fatalf("source callback should not run without a url")
			return nil
		},
	})

	req := authorize(httptest.NewRequest(http.MethodGet, "/?q=source", nil))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for source without url, got %d", rr.Code)
	}

	if body := decodeBody(t, rr); body["error"] != "invalid_request" {
		t.Fatalf("expected invalid_request, got %#v", body["error"])
	}
}

func TestSourceQueryNotFound(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{
		Source: func(ctx context.Context, url string, properties []string) Result { return nil },
	})

	req := authorize(httptest.NewRequest(http.MethodGet, "/?q=source&url=https://example.org/missing", nil))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing post, got %d", rr.Code)
	}
}

func TestSourceQueryPassesProperties(t *testing.T) {
	var gotURL string
	var gotProps []string

	e := newTestEndpoint(t, Callbacks{
		Source: func(ctx context.Context, url string, properties []string) Result {
			gotURL = url
			gotProps = properties
			return Payload{"properties": map[string]any{"content": []any{"hello"}}}
		},
	})

	target := "/?q=source&url=https://example.org/post&properties[]=content&properties[]=category"
	req := authorize(httptest.NewRequest(http.MethodGet, target, nil))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	if gotURL != "https://example.org/post" {
		t.Fatalf("unexpected url: %q", gotURL)
	}

	if !reflect.DeepEqual(gotProps, []string{"content", "category"}) {
		t.Fatalf("unexpected properties: %#v", gotProps)
	}
}

func TestSyndicateToEchoesOnlyThatKey(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{
		Config: func(ctx context.Context, query url.Values) Result {
			return Payload{
				"media-endpoint": "https://example.org/media",
				"syndicate-to":   []any{map[string]any{"uid": "https://social.example/", "name": "Social"}},
			}
		},
	})

	req := authorize(httptest.NewRequest(http.MethodGet, "/?q=syndicate-to", nil))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	body := decodeBody(t, rr)
	if _, exists := body["media-endpoint"]; exists {
		t.Fatalf("syndicate-to response must not include other config keys: %#v", body)
	}

	targets, ok := body["syndicate-to"].([]any)
	if !ok || len(targets) != 1 {
		t.Fatalf("unexpected syndicate-to value: %#v", body["syndicate-to"])
	}
}

func TestSyndicateToEmptyWithoutConfig(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{})

	req := authorize(httptest.NewRequest(http.MethodGet, "/?q=syndicate-to", nil))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	body := decodeBody(t, rr)
	targets, ok := body["syndicate-to"].([]any)
	if !ok || len(targets) != 0 {
		t.Fatalf("expected empty syndicate-to list, got %#v", body["syndicate-to"])
	}
}

func TestCreateFromForm(t *testing.T) {
	var created Document

	e := newTestEndpoint(t, Callbacks{
		Create: func(ctx context.Context, doc Document, files []File) Result {
			created = doc
			return Location("https://example.org/posts/hello")
		},
	})

	req := authorize(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("h=entry&content=hello")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}

	if got := rr.Header().Get("Location"); got != "https://example.org/posts/hello" {
		t.Fatalf("unexpected Location header: %q", got)
	}

	if rr.Body.Len() != 0 {
		t.Fatalf("expected empty body on create, got %q", rr.Body.String())
	}

	want := Document{
		Type:       []string{"h-entry"},
		Properties: map[string][]any{"content": {"hello"}},
	}
	if !reflect.DeepEqual(created, want) {
		t.Fatalf("unexpected document: %#v", created)
	}
}

func TestCreateFromJSON(t *testing.T) {
	var created Document

	e := newTestEndpoint(t, Callbacks{
		Create: func(ctx context.Context, doc Document, files []File) Result {
			created = doc
			return Location("https://example.org/posts/hello")
		},
	})

	payload := map[string]any{
		"type":       []any{"h-entry"},
		"properties": map[string]any{"name": []any{"Hello World"}},
	}
	b, _ := json.Marshal(payload)
	req := authorize(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b)))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}

	if !reflect.DeepEqual(created.Type, []string{"h-entry"}) {
		t.Fatalf("unexpected type: %#v", created.Type)
	}

	if !reflect.DeepEqual(created.Properties["name"], []any{"Hello World"}) {
		t.Fatalf("unexpected name property: %#v", created.Properties["name"])
	}
}

func TestCreateErrorCodeMapsToStatus(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{
		Create: func(ctx context.Context, doc Document, files []File) Result {
			return Fail(CodeInsufficientScope, "create scope is required")
		},
	})

	req := authorize(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("h=entry")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for insufficient_scope, got %d", rr.Code)
	}

	body := decodeBody(t, rr)
	if body["error"] != "insufficient_scope" || body["error_description"] != "create scope is required" {
		t.Fatalf("unexpected error body: %#v", body)
	}
}

func TestCreateWithoutCallback(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{})

	req := authorize(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("h=entry")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without create callback, got %d", rr.Code)
	}
}

func TestDeleteAction(t *testing.T) {
	var deleted string

	e := newTestEndpoint(t, Callbacks{
		Delete: func(ctx context.Context, url string) Result {
			deleted = url
			return Done{}
		},
	})

	req := authorize(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("action=delete&url=https://example.org/post")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	if rr.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rr.Body.String())
	}

	if deleted != "https://example.org/post" {
		t.Fatalf("unexpected delete url: %q", deleted)
	}
}

func TestDeleteActionRequiresURL(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{
		Delete: func(ctx context.Context, url string) Result {
			t.Fatalf("delete callback should not run without a url")
			return nil
		},
	})

	req := authorize(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("action=delete")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for delete without url, got %d", rr.Code)
	}
}

func TestDeleteInsufficientScope(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{
		Delete: func(ctx context.Context, url string) Result {
			return Fail(CodeInsufficientScope, "delete scope is required")
		},
	})

	req := authorize(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("action=delete&url=https://example.org/post")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestUndeleteMayRelocate(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{
		Undelete: func(ctx context.Context, url string) Result {
			return Location("https://example.org/posts/restored")
		},
	})

	req := authorize(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("action=undelete&url=https://example.org/post")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 for relocated undelete, got %d", rr.Code)
	}

	if got := rr.Header().Get("Location"); got != "https://example.org/posts/restored" {
		t.Fatalf("unexpected Location header: %q", got)
	}
}

func TestUnknownActionRejected(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{})

	req := authorize(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("action=bogus&url=https://example.org/post")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", rr.Code)
	}
}

func TestUpdateValidatesChangeSets(t *testing.T) {
	cases := []struct {
		name        string
		payload     map[string]any
		description string
	}{
		{
			name: "scalar replace",
			payload: map[string]any{
				"action":  "update",
				"url":     "https://example.org/post",
				"replace": "not-an-object",
			},
			description: "replace must be an object",
		},
		{
			name: "array replace",
			payload: map[string]any{
				"action":  "update",
				"url":     "https://example.org/post",
				"replace": []any{"content"},
			},
			description: "replace must be an object",
		},
		{
			name: "array add",
			payload: map[string]any{
				"action": "update",
				"url":    "https://example.org/post",
				"add":    []any{"category"},
			},
			description: "add must be an object",
		},
		{
			name: "scalar delete",
			payload: map[string]any{
				"action": "update",
				"url":    "https://example.org/post",
				"delete": "category",
			},
			description: "delete must be an object or an array",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEndpoint(t, Callbacks{
				Update: func(ctx context.Context, url string, body map[string]any) Result {
					t.Fatalf("update callback should not run for malformed change sets")
					return nil
				},
			})

			b, _ := json.Marshal(tc.payload)
			req := authorize(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b)))
			req.Header.Set("Content-Type", "application/json")

			rr := httptest.NewRecorder()
			e.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}

			body := decodeBody(t, rr)
			if body["error_description"] != tc.description {
				t.Fatalf("unexpected description: %#v", body["error_description"])
			}
		})
	}
}

func TestUpdateDeleteAcceptsPropertyList(t *testing.T) {
	var gotBody map[string]any

	e := newTestEndpoint(t, Callbacks{
		Update: func(ctx context.Context, url string, body map[string]any) Result {
			gotBody = body
			return Done{}
		},
	})

	payload := map[string]any{
		"action": "update",
		"url":    "https://example.org/post",
		"delete": []any{"category"},
	}
	b, _ := json.Marshal(payload)
	req := authorize(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b)))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for list-valued delete, got %d", rr.Code)
	}

	if _, ok := gotBody["delete"].([]any); !ok {
		t.Fatalf("expected delete list to reach the callback, got %#v", gotBody)
	}
}

func TestUpdateSuccessNoContent(t *testing.T) {
	var gotBody map[string]any

	e := newTestEndpoint(t, Callbacks{
		Update: func(ctx context.Context, url string, body map[string]any) Result {
			gotBody = body
			return Done{}
		},
	})

	payload := map[string]any{
		"action":  "update",
		"url":     "https://example.org/post",
		"replace": map[string]any{"content": []any{"updated"}},
	}
	b, _ := json.Marshal(payload)
	req := authorize(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b)))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	if _, ok := gotBody["replace"].(map[string]any); !ok {
		t.Fatalf("expected replace change set to reach the callback, got %#v", gotBody)
	}
}

func TestUpdateMayRelocate(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{
		Update: func(ctx context.Context, url string, body map[string]any) Result {
			return Location("https://example.org/posts/renamed")
		},
	})

	payload := map[string]any{
		"action":  "update",
		"url":     "https://example.org/post",
		"replace": map[string]any{"name": []any{"Renamed"}},
	}
	b, _ := json.Marshal(payload)
	req := authorize(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b)))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 for relocated update, got %d", rr.Code)
	}

	if got := rr.Header().Get("Location"); got != "https://example.org/posts/renamed" {
		t.Fatalf("unexpected Location header: %q", got)
	}
}

func TestUnsupportedMethodRejected(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{})

	req := authorize(httptest.NewRequest(http.MethodPut, "/", nil))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported method, got %d", rr.Code)
	}
}

func TestExtensionReplacesStandardHandling(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{
		Extension: func(ctx context.Context, r *http.Request) Result {
			if r.URL.Query().Get("q") == "custom" {
				return Payload{"custom": true}
			}
			return nil
		},
	})

	req := authorize(httptest.NewRequest(http.MethodGet, "/?q=custom", nil))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from extension, got %d", rr.Code)
	}

	if body := decodeBody(t, rr); body["custom"] != true {
		t.Fatalf("unexpected extension body: %#v", body)
	}

	// A declined extension falls through to standard handling.
	req = authorize(httptest.NewRequest(http.MethodGet, "/?q=bogus", nil))
	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected standard handling after extension declined, got %d", rr.Code)
	}
}

func TestPrincipalReachesCallbacks(t *testing.T) {
	e := newTestEndpoint(t, Callbacks{
		VerifyToken: func(ctx context.Context, token string) Result {
			return Payload{"me": "https://example.org/", "scope": "create"}
		},
		Create: func(ctx context.Context, doc Document, files []File) Result {
			p := PrincipalFromContext(ctx)
			if p == nil || p["scope"] != "create" {
				t.Fatalf("expected principal in callback context, got %#v", p)
			}
			return Done{}
		},
	})

	req := authorize(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("h=entry")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
