package micropub

import (
	"context"
	"net/http"
	"strings"
)

// Principal is the opaque identity mapping produced by the token verifier.
// It lives in the request context for the duration of handling and is never
// persisted.
type Principal map[string]any

type principalKeyType struct{}

var principalKey = principalKeyType{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the authenticated principal attached by the
// dispatcher, or nil when the request has not been authenticated.
func PrincipalFromContext(ctx context.Context) Principal {
	p, ok := ctx.Value(principalKey).(Principal)
	if !ok {
		return nil
	}

	return p
}

// ExtractToken pulls a bearer credential from the Authorization header or,
// failing that, a string-valued access_token field in the parsed body.
// The header takes precedence. Returns an empty string when no credential
// is present.
func ExtractToken(r *http.Request, body map[string]any) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}

	if body != nil {
		if token, ok := body["access_token"].(string); ok {
			return token
		}
	}

	return ""
}
