package micropub

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		body   map[string]any
		expect string
	}{
		{name: "no credential", expect: ""},
		{name: "bearer header", header: "Bearer abc123", expect: "abc123"},
		{name: "case insensitive scheme", header: "bearer abc123", expect: "abc123"},
		{name: "wrong scheme", header: "Basic abc123", expect: ""},
		{name: "body token", body: map[string]any{"access_token": "fromBody"}, expect: "fromBody"},
		{name: "header wins over body", header: "Bearer fromHeader", body: map[string]any{"access_token": "fromBody"}, expect: "fromHeader"},
		{name: "non-string body token ignored", body: map[string]any{"access_token": 42}, expect: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			if got := ExtractToken(req, tc.body); got != tc.expect {
				t.Fatalf("ExtractToken() = %q, want %q", got, tc.expect)
			}
		})
	}
}
