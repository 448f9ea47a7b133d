package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func preflight(h http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/events", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-Event-Pass")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsListedSubdomainPattern(t *testing.T) {
	h := CORS([]string{"https://*.snapwall.example"})(okHandler(nil))

	rec := preflight(h, "https://party.snapwall.example")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://party.snapwall.example" {
		t.Fatalf("expected origin echoed, got %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("expected credentials for explicit origins")
	}

	rec = preflight(h, "https://evil.example")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestCORSWildcardDropsCredentials(t *testing.T) {
	h := CORS([]string{"*"})(okHandler(nil))
	rec := preflight(h, "https://anywhere.example")
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected wildcard origin to be allowed")
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatalf("credentials must not be allowed with wildcard origins")
	}
}
