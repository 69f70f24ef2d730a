package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func preflight(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders/submit", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	return req
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	handler := CORS([]string{"https://admin.bundlehub.test"})(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, preflight("https://admin.bundlehub.test"))
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.bundlehub.test" {
		t.Fatalf("expected origin echoed, got %q", got)
	}
	if resp.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials allowed for explicit origins")
	}

	other := httptest.NewRecorder()
	handler.ServeHTTP(other, preflight("https://evil.test"))
	if got := other.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestCORSWildcardDropsCredentials(t *testing.T) {
	handler := CORS([]string{"*"})(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, preflight("https://anywhere.test"))
	if resp.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("expected wildcard to allow origin")
	}
	if resp.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatal("credentials must be off with a wildcard origin")
	}
}
