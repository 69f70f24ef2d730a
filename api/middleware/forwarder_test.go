package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/bundlehub-backend/pkg/security"
)

func TestForwarderSecret(t *testing.T) {
	hash, err := security.HashSecret("forwarder-pass", security.ArgonParams{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32})
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}

	cases := []struct {
		name   string
		hash   string
		secret string
		want   int
	}{
		{"matching secret", hash, "forwarder-pass", http.StatusOK},
		{"wrong secret", hash, "guess", http.StatusUnauthorized},
		{"missing header", hash, "", http.StatusUnauthorized},
		{"unconfigured", "", "forwarder-pass", http.StatusUnauthorized},
		{"garbled hash", "$argon2id$broken", "forwarder-pass", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		handler := ForwarderSecret(tc.hash, nil)(okHandler())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sms", nil)
		if tc.secret != "" {
			req.Header.Set(ForwarderSecretHeader, tc.secret)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.Code)
		}
	}
}
