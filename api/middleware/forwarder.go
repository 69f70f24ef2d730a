package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/bundlehub-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
	"github.com/angelmondragon/bundlehub-backend/pkg/security"
)

// ForwarderSecretHeader carries the shared secret configured in the SMS
// forwarder app.
const ForwarderSecretHeader = "X-Forwarder-Secret"

// ForwarderSecret admits requests whose secret matches the configured
// argon2id hash. An empty or unparsable hash rejects everything.
func ForwarderSecret(hash string, logg *logger.Logger) func(http.Handler) http.Handler {
	verifier, err := security.NewVerifier(hash)
	if err != nil && strings.TrimSpace(hash) != "" && logg != nil {
		logg.Error(context.Background(), "forwarder secret hash unusable, sms ingest disabled", err)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := strings.TrimSpace(r.Header.Get(ForwarderSecretHeader))
			switch {
			case verifier == nil || secret == "":
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "forwarder credentials required"))
			case !verifier.Verify(secret):
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid forwarder credentials"))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
