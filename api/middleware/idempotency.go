package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/bundlehub-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/bundlehub-backend/pkg/redis"
)

const (
	replayTTL      = 24 * time.Hour
	moneyReplayTTL = 7 * 24 * time.Hour
	// a claim outlives any sane handler; a crashed replica frees the key when it lapses
	claimTTL = 2 * time.Minute

	idempotencyHeader = "Idempotency-Key"
)

type keyedRoute struct {
	method string
	prefix string
	suffix string
	money  bool
}

func (k keyedRoute) matches(method, path string) bool {
	if k.method != method || !strings.HasPrefix(path, k.prefix) {
		return false
	}
	if k.suffix == "" {
		return path == k.prefix
	}
	return len(path) > len(k.prefix)+len(k.suffix) && strings.HasSuffix(path, k.suffix)
}

var keyedRoutes = []keyedRoute{
	{method: http.MethodPost, prefix: "/api/v1/cart/items"},
	{method: http.MethodPost, prefix: "/api/v1/agent/storefront/orders/", suffix: "/approve"},
	{method: http.MethodPost, prefix: "/api/v1/admin/agent-profits/", suffix: "/send-cash"},
	{method: http.MethodPost, prefix: "/api/v1/orders/submit", money: true},
	{method: http.MethodPost, prefix: "/api/v1/admin/users/", suffix: "/topups", money: true},
	{method: http.MethodPost, prefix: "/api/v1/admin/agent-profits/", suffix: "/deposit", money: true},
}

// storedReply is what lives under an idempotency key. Pending marks a claim
// whose handler has not finished yet.
type storedReply struct {
	Pending     bool   `json:"pending,omitempty"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes the keyed money routes safe to retry. The first request
// claims the key, runs, and stores its reply; repeats get that reply back
// without touching the handler. A repeat while the first is still running,
// or with a different body, is refused. Replies are kept for replay, or a
// week on routes that move money.
func Idempotency(store pkgredis.IdempotencyStore, replay time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if replay <= 0 {
		replay = replayTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, keyed := routeTTL(r.Method, r.URL.Path, replay)
			if !keyed || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := requestHash(body)
			key := store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.Method+"|"+r.URL.Path, clientKey)

			claim, _ := json.Marshal(storedReply{Pending: true, RequestHash: hash})
			claimed, err := store.SetNX(ctx, key, string(claim), claimTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayOrRefuse(w, r, store, key, hash, logg)
				return
			}

			rec := &replyRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.statusOrOK()
			if status >= http.StatusInternalServerError {
				// free the key so the client can retry
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency claim", err)
				}
				return
			}
			reply, _ := json.Marshal(storedReply{
				RequestHash: hash,
				Status:      status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err := store.Set(ctx, key, string(reply), ttl); err != nil && logg != nil {
				logg.Error(logg.WithField(ctx, "idempotency_key", clientKey), "store idempotent reply", err)
			}
		})
	}
}

func replayOrRefuse(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, key, hash string, logg *logger.Logger) {
	ctx := r.Context()
	raw, err := store.Get(ctx, key)
	if pkgredis.IsMiss(err) {
		// claim lapsed between SetNX and Get
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotent reply"))
		return
	}
	var prior storedReply
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotent reply"))
		return
	}
	switch {
	case prior.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case prior.Pending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is in progress"))
	default:
		if prior.ContentType != "" {
			w.Header().Set("Content-Type", prior.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(prior.Status)
		_, _ = w.Write(prior.Body)
	}
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func routeTTL(method, path string, replay time.Duration) (time.Duration, bool) {
	for _, route := range keyedRoutes {
		if !route.matches(method, path) {
			continue
		}
		if route.money {
			return max(replay, moneyReplayTTL), true
		}
		return replay, true
	}
	return 0, false
}

type replyRecorder struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *replyRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *replyRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *replyRecorder) statusOrOK() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
