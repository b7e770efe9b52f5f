package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/notrya/storefront/internal/domain/auth"
)

// APIKeyHeader carries the administrator API key.
const APIKeyHeader = "X-API-Key"

// RequireAPIKey authenticates requests by the HMAC-SHA256 of the key in
// APIKeyHeader and rejects keys lacking scope.
func (h *Handler) RequireAPIKey(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				writeMessage(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			hash := auth.HashKey(key, h.pepper)
			info, err := h.apikeys.FindByHash(r.Context(), hash)
			if err != nil {
				if !errors.Is(err, auth.ErrUnknownKey) {
					zctx.From(r.Context()).Error("API key lookup", zap.Error(err))
				}
				writeMessage(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// The stored row must carry exactly the hash we computed.
			if subtle.ConstantTimeCompare([]byte(hash), []byte(info.KeyHash)) != 1 {
				writeMessage(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !info.HasScope(scope) {
				writeMessage(w, http.StatusForbidden, "forbidden")
				return
			}

			ctx := zctx.With(r.Context(), zap.String("api_key_id", info.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
