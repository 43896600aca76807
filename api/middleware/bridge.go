package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/sharebridge/sharebridge-backend/api/responses"
	pkgerrors "github.com/sharebridge/sharebridge-backend/pkg/errors"
	"github.com/sharebridge/sharebridge-backend/pkg/logger"
)

const bridgeKeyHeader = "X-Bridge-Key"

// BridgeKey authenticates payment bridge callbacks with a shared key.
func BridgeKey(key string, logg *logger.Logger) func(http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(key))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := []byte(strings.TrimSpace(r.Header.Get(bridgeKeyHeader)))
			if len(expected) == 0 || len(provided) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid bridge key"))
				return
			}
			ctx := context.WithValue(r.Context(), ctxCaller, bridgeCaller)
			if logg != nil {
				ctx = logg.WithField(ctx, "caller", bridgeCaller)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
