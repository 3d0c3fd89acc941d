package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/catalogsearch/pkg/httputil"
)

type contextKeyType string

const operatorKey contextKeyType = "operator"

// OperatorToken guards index maintenance endpoints with a shared bearer
// token. An empty token disables the check.
func OperatorToken(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeUnauthorized(w, "missing or malformed authorization header")
				return
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				logger.WarnContext(r.Context(), "rejected operator token",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				)
				writeUnauthorized(w, "invalid operator token")
				return
			}
			ctx := context.WithValue(r.Context(), operatorKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsOperator reports whether the request passed OperatorToken.
func IsOperator(ctx context.Context) bool {
	ok, _ := ctx.Value(operatorKey).(bool)
	return ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="catalogsearch"`)
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: message},
	})
}
