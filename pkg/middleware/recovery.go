package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/utafrali/catalogsearch/pkg/httputil"
	"github.com/utafrali/catalogsearch/pkg/logger"
)

// Recovery converts a handler panic into the standard 500 envelope. The
// panic value and stack go to the request logger; the client only sees the
// correlation id. http.ErrAbortHandler is re-raised so the server can drop
// the connection as intended.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.WithContext(r.Context(), l).ErrorContext(r.Context(), "handler panicked",
					slog.Any("panic", rec),
					slog.String("route", r.Method+" "+r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				httputil.WriteError(w, r, fmt.Errorf("panic: %v", rec), l)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
