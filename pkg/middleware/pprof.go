package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"net/netip"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/catalogsearch/pkg/httputil"
)

// RegisterPprof mounts the runtime profiles under /debug/pprof, reachable
// only from allowedCIDRs. With no CIDRs configured nothing is mounted and the
// paths fall through to the router's 404.
func RegisterPprof(r chi.Router, allowedCIDRs []string, logger *slog.Logger) {
	if len(allowedCIDRs) == 0 {
		return
	}
	r.Route("/debug/pprof", func(r chi.Router) {
		r.Use(IPAllowlist(allowedCIDRs, logger))
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.Get("/symbol", pprof.Symbol)
		r.Post("/symbol", pprof.Symbol)
		r.Get("/trace", pprof.Trace)
		r.Get("/*", pprof.Index)
	})
}

// IPAllowlist rejects requests whose peer address is outside prefixes with
// 403. Entries may be CIDRs or bare addresses; malformed ones are logged and
// ignored.
func IPAllowlist(prefixes []string, logger *slog.Logger) func(http.Handler) http.Handler {
	allowed := make([]netip.Prefix, 0, len(prefixes))
	for _, s := range prefixes {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			addr, addrErr := netip.ParseAddr(s)
			if addrErr != nil {
				logger.Warn("ignoring malformed allowlist entry",
					slog.String("entry", s),
					slog.String("error", err.Error()),
				)
				continue
			}
			p = netip.PrefixFrom(addr, addr.BitLen())
		}
		allowed = append(allowed, p.Masked())
	}

	permits := func(remote string) bool {
		host, _, err := net.SplitHostPort(remote)
		if err != nil {
			host = remote
		}
		addr, err := netip.ParseAddr(host)
		if err != nil {
			return false
		}
		addr = addr.Unmap()
		for _, p := range allowed {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if permits(r.RemoteAddr) {
				next.ServeHTTP(w, r)
				return
			}
			logger.Warn("request outside allowlist",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("path", r.URL.Path),
			)
			httputil.WriteJSON(w, http.StatusForbidden, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "FORBIDDEN", Message: "access restricted by IP allowlist"},
			})
		})
	}
}
