package server

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// defaultHeaders sets the headers every response carries. Configured
// headers are applied last and win.
func defaultHeaders(serverName string, cacheControl bool, insert map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Server", serverName)
			if cacheControl {
				h.Set("Cache-Control", "no-cache")
			}
			for name, value := range insert {
				h.Set(name, value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog writes one line per request in the spirit of the combined log
// format.
func accessLog(logger zerolog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		hlog.NewHandler(logger),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Str("path", r.URL.RequestURI()).
				Str("proto", r.Proto).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("request")
		}),
		hlog.RemoteAddrHandler("remote"),
		hlog.RefererHandler("referer"),
		hlog.UserAgentHandler("user_agent"),
	}
}

// redirectHTTPS sends plain-text requests to the TLS listener, keeping a
// non-default TLS port.
func redirectHTTPS(tlsHost string) func(http.Handler) http.Handler {
	port := "443"
	if _, p, err := net.SplitHostPort(tlsHost); err == nil && p != "" {
		port = p
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS != nil {
				next.ServeHTTP(w, r)
				return
			}

			host := r.Host
			if h, _, err := net.SplitHostPort(r.Host); err == nil {
				host = h
			}
			switch {
			case port != "443":
				host = net.JoinHostPort(host, port)
			case strings.Contains(host, ":"):
				host = "[" + host + "]"
			}

			target := "https://" + host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
		})
	}
}
