package auth

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/artesarh/rpb/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func clientIp(r *http.Request) string {
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "Unknown"
}

// routeAttrs describes the matched route. It must be read after the handler
// ran, before that the nested routers have not filled in their params yet.
func routeAttrs(r *http.Request) []slog.Attr {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil
	}

	params := make([]interface{}, 0, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if key == "*" || i >= len(rctx.URLParams.Values) {
			continue
		}
		params = append(params, slog.String(key, rctx.URLParams.Values[i]))
	}

	return []slog.Attr{
		slog.String("route", rctx.RoutePattern()),
		slog.Group("path_params", params...),
	}
}

func queryAttr(r *http.Request) slog.Attr {
	values := r.URL.Query()
	params := make([]interface{}, 0, len(values))
	for k, v := range values {
		params = append(params, slog.String(k, strings.Join(v, ";")))
	}
	return slog.Group("query_params", params...)
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// AuditLogger records who touched which reporting resource. It writes one
// JSON line per authenticated request once the response status is known.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(stream io.Writer) AuditLogger {
	return AuditLogger{logger: slog.New(slog.NewJSONHandler(stream, nil))}
}

func (log AuditLogger) Middleware(next http.Handler) http.Handler {
	handler := func(w http.ResponseWriter, r *http.Request) {
		user, err := UserFromContext(r)
		if err != nil {
			utils.WriteErrorCode(w, err.Error(), http.StatusUnauthorized)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		attrs := []slog.Attr{
			slog.String("username", user.Username),
			slog.String("user_id", user.Id.String()),
			slog.String("client_ip", clientIp(r)),
			slog.String("scheme", utils.Scheme(r)),
			slog.String("method", r.Method),
			slog.Bool("write", isWrite(r.Method)),
			slog.String("url", r.URL.Path),
			queryAttr(r),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		}
		attrs = append(attrs, routeAttrs(r)...)

		log.logger.LogAttrs(r.Context(), slog.LevelInfo, "request", attrs...)
	}
	return http.HandlerFunc(handler)
}
