package services

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/artesarh/rpb/reporting/query"
	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reporting_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"method", "route", "code"})

	requestDuration = promauto.NewSummaryVec(prometheus.SummaryOpts{
		Name: "reporting_http_request_duration_seconds",
		Help: "HTTP request latency by route.",
	}, []string{"method", "route"})
)

func requestMetrics(next http.Handler) http.Handler {
	handler := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		requestsTotal.WithLabelValues(r.Method, route, fmt.Sprint(status)).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	}
	return http.HandlerFunc(handler)
}

// recoverer turns a panic into the generic 500 envelope.
func recoverer(next http.Handler) http.Handler {
	handler := func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("panic handling request", "method", r.Method, "url", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
				utils.WriteErrorCode(w, fmt.Sprint(rec), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(handler)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	utils.WriteErrorCode(w, fmt.Sprintf("no route for %v %v", r.Method, r.URL.Path), http.StatusNotFound)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	utils.WriteErrorCode(w, fmt.Sprintf("method %v not allowed for %v", r.Method, r.URL.Path), http.StatusMethodNotAllowed)
}

// apiUrl builds an absolute url to a path below the api root.
func apiUrl(r *http.Request, format string, args ...interface{}) string {
	return utils.BaseUrl(r) + "/api" + fmt.Sprintf(format, args...)
}

// listHandler serves a paginated collection. render converts the page of
// rows into their response shape.
func listHandler[Row any, View any](db *gorm.DB, facade query.Facade, c query.Collection, render func([]Row) ([]View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := facade.Parse(r, c)
		if err != nil {
			utils.WriteError(w, err)
			return
		}

		var rows []Row
		page, err := query.List(db, c, params, &rows)
		if err != nil {
			utils.WriteError(w, err)
			return
		}

		data, err := render(rows)
		if err != nil {
			utils.WriteError(w, err)
			return
		}

		utils.WriteJsonResponse(w, query.NewPage(r, page, data))
	}
}

func codeLookupError(err error) error {
	if schema.IsNotFound(err) {
		return utils.CodedError(err, http.StatusNotFound)
	}
	return utils.CodedError(err, http.StatusInternalServerError)
}

func writeCreated(w http.ResponseWriter, data interface{}) {
	utils.WriteJsonResponseCode(w, http.StatusCreated, data)
}
