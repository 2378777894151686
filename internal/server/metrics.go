package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loom_http_requests_total",
			Help: "HTTP requests served, by route pattern and status code.",
		},
		[]string{"route", "code"},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loom_events_published_total",
			Help: "Change events published to workflow feeds, by type.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(httpRequests, eventsPublished)
}

// countRequests records one counter increment per served request, keyed
// by the chi route pattern rather than the raw path to keep cardinality
// bounded.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	})
}
