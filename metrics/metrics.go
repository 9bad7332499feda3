package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "servicedesk_http_request_duration_seconds",
		Help:    "Duration of HTTP requests by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "code"})

	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "servicedesk_bookings_created_total",
		Help: "Total number of bookings created",
	})

	StatusUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "servicedesk_booking_status_updates_total",
		Help: "Status updates by target status",
	}, []string{"status"})

	BookingsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "servicedesk_bookings_deleted_total",
		Help: "Total number of bookings deleted",
	})

	IDCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "servicedesk_booking_id_collisions_total",
		Help: "Generated booking ids rejected by the unique index",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "servicedesk_booking_events_published_total",
		Help: "Booking events published by outcome",
	}, []string{"type", "outcome"})

	LiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "servicedesk_live_clients",
		Help: "Connected live dashboard websocket clients",
	})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument records the duration of every call to next under route.
func Instrument(route string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r, ps)
		RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rec.code)).
			Observe(time.Since(start).Seconds())
	}
}
