package routes

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"servicedesk/booking"
	"servicedesk/metrics"
	"servicedesk/ratelim"
	"servicedesk/utils"
)

// AddBookingRoutes registers the booking API. Writes are rate limited per IP.
func AddBookingRoutes(router *httprouter.Router, h *booking.Handler, rl *ratelim.RateLimiter) {
	router.GET("/api/bookings", metrics.Instrument("/api/bookings", h.ListBookings))
	router.POST("/api/bookings", metrics.Instrument("/api/bookings", rl.Limit(h.CreateBooking)))
	router.GET("/api/bookings/:id", metrics.Instrument("/api/bookings/:id", h.GetBooking))
	router.PATCH("/api/bookings/:id", metrics.Instrument("/api/bookings/:id", rl.Limit(h.UpdateBookingStatus)))
	router.PATCH("/api/bookings/:id/status", metrics.Instrument("/api/bookings/:id/status", rl.Limit(h.UpdateBookingStatus)))
	router.DELETE("/api/bookings/:id", metrics.Instrument("/api/bookings/:id", rl.Limit(h.DeleteBooking)))
	router.GET("/api/bookings/:id/summary", metrics.Instrument("/api/bookings/stats/summary", h.SubResource))
	router.GET("/api/bookings/:id/slip", metrics.Instrument("/api/bookings/:id/slip", h.BookingSlip))
}

// AddLiveRoutes registers the dashboard websocket feed.
func AddLiveRoutes(router *httprouter.Router, hub *booking.LiveHub) {
	router.GET("/api/live/bookings", hub.ServeWS)
}

// AddUtilityRoutes registers health and metrics endpoints.
func AddUtilityRoutes(router *httprouter.Router) {
	router.GET("/health", Health)
	router.GET("/api/health", Health)
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())
}

// Health is a simple liveness check.
func Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"status":    "OK",
		"message":   "Server is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// NotFound answers unknown routes with the JSON envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithError(w, http.StatusNotFound, "Route not found")
}
