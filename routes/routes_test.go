package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"

	"servicedesk/booking"
	"servicedesk/logger"
	"servicedesk/ratelim"
)

func newRouter(rps float64, burst int) *httprouter.Router {
	log := logger.Discard()
	svc := booking.NewService(booking.NewMemoryRepository())
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(NotFound)
	AddUtilityRoutes(router)
	AddBookingRoutes(router, booking.NewHandler(svc, log), ratelim.NewRateLimiter(rps, burst))
	AddLiveRoutes(router, booking.NewLiveHub(log, nil))
	return router
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router := newRouter(100, 100)
	for _, path := range []string{"/health", "/api/health"} {
		rec := serve(router, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "OK", body["status"])
		require.NotEmpty(t, body["timestamp"])
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	rec := serve(newRouter(100, 100), http.MethodGet, "/api/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"success":false,"message":"Route not found"}`, rec.Body.String())
}

func TestBookingLifecycleThroughRouter(t *testing.T) {
	router := newRouter(100, 100)

	rec := serve(router, http.MethodPost, "/api/bookings", `{
		"category": "Oil Change",
		"date": "2024-06-01",
		"timeSlot": "09:00-10:00",
		"customer": {"name": "Jane Doe", "email": "JANE@x.com", "phone": "555-1234"}
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Booking struct {
			BookingID string `json:"bookingId"`
		} `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Booking.BookingID

	rec = serve(router, http.MethodPatch, "/api/bookings/"+id, `{"status":"Cancelled"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/api/bookings/stats/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true,"stats":{"total":1,"pending":0,"inProgress":0,"completed":0,"cancelled":1}}`, rec.Body.String())

	rec = serve(router, http.MethodDelete, "/api/bookings/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/api/bookings/"+id, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWritesAreRateLimited(t *testing.T) {
	router := newRouter(0.001, 1)

	rec := serve(router, http.MethodDelete, "/api/bookings/BK-0000000", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, http.MethodDelete, "/api/bookings/BK-0000000", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// reads are not limited
	rec = serve(router, http.MethodGet, "/api/bookings", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newRouter(100, 100)
	serve(router, http.MethodGet, "/api/bookings", "")

	rec := serve(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "servicedesk_http_request_duration_seconds")
}
