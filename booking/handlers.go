package booking

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"servicedesk/middleware"
	"servicedesk/models"
	"servicedesk/utils"
	"servicedesk/validation"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc      *Service
	validate *validation.Validator
	log      *logrus.Logger
}

func NewHandler(svc *Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, validate: validation.New(), log: log}
}

// POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req models.CreateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := h.validate.Validate(&req); err != nil {
		h.fail(w, r, invalidPayload(err), "Failed to create booking")
		return
	}

	created, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "Failed to create booking")
		return
	}

	h.entry(r).WithField("bookingId", created.BookingID).Info("[booking] created")
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"success": true,
		"message": "Booking created successfully",
		"booking": created,
	})
}

// GET /api/bookings?status=&search=&limit=
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	views, err := h.svc.List(r.Context(), ParseListParams(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch bookings")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":  true,
		"count":    len(views),
		"bookings": views,
	})
}

// GET /api/bookings/:id
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	b, err := h.svc.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch booking")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "booking": b})
}

// PATCH /api/bookings/:id and /api/bookings/:id/status
func (h *Handler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req models.UpdateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	b, err := h.svc.UpdateStatus(r.Context(), ps.ByName("id"), req.Status)
	if err != nil {
		h.fail(w, r, err, "Failed to update booking")
		return
	}

	h.entry(r).WithFields(logrus.Fields{"bookingId": b.BookingID, "status": b.Status}).Info("[booking] status updated")
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"message": "Booking status updated",
		"booking": b,
	})
}

// DELETE /api/bookings/:id
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "Failed to delete booking")
		return
	}

	h.entry(r).WithField("bookingId", id).Info("[booking] deleted")
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"message": "Booking deleted successfully",
	})
}

// GET /api/bookings/stats/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	st, err := h.svc.Summary(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to fetch statistics")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "stats": st})
}

// GET /api/bookings/:id/summary. httprouter cannot register the static
// "stats" segment next to :id, so the summary route is matched here.
func (h *Handler) SubResource(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("id") != "stats" {
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
		return
	}
	h.Summary(w, r, ps)
}

// GET /api/bookings/:id/slip
func (h *Handler) BookingSlip(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	b, err := h.svc.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch booking")
		return
	}

	pdf, err := RenderSlip(b)
	if err != nil {
		h.entry(r).WithError(err).WithField("bookingId", b.BookingID).Error("[booking] slip rendering failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate booking slip")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=booking-"+b.BookingID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{
			"success": false,
			"message": "Invalid JSON payload",
			"error":   KindValidation.String(),
		})
		return false
	}
	return true
}

// fail writes the failure envelope for err. Storage internals are logged but
// never sent to the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	kind := KindOf(err)

	message := fallback
	var e *Error
	if errors.As(err, &e) && kind != KindPersistence {
		message = e.Message
	}

	body := utils.M{
		"success": false,
		"message": message,
		"error":   kind.String(),
	}
	if e != nil && len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}

	entry := h.entry(r).WithError(err).WithField("kind", kind.String())
	if kind == KindPersistence {
		entry.Error("[booking] " + fallback)
	} else {
		entry.Debug("[booking] request rejected")
	}

	utils.RespondWithJSON(w, kind.HTTPStatus(), body)
}

func (h *Handler) entry(r *http.Request) *logrus.Entry {
	return h.log.WithFields(logrus.Fields{
		"requestId": middleware.RequestIDFrom(r.Context()),
		"method":    r.Method,
		"path":      r.URL.Path,
	})
}
