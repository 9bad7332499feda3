package models

import (
	"strings"
	"time"
)

// CreateBookingRequest is the payload accepted by the create endpoint.
// Any client supplied bookingId or status is ignored.
type CreateBookingRequest struct {
	Branch   Branch        `json:"branch"`
	Category string        `json:"category" validate:"required"`
	Services []ServiceItem `json:"services"`
	Date     string        `json:"date" validate:"required"`
	TimeSlot string        `json:"timeSlot" validate:"required"`
	Customer Customer      `json:"customer"`
	Amount   string        `json:"amount"`
	Status   string        `json:"status,omitempty"`
}

// Normalize trims text fields and lowercases the customer email.
func (r *CreateBookingRequest) Normalize() {
	r.Category = strings.TrimSpace(r.Category)
	r.Date = strings.TrimSpace(r.Date)
	r.TimeSlot = strings.TrimSpace(r.TimeSlot)
	r.Amount = strings.TrimSpace(r.Amount)
	r.Customer.Name = strings.TrimSpace(r.Customer.Name)
	r.Customer.Email = strings.ToLower(strings.TrimSpace(r.Customer.Email))
	r.Customer.Phone = strings.TrimSpace(r.Customer.Phone)
	r.Customer.VehicleNo = strings.TrimSpace(r.Customer.VehicleNo)
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// BookingEvent is published whenever a booking is created, changes status or is deleted.
type BookingEvent struct {
	Type      string    `json:"type"`
	BookingID string    `json:"bookingId"`
	Status    Status    `json:"status,omitempty"`
	Booking   *Booking  `json:"booking,omitempty"`
	At        time.Time `json:"at"`
}

const (
	EventCreated       = "created"
	EventStatusUpdated = "status_updated"
	EventDeleted       = "deleted"
)
