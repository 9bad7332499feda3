package models

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

// ParseStatus returns the canonical status for s. "InProgress" is accepted
// as an alternate spelling of "In Progress".
func ParseStatus(s string) (Status, bool) {
	switch strings.TrimSpace(s) {
	case "Pending":
		return StatusPending, true
	case "In Progress", "InProgress":
		return StatusInProgress, true
	case "Completed":
		return StatusCompleted, true
	case "Cancelled":
		return StatusCancelled, true
	}
	return "", false
}

// Valid reports whether s is one of the canonical stored values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Branch is a snapshot of the service location taken at booking time.
type Branch struct {
	ID      string `json:"id" bson:"id"`
	Name    string `json:"name" bson:"name"`
	Address string `json:"address" bson:"address"`
	Phone   string `json:"phone" bson:"phone"`
}

type ServiceItem struct {
	ID       string `json:"id" bson:"id"`
	Name     string `json:"name" bson:"name"`
	Category string `json:"category" bson:"category"`
}

type Customer struct {
	Name      string `json:"name" bson:"name" validate:"required"`
	Email     string `json:"email" bson:"email" validate:"required"`
	Phone     string `json:"phone" bson:"phone" validate:"required"`
	VehicleNo string `json:"vehicleNo,omitempty" bson:"vehicleNo,omitempty"`
}

// Booking is a scheduled vehicle service appointment.
type Booking struct {
	BookingID string        `json:"bookingId" bson:"bookingId"`
	Branch    Branch        `json:"branch" bson:"branch"`
	Category  string        `json:"category" bson:"category"`
	Services  []ServiceItem `json:"services" bson:"services"`
	Date      time.Time     `json:"date" bson:"date"`
	TimeSlot  string        `json:"timeSlot" bson:"timeSlot"`
	Customer  Customer      `json:"customer" bson:"customer"`
	Status    Status        `json:"status" bson:"status"`
	Amount    string        `json:"amount" bson:"amount"` // display string, e.g. "$120"
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// CreatedBooking is the projection returned to the caller after creation.
type CreatedBooking struct {
	BookingID string    `json:"bookingId"`
	Customer  Customer  `json:"customer"`
	Date      time.Time `json:"date"`
	TimeSlot  string    `json:"timeSlot"`
	Branch    Branch    `json:"branch"`
	Status    Status    `json:"status"`
}

func (b *Booking) Created() *CreatedBooking {
	return &CreatedBooking{
		BookingID: b.BookingID,
		Customer:  b.Customer,
		Date:      b.Date,
		TimeSlot:  b.TimeSlot,
		Branch:    b.Branch,
		Status:    b.Status,
	}
}

// BookingView is the flattened row shown on the dashboard list.
type BookingView struct {
	ID       string  `json:"id"`
	Date     string  `json:"date"`
	Customer string  `json:"customer"`
	Vehicle  string  `json:"vehicle"`
	Service  string  `json:"service"`
	Status   Status  `json:"status"`
	Amount   string  `json:"amount"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Branch   string  `json:"branch"`
	TimeSlot string  `json:"timeSlot"`
	FullData Booking `json:"fullData"`
}

func NewBookingView(b Booking) BookingView {
	vehicle := b.Customer.VehicleNo
	if vehicle == "" {
		vehicle = "N/A"
	}
	names := make([]string, 0, len(b.Services))
	for _, s := range b.Services {
		names = append(names, s.Name)
	}
	return BookingView{
		ID:       b.BookingID,
		Date:     b.Date.UTC().Format(DateLayout),
		Customer: b.Customer.Name,
		Vehicle:  vehicle,
		Service:  strings.Join(names, ", "),
		Status:   b.Status,
		Amount:   b.Amount,
		Email:    b.Customer.Email,
		Phone:    b.Customer.Phone,
		Branch:   b.Branch.Name,
		TimeSlot: b.TimeSlot,
		FullData: b,
	}
}

// Stats holds booking counts, overall and per status.
type Stats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
}

const DateLayout = "2006-01-02"

// ParseDate accepts a plain calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
