package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"servicedesk/models"
)

// MemoryRepository keeps bookings in process memory. It backs local runs
// started with MONGODB_URI=memory:// and the package tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	bookings map[string]models.Booking
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{bookings: make(map[string]models.Booking)}
}

func (r *MemoryRepository) Insert(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[b.BookingID]; exists {
		return conflict("Booking id already in use", nil)
	}
	r.bookings[b.BookingID] = clone(*b)
	return nil
}

func (r *MemoryRepository) Find(_ context.Context, f Filter) ([]models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Booking{}
	for _, b := range r.bookings {
		if f.Matches(&b) {
			out = append(out, clone(b))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].BookingID > out[j].BookingID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, notFound()
	}
	b = clone(b)
	return &b, nil
}

func (r *MemoryRepository) SetStatus(_ context.Context, id string, status models.Status, at time.Time) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, notFound()
	}
	if next := b.UpdatedAt.Add(time.Millisecond); !at.After(b.UpdatedAt) {
		at = next
	}
	b.Status = status
	b.UpdatedAt = at
	r.bookings[id] = b

	b = clone(b)
	return &b, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[id]; !ok {
		return notFound()
	}
	delete(r.bookings, id)
	return nil
}

func (r *MemoryRepository) Count(_ context.Context, status models.Status) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if status == "" {
		return int64(len(r.bookings)), nil
	}
	var n int64
	for _, b := range r.bookings {
		if b.Status == status {
			n++
		}
	}
	return n, nil
}

func clone(b models.Booking) models.Booking {
	b.Services = append(make([]models.ServiceItem, 0, len(b.Services)), b.Services...)
	return b
}
