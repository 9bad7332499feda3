package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"servicedesk/metrics"
	"servicedesk/models"
	"servicedesk/utils"
	"servicedesk/validation"
)

// MaxIDAttempts bounds identifier regeneration after unique index rejections.
const MaxIDAttempts = 5

const DefaultAmount = "$0"

// EventPublisher receives booking lifecycle events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, evt models.BookingEvent)
}

// StatsCache holds the last computed summary. Misses and failures fall back
// to counting.
//
// Entries are keyed by generation. Get reports the current generation even on
// a miss, Invalidate advances it, and Set stores under the generation it is
// given, so a summary overtaken by a mutation is never served. A negative
// generation means the cache could not be read and Set is skipped.
type StatsCache interface {
	Get(ctx context.Context) (st *models.Stats, gen int64, ok bool)
	Set(ctx context.Context, gen int64, st models.Stats)
	Invalidate(ctx context.Context)
}

type Service struct {
	repo     Repository
	validate *validation.Validator
	newID    func() string
	now      func() time.Time
	maxLimit int
	events   EventPublisher
	stats    StatsCache
}

type Option func(*Service)

func WithEventPublisher(p EventPublisher) Option { return func(s *Service) { s.events = p } }

func WithStatsCache(c StatsCache) Option { return func(s *Service) { s.stats = c } }

func WithMaxListLimit(n int) Option { return func(s *Service) { s.maxLimit = n } }

func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

func WithClock(f func() time.Time) Option { return func(s *Service) { s.now = f } }

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		validate: validation.New(),
		newID:    utils.GenerateBookingID,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		maxLimit: MaxListLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new Pending booking under a freshly generated id and
// returns its projection. Any status in the request is ignored.
func (s *Service) Create(ctx context.Context, req models.CreateBookingRequest) (*models.CreatedBooking, error) {
	req.Normalize()
	if err := s.validate.Validate(&req); err != nil {
		return nil, invalidPayload(err)
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, validationError("Missing or invalid fields", map[string]string{
			"date": "must be YYYY-MM-DD or an RFC 3339 timestamp",
		})
	}

	services := req.Services
	if services == nil {
		services = []models.ServiceItem{}
	}
	amount := req.Amount
	if amount == "" {
		amount = DefaultAmount
	}

	now := s.now()
	b := &models.Booking{
		Branch:    req.Branch,
		Category:  req.Category,
		Services:  services,
		Date:      date,
		TimeSlot:  req.TimeSlot,
		Customer:  req.Customer,
		Status:    models.StatusPending,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for attempt := 1; ; attempt++ {
		b.BookingID = s.newID()
		err := s.repo.Insert(ctx, b)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrConflict) {
			return nil, asPersistence("Failed to create booking", err)
		}
		metrics.IDCollisions.Inc()
		if attempt >= MaxIDAttempts {
			return nil, conflict("Could not allocate a unique booking id", err)
		}
	}

	metrics.BookingsCreated.Inc()
	s.changed(ctx, models.BookingEvent{
		Type:      models.EventCreated,
		BookingID: b.BookingID,
		Status:    b.Status,
		Booking:   b,
		At:        now,
	})
	return b.Created(), nil
}

// List returns the dashboard rows matching p, newest first. No match yields
// an empty, non-nil slice.
func (s *Service) List(ctx context.Context, p ListParams) ([]models.BookingView, error) {
	recs, err := s.repo.Find(ctx, TranslateQuery(p, s.maxLimit))
	if err != nil {
		return nil, asPersistence("Failed to fetch bookings", err)
	}
	views := make([]models.BookingView, 0, len(recs))
	for _, b := range recs {
		views = append(views, models.NewBookingView(b))
	}
	return views, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	b, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, asPersistence("Failed to fetch booking", err)
	}
	return b, nil
}

// UpdateStatus moves a booking to status. Any status may follow any other;
// an empty or unknown status is rejected before storage is touched.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*models.Booking, error) {
	if strings.TrimSpace(status) == "" {
		return nil, validationError("Status is required", map[string]string{"status": "is required"})
	}
	st, ok := models.ParseStatus(status)
	if !ok {
		return nil, validationError("Invalid status", map[string]string{
			"status": "must be one of Pending, In Progress, Completed, Cancelled",
		})
	}

	b, err := s.repo.SetStatus(ctx, strings.TrimSpace(id), st, s.now())
	if err != nil {
		return nil, asPersistence("Failed to update booking", err)
	}

	metrics.StatusUpdates.WithLabelValues(string(st)).Inc()
	s.changed(ctx, models.BookingEvent{
		Type:      models.EventStatusUpdated,
		BookingID: b.BookingID,
		Status:    b.Status,
		Booking:   b,
		At:        b.UpdatedAt,
	})
	return b, nil
}

// Delete permanently removes a booking.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.repo.Delete(ctx, id); err != nil {
		return asPersistence("Failed to delete booking", err)
	}

	metrics.BookingsDeleted.Inc()
	s.changed(ctx, models.BookingEvent{
		Type:      models.EventDeleted,
		BookingID: id,
		At:        s.now(),
	})
	return nil
}

// Summary counts all bookings and the bookings in each status. The five
// counts run concurrently and any failure fails the whole summary.
func (s *Service) Summary(ctx context.Context) (*models.Stats, error) {
	gen := int64(-1)
	if s.stats != nil {
		var cached *models.Stats
		var ok bool
		if cached, gen, ok = s.stats.Get(ctx); ok {
			return cached, nil
		}
	}

	var st models.Stats
	targets := []struct {
		status models.Status
		dst    *int64
	}{
		{"", &st.Total},
		{models.StatusPending, &st.Pending},
		{models.StatusInProgress, &st.InProgress},
		{models.StatusCompleted, &st.Completed},
		{models.StatusCancelled, &st.Cancelled},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			n, err := s.repo.Count(gctx, t.status)
			if err != nil {
				return err
			}
			*t.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, asPersistence("Failed to fetch statistics", err)
	}

	if s.stats != nil && gen >= 0 {
		s.stats.Set(ctx, gen, st)
	}
	return &st, nil
}

func (s *Service) changed(ctx context.Context, evt models.BookingEvent) {
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
	if s.events != nil {
		s.events.Publish(ctx, evt)
	}
}

func invalidPayload(err error) *Error {
	fields := validation.Fields(err)
	if fields == nil {
		fields = map[string]string{}
	}
	return validationError("Missing or invalid fields", fields)
}
