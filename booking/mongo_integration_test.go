package booking

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"servicedesk/config"
	"servicedesk/db"
	"servicedesk/logger"
	"servicedesk/models"
	"servicedesk/utils"
)

// Runs against a real server: MONGODB_TEST_URI=mongodb://localhost:27017 go test ./booking
func TestMongoSetStatusAgainstServer(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn := db.NewConnector(config.MongoConfig{URI: uri, Database: "servicedesk_test", MaxPoolSize: 4}, logger.Discard())
	defer conn.Close(context.Background())

	coll, err := conn.Collection(ctx, "bookings_"+utils.GetUUID()[:8])
	require.NoError(t, err)
	defer coll.Drop(context.Background())

	repo := NewMongoRepository(coll)
	require.NoError(t, repo.EnsureIndexes(ctx))

	now := time.Now().UTC().Truncate(time.Millisecond)
	b := &models.Booking{
		BookingID: "BK-1234567",
		Services:  []models.ServiceItem{},
		Customer:  models.Customer{Name: "Jane Doe", Email: "jane@x.com", Phone: "555-1234"},
		Status:    models.StatusPending,
		Amount:    DefaultAmount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Insert(ctx, b))
	require.ErrorIs(t, repo.Insert(ctx, b), ErrConflict)

	// same instant as the insert
	first, err := repo.SetStatus(ctx, b.BookingID, models.StatusCompleted, now)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, first.Status)
	require.True(t, first.UpdatedAt.After(now))

	// a clock that went backwards still moves updatedAt forward
	second, err := repo.SetStatus(ctx, b.BookingID, models.StatusCancelled, now.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, second.UpdatedAt.After(first.UpdatedAt))
	require.Equal(t, now, second.CreatedAt)

	later := now.Add(time.Minute)
	third, err := repo.SetStatus(ctx, b.BookingID, models.StatusPending, later)
	require.NoError(t, err)
	require.Equal(t, later, third.UpdatedAt)

	_, err = repo.SetStatus(ctx, "BK-0000000", models.StatusCompleted, later)
	require.ErrorIs(t, err, ErrNotFound)

	n, err := repo.Count(ctx, models.StatusPending)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
