package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"servicedesk/models"
)

func bookingDoc(id string, status models.Status, created time.Time) bson.D {
	return bson.D{
		{Key: "bookingId", Value: id},
		{Key: "category", Value: "Oil Change"},
		{Key: "services", Value: bson.A{bson.D{{Key: "id", Value: "s1"}, {Key: "name", Value: "Oil Change"}}}},
		{Key: "date", Value: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{Key: "timeSlot", Value: "09:00-10:00"},
		{Key: "customer", Value: bson.D{
			{Key: "name", Value: "Jane Doe"},
			{Key: "email", Value: "jane@x.com"},
			{Key: "phone", Value: "555-1234"},
		}},
		{Key: "status", Value: status},
		{Key: "amount", Value: "$0"},
		{Key: "createdAt", Value: created},
		{Key: "updatedAt", Value: created},
	}
}

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	mt.Run("insert", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := repo.Insert(context.Background(), &models.Booking{BookingID: "BK-1234567", Status: models.StatusPending})
		require.NoError(mt, err)
	})

	mt.Run("insert duplicate id", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.Insert(context.Background(), &models.Booking{BookingID: "BK-1234567"})
		require.ErrorIs(mt, err, ErrConflict)
	})

	mt.Run("insert other failure", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad value",
		}))

		err := repo.Insert(context.Background(), &models.Booking{BookingID: "BK-1234567"})
		require.ErrorIs(mt, err, ErrPersistence)
	})

	mt.Run("find", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bookingDoc("BK-2222222", models.StatusCompleted, created.Add(time.Hour)),
			bookingDoc("BK-1111111", models.StatusPending, created),
		))

		got, err := repo.Find(context.Background(), Filter{Search: "jane", Limit: 10})
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		require.Equal(mt, "BK-2222222", got[0].BookingID)
		require.Equal(mt, models.StatusCompleted, got[0].Status)
		require.Equal(mt, "jane@x.com", got[1].Customer.Email)
		require.Len(mt, got[1].Services, 1)
	})

	mt.Run("find empty", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		got, err := repo.Find(context.Background(), Filter{Status: models.StatusCancelled})
		require.NoError(mt, err)
		require.NotNil(mt, got)
		require.Empty(mt, got)
	})

	mt.Run("find by id", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bookingDoc("BK-1111111", models.StatusInProgress, created)))

		b, err := repo.FindByID(context.Background(), "BK-1111111")
		require.NoError(mt, err)
		require.Equal(mt, models.StatusInProgress, b.Status)
		require.Equal(mt, created, b.CreatedAt)
	})

	mt.Run("find by id missing", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.FindByID(context.Background(), "BK-0000000")
		require.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("set status", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		doc := bookingDoc("BK-1111111", models.StatusCancelled, created)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: doc}})

		b, err := repo.SetStatus(context.Background(), "BK-1111111", models.StatusCancelled, created.Add(time.Minute))
		require.NoError(mt, err)
		require.Equal(mt, models.StatusCancelled, b.Status)
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}})
		require.NoError(mt, repo.Delete(context.Background(), "BK-1111111"))
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})
		require.ErrorIs(mt, repo.Delete(context.Background(), "BK-0000000"), ErrNotFound)
	})

	mt.Run("count", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "n", Value: int64(3)}}))

		n, err := repo.Count(context.Background(), models.StatusPending)
		require.NoError(mt, err)
		require.EqualValues(mt, 3, n)
	})

	mt.Run("count failure", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad pipeline",
		}))

		_, err := repo.Count(context.Background(), "")
		require.ErrorIs(mt, err, ErrPersistence)
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(mt, repo.EnsureIndexes(context.Background()))
	})
}

func TestIsDuplicateKeyError(t *testing.T) {
	require.False(t, isDuplicateKeyError(nil))
	require.False(t, isDuplicateKeyError(context.DeadlineExceeded))
}
