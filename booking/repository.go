package booking

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"servicedesk/models"
)

// Repository is the document-store capability the service depends on.
// Implementations return *Error values: KindNotFound when no booking has the
// given id, KindConflict when the bookingId is already taken and
// KindPersistence for anything else.
type Repository interface {
	Insert(ctx context.Context, b *models.Booking) error
	Find(ctx context.Context, f Filter) ([]models.Booking, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	// SetStatus sets status and moves updatedAt to at, or 1ms past the stored
	// value when at would not be later.
	SetStatus(ctx context.Context, id string, status models.Status, at time.Time) (*models.Booking, error)
	Delete(ctx context.Context, id string) error
	// Count counts bookings with status, or all bookings when status is empty.
	Count(ctx context.Context, status models.Status) (int64, error)
}

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

// EnsureIndexes creates the unique bookingId index and the query indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	idxs := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "bookingId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_booking_id"),
		},
		{Keys: bson.D{{Key: "date", Value: 1}}, Options: options.Index().SetName("date")},
		{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("status")},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("created_at")},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, idxs); err != nil {
		return persistence("Failed to create indexes", err)
	}
	return nil
}

func (r *MongoRepository) Insert(ctx context.Context, b *models.Booking) error {
	_, err := r.coll.InsertOne(ctx, b)
	if err == nil {
		return nil
	}
	if isDuplicateKeyError(err) {
		return conflict("Booking id already in use", err)
	}
	return persistence("Failed to create booking", err)
}

func (r *MongoRepository) Find(ctx context.Context, f Filter) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := r.coll.Find(ctx, f.BSON(), opts)
	if err != nil {
		return nil, persistence("Failed to fetch bookings", err)
	}
	defer cur.Close(ctx)

	bookings := []models.Booking{}
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, persistence("Failed to fetch bookings", err)
	}
	return bookings, nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	err := r.coll.FindOne(ctx, bson.M{"bookingId": id}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound()
	}
	if err != nil {
		return nil, persistence("Failed to fetch booking", err)
	}
	return &b, nil
}

func (r *MongoRepository) SetStatus(ctx context.Context, id string, status models.Status, at time.Time) (*models.Booking, error) {
	// pipeline update so updatedAt strictly increases even within one millisecond
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "status", Value: status},
			{Key: "updatedAt", Value: bson.D{{Key: "$max", Value: bson.A{
				at,
				bson.D{{Key: "$add", Value: bson.A{"$updatedAt", 1}}},
			}}}},
		}}},
	}

	var b models.Booking
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"bookingId": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound()
	}
	if err != nil {
		return nil, persistence("Failed to update booking", err)
	}
	return &b, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"bookingId": id})
	if err != nil {
		return persistence("Failed to delete booking", err)
	}
	if res.DeletedCount == 0 {
		return notFound()
	}
	return nil
}

func (r *MongoRepository) Count(ctx context.Context, status models.Status) (int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, persistence("Failed to count bookings", err)
	}
	return n, nil
}

// isDuplicateKeyError reports a unique index violation (code 11000).
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
