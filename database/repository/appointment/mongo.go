package appointmentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"procounsellor/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoStore implements Store on MongoDB. Transactions need a replica set or sharded cluster.
type MongoStore struct {
	client          *mongo.Client
	appointmentColl *mongo.Collection
	userColl        *mongo.Collection
	counsellorColl  *mongo.Collection
	logger          *zap.Logger
}

// NewMongoStore wraps an already connected client and ensures the booking indexes.
func NewMongoStore(client *mongo.Client, dbName string, logger *zap.Logger) *MongoStore {
	db := client.Database(dbName)
	repo := &MongoStore{
		client:          client,
		appointmentColl: db.Collection(AppointmentsCollection),
		userColl:        db.Collection(UsersCollection),
		counsellorColl:  db.Collection(CounsellorsCollection),
		logger:          logger,
	}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("failed to create appointment indexes", zap.Error(err))
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, id string) (*T, error) {
	var doc T
	if err := coll.FindOne(ctx, bson.M{"id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s %s: %w", coll.Name(), id, ErrNotFound)
		}
		return nil, fmt.Errorf("error fetching %s %s: %w", coll.Name(), id, classifyMongoErr(err))
	}
	return &doc, nil
}

func (repo *MongoStore) GetCounsellor(ctx context.Context, id string) (*models.Counsellor, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	return findOne[models.Counsellor](ctx, repo.counsellorColl, id)
}

func (repo *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	return findOne[models.User](ctx, repo.userColl, id)
}

func (repo *MongoStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	return findOne[models.Appointment](ctx, repo.appointmentColl, id)
}

func (repo *MongoStore) FindAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()
	return findAppointments(ctx, repo.appointmentColl, filter)
}

// appointmentQuery translates a filter into a bson query.
func appointmentQuery(filter AppointmentFilter) bson.M {
	q := bson.M{}
	if filter.CounsellorID != "" {
		q["counsellorId"] = filter.CounsellorID
	}
	if filter.UserID != "" {
		q["userId"] = filter.UserID
	}
	if filter.Date != "" {
		q["date"] = filter.Date
	}
	if filter.StartTime != "" {
		q["startTime"] = filter.StartTime
	}
	if filter.IdempotencyKey != "" {
		q["idempotencyKey"] = filter.IdempotencyKey
	}
	if len(filter.Statuses) > 0 {
		q["status"] = bson.M{"$in": filter.Statuses}
	}
	return q
}

func findAppointments(ctx context.Context, coll *mongo.Collection, filter AppointmentFilter) ([]models.Appointment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cursor, err := coll.Find(ctx, appointmentQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("error finding appointments: %w", classifyMongoErr(err))
	}
	defer cursor.Close(ctx)

	var appointments []models.Appointment
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("error decoding appointments: %w", classifyMongoErr(err))
	}
	return appointments, nil
}

func (repo *MongoStore) Close(ctx context.Context) error {
	return repo.client.Disconnect(ctx)
}
