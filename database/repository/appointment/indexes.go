package appointmentRepo

import (
	"context"
	"fmt"
	"time"

	"procounsellor/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates lookup indexes plus partial unique indexes that back the
// booking invariants at the storage level. $in in a partial filter needs MongoDB 6.0+.
func (repo *MongoStore) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	active := bson.A{models.StatusPending, models.StatusConfirmed}
	appointmentIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "counsellorId", Value: 1}}},
		{
			Keys: bson.D{{Key: "counsellorId", Value: 1}, {Key: "date", Value: 1}, {Key: "startTime", Value: 1}},
			Options: options.Index().
				SetName("active_slot_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": bson.M{"$in": active}}),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "counsellorId", Value: 1}},
			Options: options.Index().
				SetName("pending_pair_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": models.StatusPending}),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "idempotencyKey", Value: 1}},
			Options: options.Index().
				SetName("idempotency_key_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotencyKey": bson.M{"$type": "string"}}),
		},
	}
	if _, err := repo.appointmentColl.Indexes().CreateMany(ctx, appointmentIndexes); err != nil {
		return fmt.Errorf("failed to create appointment indexes: %w", err)
	}

	idIndex := []mongo.IndexModel{{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)}}
	if _, err := repo.userColl.Indexes().CreateMany(ctx, idIndex); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	if _, err := repo.counsellorColl.Indexes().CreateMany(ctx, idIndex); err != nil {
		return fmt.Errorf("failed to create counsellor indexes: %w", err)
	}
	return nil
}
