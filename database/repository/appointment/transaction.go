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
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// RunTransaction executes fn inside a single snapshot transaction. Concurrent
// transactions that append to the same counsellor document collide with a
// WriteConflict, which surfaces as ErrConflict.
func (repo *MongoStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sess, err := repo.client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", classifyMongoErr(err))
	}
	defer sess.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(txnOpts); err != nil {
			return err
		}
		if err := fn(sc, &mongoTx{repo: repo, sc: sc}); err != nil {
			if abortErr := sc.AbortTransaction(sc); abortErr != nil {
				repo.logger.Debug("abort transaction failed", zap.Error(abortErr))
			}
			return err
		}
		return sc.CommitTransaction(sc)
	})
	if err != nil {
		return classifyMongoErr(err)
	}
	return nil
}

// classifyMongoErr maps driver errors onto the store sentinels and leaves every
// other error untouched.
func classifyMongoErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDuplicate) || errors.Is(err, ErrUnavailable) {
		return err
	}
	hasLabel := func(label string) bool {
		var le mongo.LabeledError
		return errors.As(err, &le) && le.HasErrorLabel(label)
	}
	switch {
	case hasLabel("UnknownTransactionCommitResult"):
		return fmt.Errorf("%w: commit outcome unknown: %v", ErrUnavailable, err)
	case hasLabel("TransientTransactionError"):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

type mongoTx struct {
	repo *MongoStore
	sc   mongo.SessionContext
}

func (tx *mongoTx) GetCounsellor(_ context.Context, id string) (*models.Counsellor, error) {
	return findOne[models.Counsellor](tx.sc, tx.repo.counsellorColl, id)
}

func (tx *mongoTx) GetUser(_ context.Context, id string) (*models.User, error) {
	return findOne[models.User](tx.sc, tx.repo.userColl, id)
}

func (tx *mongoTx) GetAppointment(_ context.Context, id string) (*models.Appointment, error) {
	return findOne[models.Appointment](tx.sc, tx.repo.appointmentColl, id)
}

func (tx *mongoTx) FindAppointments(_ context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	return findAppointments(tx.sc, tx.repo.appointmentColl, filter)
}

func (tx *mongoTx) CreateAppointment(_ context.Context, appt *models.Appointment) error {
	if _, err := tx.repo.appointmentColl.InsertOne(tx.sc, appt); err != nil {
		return fmt.Errorf("insert appointment failed: %w", classifyMongoErr(err))
	}
	return nil
}

func (tx *mongoTx) addToSet(coll *mongo.Collection, ownerID, appointmentID string) error {
	res, err := coll.UpdateOne(tx.sc,
		bson.M{"id": ownerID},
		bson.M{"$addToSet": bson.M{"appointmentIds": appointmentID}},
	)
	if err != nil {
		return fmt.Errorf("embed appointment reference on %s %s failed: %w", coll.Name(), ownerID, classifyMongoErr(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %s: %w", coll.Name(), ownerID, ErrNotFound)
	}
	return nil
}

func (tx *mongoTx) AddUserAppointment(_ context.Context, userID, appointmentID string) error {
	return tx.addToSet(tx.repo.userColl, userID, appointmentID)
}

func (tx *mongoTx) AddCounsellorAppointment(_ context.Context, counsellorID, appointmentID string) error {
	return tx.addToSet(tx.repo.counsellorColl, counsellorID, appointmentID)
}

func (tx *mongoTx) SetStatus(_ context.Context, appointmentID string, status models.AppointmentStatus, updatedAt time.Time) error {
	res, err := tx.repo.appointmentColl.UpdateOne(tx.sc,
		bson.M{"id": appointmentID},
		bson.M{"$set": bson.M{"status": status, "updatedAt": updatedAt}},
	)
	if err != nil {
		return fmt.Errorf("error updating appointment %s: %w", appointmentID, classifyMongoErr(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("appointment %s: %w", appointmentID, ErrNotFound)
	}
	return nil
}
