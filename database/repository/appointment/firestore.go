package appointmentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"procounsellor/models"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Cloud Firestore. Documents are keyed by their
// identifier: counsellors/{userName}, users/{userName}, appointments/{appointmentId}.
type FirestoreStore struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreStore wraps a Firestore client.
func NewFirestoreStore(client *firestore.Client, logger *zap.Logger) *FirestoreStore {
	return &FirestoreStore{client: client, logger: logger}
}

func (s *FirestoreStore) counsellorRef(id string) *firestore.DocumentRef {
	return s.client.Collection(CounsellorsCollection).Doc(id)
}

func (s *FirestoreStore) userRef(id string) *firestore.DocumentRef {
	return s.client.Collection(UsersCollection).Doc(id)
}

func (s *FirestoreStore) appointmentRef(id string) *firestore.DocumentRef {
	return s.client.Collection(AppointmentsCollection).Doc(id)
}

func decodeCounsellor(snap *firestore.DocumentSnapshot, err error, id string) (*models.Counsellor, error) {
	if err != nil {
		return nil, fmt.Errorf("counsellor %s: %w", id, classifyFirestoreErr(err))
	}
	var c models.Counsellor
	if err := snap.DataTo(&c); err != nil {
		return nil, fmt.Errorf("decode counsellor %s: %w", id, err)
	}
	c.ID = snap.Ref.ID
	return &c, nil
}

func decodeUser(snap *firestore.DocumentSnapshot, err error, id string) (*models.User, error) {
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, classifyFirestoreErr(err))
	}
	var u models.User
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	u.ID = snap.Ref.ID
	return &u, nil
}

func decodeAppointment(snap *firestore.DocumentSnapshot) (*models.Appointment, error) {
	var a models.Appointment
	if err := snap.DataTo(&a); err != nil {
		return nil, fmt.Errorf("decode appointment %s: %w", snap.Ref.ID, err)
	}
	if a.ID == "" {
		a.ID = snap.Ref.ID
	}
	return &a, nil
}

func (s *FirestoreStore) GetCounsellor(ctx context.Context, id string) (*models.Counsellor, error) {
	snap, err := s.counsellorRef(id).Get(ctx)
	return decodeCounsellor(snap, err, id)
}

func (s *FirestoreStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	snap, err := s.userRef(id).Get(ctx)
	return decodeUser(snap, err, id)
}

func (s *FirestoreStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	snap, err := s.appointmentRef(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointment %s: %w", id, classifyFirestoreErr(err))
	}
	return decodeAppointment(snap)
}

// firestoreQuery chains one equality clause per filter field.
func (s *FirestoreStore) firestoreQuery(filter AppointmentFilter) firestore.Query {
	q := s.client.Collection(AppointmentsCollection).Query
	if filter.CounsellorID != "" {
		q = q.Where("counsellorId", "==", filter.CounsellorID)
	}
	if filter.UserID != "" {
		q = q.Where("userId", "==", filter.UserID)
	}
	if filter.Date != "" {
		q = q.Where("date", "==", filter.Date)
	}
	if filter.StartTime != "" {
		q = q.Where("startTime", "==", filter.StartTime)
	}
	if filter.IdempotencyKey != "" {
		q = q.Where("idempotencyKey", "==", filter.IdempotencyKey)
	}
	switch len(filter.Statuses) {
	case 0:
	case 1:
		q = q.Where("status", "==", string(filter.Statuses[0]))
	default:
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where("status", "in", statuses)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	return q
}

func decodeAll(snaps []*firestore.DocumentSnapshot) ([]models.Appointment, error) {
	out := make([]models.Appointment, 0, len(snaps))
	for _, snap := range snaps {
		a, err := decodeAppointment(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

func (s *FirestoreStore) FindAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	snaps, err := s.firestoreQuery(filter).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("error finding appointments: %w", classifyFirestoreErr(err))
	}
	return decodeAll(snaps)
}

// RunTransaction makes a single attempt. Firestore locks every document and query
// result read through the transaction, so a competing commit aborts one side.
func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{store: s, t: t})
	}, firestore.MaxAttempts(1))
	return classifyFirestoreErr(err)
}

func (s *FirestoreStore) Close(ctx context.Context) error {
	return s.client.Close()
}

// classifyFirestoreErr maps gRPC status codes onto the store sentinels.
func classifyFirestoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDuplicate) || errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case codes.Aborted:
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

type firestoreTx struct {
	store *FirestoreStore
	t     *firestore.Transaction
}

func (tx *firestoreTx) GetCounsellor(_ context.Context, id string) (*models.Counsellor, error) {
	snap, err := tx.t.Get(tx.store.counsellorRef(id))
	return decodeCounsellor(snap, err, id)
}

func (tx *firestoreTx) GetUser(_ context.Context, id string) (*models.User, error) {
	snap, err := tx.t.Get(tx.store.userRef(id))
	return decodeUser(snap, err, id)
}

func (tx *firestoreTx) GetAppointment(_ context.Context, id string) (*models.Appointment, error) {
	snap, err := tx.t.Get(tx.store.appointmentRef(id))
	if err != nil {
		return nil, fmt.Errorf("appointment %s: %w", id, classifyFirestoreErr(err))
	}
	return decodeAppointment(snap)
}

func (tx *firestoreTx) FindAppointments(_ context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	snaps, err := tx.t.Documents(tx.store.firestoreQuery(filter)).GetAll()
	if err != nil {
		return nil, fmt.Errorf("error finding appointments: %w", classifyFirestoreErr(err))
	}
	return decodeAll(snaps)
}

func (tx *firestoreTx) CreateAppointment(_ context.Context, appt *models.Appointment) error {
	return tx.t.Create(tx.store.appointmentRef(appt.ID), appt)
}

func (tx *firestoreTx) AddUserAppointment(_ context.Context, userID, appointmentID string) error {
	return tx.t.Update(tx.store.userRef(userID), []firestore.Update{
		{Path: "appointmentIds", Value: firestore.ArrayUnion(appointmentID)},
	})
}

func (tx *firestoreTx) AddCounsellorAppointment(_ context.Context, counsellorID, appointmentID string) error {
	return tx.t.Update(tx.store.counsellorRef(counsellorID), []firestore.Update{
		{Path: "appointmentIds", Value: firestore.ArrayUnion(appointmentID)},
	})
}

func (tx *firestoreTx) SetStatus(_ context.Context, appointmentID string, st models.AppointmentStatus, updatedAt time.Time) error {
	return tx.t.Update(tx.store.appointmentRef(appointmentID), []firestore.Update{
		{Path: "status", Value: string(st)},
		{Path: "updatedAt", Value: updatedAt},
	})
}
