package appointmentRepo

import (
	"context"
	"errors"
	"os"
	"testing"

	"procounsellor/models"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type firestoreSeeder struct{ store *FirestoreStore }

func (f firestoreSeeder) seedCounsellor(t *testing.T, c models.Counsellor) {
	if c.AppointmentIDs == nil {
		c.AppointmentIDs = []string{}
	}
	if _, err := f.store.counsellorRef(c.ID).Set(context.Background(), c); err != nil {
		t.Fatalf("seed counsellor: %v", err)
	}
}

func (f firestoreSeeder) seedUser(t *testing.T, u models.User) {
	if u.AppointmentIDs == nil {
		u.AppointmentIDs = []string{}
	}
	if _, err := f.store.userRef(u.ID).Set(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

// The client library talks to the emulator when FIRESTORE_EMULATOR_HOST is set.
func TestFirestoreStoreContract(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "procounsellor-test")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	store := NewFirestoreStore(client, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	runStoreSuite(t, store, firestoreSeeder{store})
}

func TestClassifyFirestoreErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", status.Error(codes.NotFound, "missing"), ErrNotFound},
		{"aborted", status.Error(codes.Aborted, "contention"), ErrConflict},
		{"exists", status.Error(codes.AlreadyExists, "dup"), ErrDuplicate},
		{"unavailable", status.Error(codes.Unavailable, "down"), ErrUnavailable},
		{"deadline", context.DeadlineExceeded, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyFirestoreErr(tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
