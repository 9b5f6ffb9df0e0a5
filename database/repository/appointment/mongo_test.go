package appointmentRepo

import (
	"context"
	"os"
	"testing"
	"time"

	"procounsellor/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap/zaptest"
)

type mongoSeeder struct{ store *MongoStore }

func (m mongoSeeder) seedCounsellor(t *testing.T, c models.Counsellor) {
	if c.AppointmentIDs == nil {
		c.AppointmentIDs = []string{}
	}
	if _, err := m.store.counsellorColl.InsertOne(context.Background(), c); err != nil {
		t.Fatalf("seed counsellor: %v", err)
	}
}

func (m mongoSeeder) seedUser(t *testing.T, u models.User) {
	if u.AppointmentIDs == nil {
		u.AppointmentIDs = []string{}
	}
	if _, err := m.store.userColl.InsertOne(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

// Needs a replica set, e.g. MONGO_TEST_URI=mongodb://localhost:27017/?replicaSet=rs0
func TestMongoStoreContract(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	store := NewMongoStore(client, "procounsellor_test", zaptest.NewLogger(t))
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	runStoreSuite(t, store, mongoSeeder{store})
}

func TestAppointmentQuery(t *testing.T) {
	q := appointmentQuery(AppointmentFilter{
		CounsellorID: "c1",
		Date:         "2024-06-03",
		Statuses:     models.ActiveStatuses,
	})
	if q["counsellorId"] != "c1" || q["date"] != "2024-06-03" {
		t.Fatalf("unexpected query %v", q)
	}
	if _, ok := q["userId"]; ok {
		t.Fatal("empty fields must not be filtered on")
	}
	if _, ok := q["status"]; !ok {
		t.Fatal("status filter missing")
	}
}
