// Command seed loads demo counsellors and users into the configured Mongo database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"procounsellor/config"
	"procounsellor/database"
	appointmentRepo "procounsellor/database/repository/appointment"
	"procounsellor/models"
	"procounsellor/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	firstNames = []string{"Asha", "Ravi", "Meera", "Kiran", "Neha", "Arjun", "Priya", "Vikram"}
	lastNames  = []string{"Rao", "Iyer", "Sharma", "Menon", "Gupta", "Nair"}
	weekdays   = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	// Office windows as HH:mm pairs, each a whole number of 30 minute slots.
	officeHours = [][2]string{{"09:00", "17:00"}, {"10:00", "18:00"}, {"08:30", "13:30"}, {"14:00", "20:00"}}
)

func pick[T any](xs []T) T {
	return xs[rand.IntN(len(xs))]
}

func randomCounsellor(i int) models.Counsellor {
	hours := pick(officeHours)
	start := rand.IntN(2)
	days := weekdays[start : start+3+rand.IntN(3)]
	return models.Counsellor{
		ID:              fmt.Sprintf("counsellor%02d", i),
		FirstName:       pick(firstNames),
		LastName:        pick(lastNames),
		WorkingDays:     append([]string(nil), days...),
		OfficeStartTime: hours[0],
		OfficeEndTime:   hours[1],
		AppointmentIDs:  []string{},
	}
}

func randomUser(i int) models.User {
	return models.User{
		ID:             fmt.Sprintf("user%03d", i),
		FirstName:      pick(firstNames),
		LastName:       pick(lastNames),
		AppointmentIDs: []string{},
	}
}

func upsertAll(ctx context.Context, coll *mongo.Collection, docs map[string]any) error {
	var writes []mongo.WriteModel
	for id, doc := range docs {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"id": id}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	if len(writes) == 0 {
		return nil
	}
	_, err := coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return err
}

func main() {
	counsellors := flag.Int("counsellors", 10, "number of counsellors to create")
	users := flag.Int("users", 50, "number of users to create")
	reset := flag.Bool("reset", false, "delete existing appointments, users and counsellors first")
	flag.Parse()

	config.LoadConfig()
	cfg := config.AppConfig
	logger := utils.InitializeLogger(cfg.Env, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := database.ConnectMongo(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	// Creating the store also ensures the booking indexes.
	appointmentRepo.NewMongoStore(client, cfg.DatabaseName, logger)

	db := client.Database(cfg.DatabaseName)
	if *reset {
		for _, name := range []string{appointmentRepo.AppointmentsCollection, appointmentRepo.UsersCollection, appointmentRepo.CounsellorsCollection} {
			if _, err := db.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
				log.Fatalf("seed: failed to clear %s: %v", name, err)
			}
		}
	}

	counsellorDocs := make(map[string]any, *counsellors)
	for i := 1; i <= *counsellors; i++ {
		c := randomCounsellor(i)
		counsellorDocs[c.ID] = c
	}
	userDocs := make(map[string]any, *users)
	for i := 1; i <= *users; i++ {
		u := randomUser(i)
		userDocs[u.ID] = u
	}

	if err := upsertAll(ctx, db.Collection(appointmentRepo.CounsellorsCollection), counsellorDocs); err != nil {
		log.Fatalf("seed: failed to write counsellors: %v", err)
	}
	if err := upsertAll(ctx, db.Collection(appointmentRepo.UsersCollection), userDocs); err != nil {
		log.Fatalf("seed: failed to write users: %v", err)
	}
	log.Printf("seed: wrote %d counsellors and %d users to %s", len(counsellorDocs), len(userDocs), cfg.DatabaseName)
}
