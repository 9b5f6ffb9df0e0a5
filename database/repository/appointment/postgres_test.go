package appointmentRepo

import (
	"context"
	"errors"
	"os"
	"testing"

	"procounsellor/models"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type postgresSeeder struct{ db *gorm.DB }

func (p postgresSeeder) seedCounsellor(t *testing.T, c models.Counsellor) {
	row := counsellorRow{
		ID:              c.ID,
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		WorkingDays:     weekdayList(c.WorkingDays),
		OfficeStartTime: c.OfficeStartTime,
		OfficeEndTime:   c.OfficeEndTime,
	}
	if err := p.db.Create(&row).Error; err != nil {
		t.Fatalf("seed counsellor: %v", err)
	}
}

func (p postgresSeeder) seedUser(t *testing.T, u models.User) {
	if err := p.db.Create(&userRow{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestPostgresStoreContract(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	store := NewPostgresStore(db, zaptest.NewLogger(t))
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	runStoreSuite(t, store, postgresSeeder{db})
}

func TestWeekdayListScan(t *testing.T) {
	var w weekdayList
	if err := w.Scan([]byte("Monday,Friday")); err != nil {
		t.Fatal(err)
	}
	if len(w) != 2 || w[0] != "Monday" || w[1] != "Friday" {
		t.Fatalf("unexpected %v", w)
	}
	if err := w.Scan(""); err != nil || w != nil {
		t.Fatalf("empty column: %v %v", w, err)
	}
	if err := w.Scan(42); err == nil {
		t.Fatal("expected error for int column")
	}
	v, _ := weekdayList{"Monday", "Tuesday"}.Value()
	if v != "Monday,Tuesday" {
		t.Fatalf("Value = %v", v)
	}
}

func TestClassifyPostgresErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"serialization", &pgconn.PgError{Code: "40001"}, ErrConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, ErrConflict},
		{"unique", &pgconn.PgError{Code: "23505"}, ErrDuplicate},
		{"deadline", context.DeadlineExceeded, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyPostgresErr(tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
	if classifyPostgresErr(nil) != nil {
		t.Fatal("nil should stay nil")
	}
}
