package appointmentRepo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"procounsellor/models"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// weekdayList persists working days as a comma separated text column.
type weekdayList []string

func (w weekdayList) Value() (driver.Value, error) {
	return strings.Join(w, ","), nil
}

func (w *weekdayList) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*w = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("weekdayList: unsupported type %T", src)
	}
	if raw == "" {
		*w = nil
		return nil
	}
	*w = strings.Split(raw, ",")
	return nil
}

type appointmentRow struct {
	ID             string    `gorm:"primaryKey;column:id"`
	UserID         string    `gorm:"column:user_id;not null;index"`
	CounsellorID   string    `gorm:"column:counsellor_id;not null;index"`
	Date           string    `gorm:"column:date;not null"`
	StartTime      string    `gorm:"column:start_time;not null"`
	EndTime        string    `gorm:"column:end_time;not null"`
	Mode           string    `gorm:"column:mode"`
	Notes          string    `gorm:"column:notes"`
	Status         string    `gorm:"column:status;not null"`
	IdempotencyKey *string   `gorm:"column:idempotency_key"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (appointmentRow) TableName() string { return AppointmentsCollection }

type counsellorRow struct {
	ID              string      `gorm:"primaryKey;column:id"`
	FirstName       string      `gorm:"column:first_name"`
	LastName        string      `gorm:"column:last_name"`
	WorkingDays     weekdayList `gorm:"column:working_days;type:text"`
	OfficeStartTime string      `gorm:"column:office_start_time"`
	OfficeEndTime   string      `gorm:"column:office_end_time"`
}

func (counsellorRow) TableName() string { return CounsellorsCollection }

type userRow struct {
	ID        string `gorm:"primaryKey;column:id"`
	FirstName string `gorm:"column:first_name"`
	LastName  string `gorm:"column:last_name"`
}

func (userRow) TableName() string { return UsersCollection }

// Back-references live in join tables rather than array columns.
type counsellorAppointmentRow struct {
	CounsellorID  string    `gorm:"primaryKey;column:counsellor_id"`
	AppointmentID string    `gorm:"primaryKey;column:appointment_id"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (counsellorAppointmentRow) TableName() string { return "counsellor_appointments" }

type userAppointmentRow struct {
	UserID        string    `gorm:"primaryKey;column:user_id"`
	AppointmentID string    `gorm:"primaryKey;column:appointment_id"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (userAppointmentRow) TableName() string { return "user_appointments" }

func toAppointmentRow(a *models.Appointment) appointmentRow {
	row := appointmentRow{
		ID:           a.ID,
		UserID:       a.UserID,
		CounsellorID: a.CounsellorID,
		Date:         a.Date,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		Mode:         a.Mode,
		Notes:        a.Notes,
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if a.IdempotencyKey != "" {
		key := a.IdempotencyKey
		row.IdempotencyKey = &key
	}
	return row
}

func (r appointmentRow) toModel() models.Appointment {
	a := models.Appointment{
		ID:           r.ID,
		UserID:       r.UserID,
		CounsellorID: r.CounsellorID,
		Date:         r.Date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Mode:         r.Mode,
		Notes:        r.Notes,
		Status:       models.AppointmentStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.IdempotencyKey != nil {
		a.IdempotencyKey = *r.IdempotencyKey
	}
	return a
}

// PostgresStore implements Store on PostgreSQL through gorm. Transactions run at
// SERIALIZABLE isolation so predicate reads of the appointment table conflict with
// concurrent inserts into the same slot.
type PostgresStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPostgresStore wraps an open gorm handle.
func NewPostgresStore(db *gorm.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// Migrate creates the tables and the partial unique indexes behind the booking invariants.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(
		&appointmentRow{},
		&counsellorRow{},
		&userRow{},
		&counsellorAppointmentRow{},
		&userAppointmentRow{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS appointments_active_slot_unique
			ON appointments (counsellor_id, date, start_time) WHERE status IN ('pending', 'confirmed')`,
		`CREATE UNIQUE INDEX IF NOT EXISTS appointments_pending_pair_unique
			ON appointments (user_id, counsellor_id) WHERE status = 'pending'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS appointments_idempotency_unique
			ON appointments (user_id, idempotency_key) WHERE idempotency_key IS NOT NULL`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetCounsellor(ctx context.Context, id string) (*models.Counsellor, error) {
	return getCounsellor(s.db.WithContext(ctx), id)
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return getUser(s.db.WithContext(ctx), id)
}

func (s *PostgresStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	return getAppointment(s.db.WithContext(ctx), id)
}

func (s *PostgresStore) FindAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	return findAppointmentRows(s.db.WithContext(ctx), filter)
}

func (s *PostgresStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &postgresTx{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	return classifyPostgresErr(err)
}

func (s *PostgresStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func getCounsellor(db *gorm.DB, id string) (*models.Counsellor, error) {
	var row counsellorRow
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		return nil, fmt.Errorf("counsellor %s: %w", id, classifyPostgresErr(err))
	}
	var refs []string
	if err := db.Model(&counsellorAppointmentRow{}).
		Where("counsellor_id = ?", id).
		Order("created_at").
		Pluck("appointment_id", &refs).Error; err != nil {
		return nil, fmt.Errorf("counsellor %s appointments: %w", id, classifyPostgresErr(err))
	}
	return &models.Counsellor{
		ID:              row.ID,
		FirstName:       row.FirstName,
		LastName:        row.LastName,
		WorkingDays:     row.WorkingDays,
		OfficeStartTime: row.OfficeStartTime,
		OfficeEndTime:   row.OfficeEndTime,
		AppointmentIDs:  refs,
	}, nil
}

func getUser(db *gorm.DB, id string) (*models.User, error) {
	var row userRow
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		return nil, fmt.Errorf("user %s: %w", id, classifyPostgresErr(err))
	}
	var refs []string
	if err := db.Model(&userAppointmentRow{}).
		Where("user_id = ?", id).
		Order("created_at").
		Pluck("appointment_id", &refs).Error; err != nil {
		return nil, fmt.Errorf("user %s appointments: %w", id, classifyPostgresErr(err))
	}
	return &models.User{ID: row.ID, FirstName: row.FirstName, LastName: row.LastName, AppointmentIDs: refs}, nil
}

func getAppointment(db *gorm.DB, id string) (*models.Appointment, error) {
	var row appointmentRow
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		return nil, fmt.Errorf("appointment %s: %w", id, classifyPostgresErr(err))
	}
	a := row.toModel()
	return &a, nil
}

func findAppointmentRows(db *gorm.DB, filter AppointmentFilter) ([]models.Appointment, error) {
	q := db.Model(&appointmentRow{})
	if filter.CounsellorID != "" {
		q = q.Where("counsellor_id = ?", filter.CounsellorID)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Date != "" {
		q = q.Where("date = ?", filter.Date)
	}
	if filter.StartTime != "" {
		q = q.Where("start_time = ?", filter.StartTime)
	}
	if filter.IdempotencyKey != "" {
		q = q.Where("idempotency_key = ?", filter.IdempotencyKey)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where("status IN ?", statuses)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []appointmentRow
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error finding appointments: %w", classifyPostgresErr(err))
	}
	out := make([]models.Appointment, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}

// classifyPostgresErr maps SQLSTATE codes onto the store sentinels.
func classifyPostgresErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDuplicate) || errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case "23505":
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

type postgresTx struct {
	db *gorm.DB
}

func (tx *postgresTx) GetCounsellor(_ context.Context, id string) (*models.Counsellor, error) {
	return getCounsellor(tx.db, id)
}

func (tx *postgresTx) GetUser(_ context.Context, id string) (*models.User, error) {
	return getUser(tx.db, id)
}

func (tx *postgresTx) GetAppointment(_ context.Context, id string) (*models.Appointment, error) {
	return getAppointment(tx.db, id)
}

func (tx *postgresTx) FindAppointments(_ context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	return findAppointmentRows(tx.db, filter)
}

func (tx *postgresTx) CreateAppointment(_ context.Context, appt *models.Appointment) error {
	row := toAppointmentRow(appt)
	if err := tx.db.Create(&row).Error; err != nil {
		return fmt.Errorf("insert appointment failed: %w", classifyPostgresErr(err))
	}
	return nil
}

func (tx *postgresTx) exists(model any, id string) error {
	var n int64
	if err := tx.db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return classifyPostgresErr(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *postgresTx) AddUserAppointment(_ context.Context, userID, appointmentID string) error {
	if err := tx.exists(&userRow{}, userID); err != nil {
		return fmt.Errorf("user %s: %w", userID, err)
	}
	ref := userAppointmentRow{UserID: userID, AppointmentID: appointmentID}
	if err := tx.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&ref).Error; err != nil {
		return fmt.Errorf("embed appointment reference on user %s failed: %w", userID, classifyPostgresErr(err))
	}
	return nil
}

func (tx *postgresTx) AddCounsellorAppointment(_ context.Context, counsellorID, appointmentID string) error {
	if err := tx.exists(&counsellorRow{}, counsellorID); err != nil {
		return fmt.Errorf("counsellor %s: %w", counsellorID, err)
	}
	ref := counsellorAppointmentRow{CounsellorID: counsellorID, AppointmentID: appointmentID}
	if err := tx.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&ref).Error; err != nil {
		return fmt.Errorf("embed appointment reference on counsellor %s failed: %w", counsellorID, classifyPostgresErr(err))
	}
	return nil
}

func (tx *postgresTx) SetStatus(_ context.Context, appointmentID string, st models.AppointmentStatus, updatedAt time.Time) error {
	res := tx.db.Model(&appointmentRow{}).
		Where("id = ?", appointmentID).
		Updates(map[string]any{"status": string(st), "updated_at": updatedAt})
	if res.Error != nil {
		return fmt.Errorf("error updating appointment %s: %w", appointmentID, classifyPostgresErr(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("appointment %s: %w", appointmentID, ErrNotFound)
	}
	return nil
}
