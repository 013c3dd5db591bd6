package reminder

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/remindly/geotrigger/internal/app/models"
	"github.com/remindly/geotrigger/internal/app/observability/metrics"
)

// Repository is the persistence boundary for reminders.
type Repository interface {
	Create(ctx context.Context, reminder *models.ReminderModel) error
	Get(ctx context.Context, id uuid.UUID) (*models.ReminderModel, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBySummary(ctx context.Context, summaryID uuid.UUID) ([]models.ReminderModel, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReminderStatus, triggeredAt *time.Time) error
	UpdateCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error
	UpdateGeofenceID(ctx context.Context, id uuid.UUID, geofenceID *string) error

	List(ctx context.Context, filter models.ReminderFilter) ([]models.ReminderModel, error)
	ListActiveLocation(ctx context.Context) ([]models.ReminderModel, error)
	ListPendingCalendarDueBefore(ctx context.Context, cutoff time.Time) ([]models.ReminderModel, error)
}

// DB is the subset of pgxpool.Pool the repository uses; pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type RepositoryImpl struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &RepositoryImpl{db: db}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const reminderColumns = `id, summary_id, user_id, kind, title, description, status,
		scheduled_at, end_at, calendar_event_id, notification_lead_minutes,
		target_latitude, target_longitude, target_address, radius_meters, trigger_kind, dwell_minutes, geofence_id, expires_at,
		triggered_at, created_at, updated_at`

func (r *RepositoryImpl) Create(ctx context.Context, reminder *models.ReminderModel) error {
	if reminder.ID == uuid.Nil {
		reminder.ID = uuid.New()
	}
	now := time.Now()
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = now
	}
	reminder.UpdatedAt = now
	if reminder.Status == "" {
		reminder.Status = models.StatusPending
	}

	query := `
		INSERT INTO reminders (id, summary_id, user_id, kind, title, description, status,
			scheduled_at, end_at, calendar_event_id, notification_lead_minutes,
			target_latitude, target_longitude, target_address, radius_meters, trigger_kind, dwell_minutes, geofence_id, expires_at,
			triggered_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	start := time.Now()
	_, err := r.db.Exec(ctx, query,
		reminder.ID,
		reminder.SummaryID,
		reminder.UserID,
		reminder.Kind,
		reminder.Title,
		reminder.Description,
		reminder.Status,
		reminder.ScheduledAt,
		reminder.EndAt,
		reminder.CalendarEventID,
		reminder.NotificationLeadMinutes,
		reminder.TargetLatitude,
		reminder.TargetLongitude,
		reminder.TargetAddress,
		reminder.RadiusMeters,
		reminder.TriggerKind,
		reminder.DwellMinutes,
		reminder.GeofenceID,
		reminder.ExpiresAt,
		reminder.TriggeredAt,
		reminder.CreatedAt,
		reminder.UpdatedAt,
	)
	r.observe(ctx, "create", start, err)
	if err != nil {
		return errors.Wrap(err, "insert reminder")
	}
	return nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*models.ReminderModel, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`

	start := time.Now()
	row := r.db.QueryRow(ctx, query, id)
	reminder, err := scanReminder(row)
	r.observe(ctx, "get", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, errors.Wrap(err, "get reminder")
	}
	return reminder, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	r.observe(ctx, "delete", start, err)
	if err != nil {
		return errors.Wrap(err, "delete reminder")
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteBySummary removes every reminder owned by a summary and returns the
// removed rows so the caller can tear down their geofence regions and
// notifications.
func (r *RepositoryImpl) DeleteBySummary(ctx context.Context, summaryID uuid.UUID) ([]models.ReminderModel, error) {
	query := `DELETE FROM reminders WHERE summary_id = $1 RETURNING ` + reminderColumns

	start := time.Now()
	rows, err := r.db.Query(ctx, query, summaryID)
	r.observe(ctx, "delete_by_summary", start, err)
	if err != nil {
		return nil, errors.Wrap(err, "delete reminders by summary")
	}
	defer rows.Close()

	return collectReminders(rows)
}

func (r *RepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReminderStatus, triggeredAt *time.Time) error {
	query := `UPDATE reminders SET status = $2, triggered_at = COALESCE($3, triggered_at), updated_at = $4 WHERE id = $1`

	start := time.Now()
	tag, err := r.db.Exec(ctx, query, id, status, triggeredAt, time.Now())
	r.observe(ctx, "update_status", start, err)
	if err != nil {
		return errors.Wrap(err, "update reminder status")
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *RepositoryImpl) UpdateCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	query := `UPDATE reminders SET calendar_event_id = $2, updated_at = $3 WHERE id = $1`

	start := time.Now()
	tag, err := r.db.Exec(ctx, query, id, eventID, time.Now())
	r.observe(ctx, "update_calendar_event_id", start, err)
	if err != nil {
		return errors.Wrap(err, "update calendar event id")
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *RepositoryImpl) UpdateGeofenceID(ctx context.Context, id uuid.UUID, geofenceID *string) error {
	query := `UPDATE reminders SET geofence_id = $2, updated_at = $3 WHERE id = $1`

	start := time.Now()
	tag, err := r.db.Exec(ctx, query, id, geofenceID, time.Now())
	r.observe(ctx, "update_geofence_id", start, err)
	if err != nil {
		return errors.Wrap(err, "update geofence id")
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// List runs a filtered query built with squirrel so the handler can combine
// user/status/kind/due-window filters freely.
func (r *RepositoryImpl) List(ctx context.Context, filter models.ReminderFilter) ([]models.ReminderModel, error) {
	builder := psql.Select(reminderColumns).
		From("reminders").
		OrderBy("created_at DESC")

	if filter.UserID != "" {
		builder = builder.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.SummaryID != nil {
		builder = builder.Where(sq.Eq{"summary_id": *filter.SummaryID})
	}
	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"status": *filter.Status})
	}
	if filter.Kind != nil {
		builder = builder.Where(sq.Eq{"kind": *filter.Kind})
	}
	if filter.DueBefore != nil {
		builder = builder.Where(sq.LtOrEq{"scheduled_at": *filter.DueBefore})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build list query")
	}

	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	r.observe(ctx, "list", start, err)
	if err != nil {
		return nil, errors.Wrap(err, "list reminders")
	}
	defer rows.Close()

	return collectReminders(rows)
}

// ListActiveLocation returns location reminders that still need a live
// geofence region, used to rebuild the registry after a restart.
func (r *RepositoryImpl) ListActiveLocation(ctx context.Context) ([]models.ReminderModel, error) {
	query := `SELECT ` + reminderColumns + `
		FROM reminders
		WHERE kind = $1 AND status = $2
		ORDER BY created_at`

	start := time.Now()
	rows, err := r.db.Query(ctx, query, models.ReminderLocation, models.StatusPending)
	r.observe(ctx, "list_active_location", start, err)
	if err != nil {
		return nil, errors.Wrap(err, "list active location reminders")
	}
	defer rows.Close()

	return collectReminders(rows)
}

func (r *RepositoryImpl) ListPendingCalendarDueBefore(ctx context.Context, cutoff time.Time) ([]models.ReminderModel, error) {
	query := `SELECT ` + reminderColumns + `
		FROM reminders
		WHERE kind = $1 AND status = $2 AND scheduled_at <= $3
		ORDER BY scheduled_at`

	start := time.Now()
	rows, err := r.db.Query(ctx, query, models.ReminderCalendar, models.StatusPending, cutoff)
	r.observe(ctx, "list_pending_calendar_due", start, err)
	if err != nil {
		return nil, errors.Wrap(err, "list due calendar reminders")
	}
	defer rows.Close()

	return collectReminders(rows)
}

func (r *RepositoryImpl) observe(ctx context.Context, op string, start time.Time, err error) {
	m := metrics.Get()
	opAttr := metric.WithAttributes(attribute.String("op", op))
	m.DBQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), opAttr)
	if err != nil {
		m.DBQueryErrorsTotal.Add(ctx, 1, opAttr)
	}
}

func scanReminder(row pgx.Row) (*models.ReminderModel, error) {
	var reminder models.ReminderModel
	err := row.Scan(
		&reminder.ID,
		&reminder.SummaryID,
		&reminder.UserID,
		&reminder.Kind,
		&reminder.Title,
		&reminder.Description,
		&reminder.Status,
		&reminder.ScheduledAt,
		&reminder.EndAt,
		&reminder.CalendarEventID,
		&reminder.NotificationLeadMinutes,
		&reminder.TargetLatitude,
		&reminder.TargetLongitude,
		&reminder.TargetAddress,
		&reminder.RadiusMeters,
		&reminder.TriggerKind,
		&reminder.DwellMinutes,
		&reminder.GeofenceID,
		&reminder.ExpiresAt,
		&reminder.TriggeredAt,
		&reminder.CreatedAt,
		&reminder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

func collectReminders(rows pgx.Rows) ([]models.ReminderModel, error) {
	var reminders []models.ReminderModel
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan reminder")
		}
		reminders = append(reminders, *reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate reminders")
	}
	return reminders, nil
}
