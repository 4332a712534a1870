package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/barberhub/booking-service/internal/entity"
	"github.com/lib/pq"
)

const bookingColumns = `
	id, client_id, barber_id, service_id,
	to_char(date, 'YYYY-MM-DD'), time, start_at, end_at, status, comment,
	notification_sent, reminder_1_day_sent, reminder_3_hours_sent,
	reminder_1_hour_sent, completion_notification_sent, created_at
`

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) BookingRepository {
	return &bookingRepository{db: db}
}

// CreateGroup inserts all rows of a visit inside one serializable transaction.
// The overlap check runs in the same transaction as the inserts, so two
// concurrent requests for intersecting slots cannot both commit.
func (r *bookingRepository) CreateGroup(ctx context.Context, bookings []*entity.Booking) error {
	if len(bookings) == 0 {
		return fmt.Errorf("%w: empty booking group", entity.ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	head := bookings[0]

	// Re-check the interval against committed bookings of the same barber
	var conflicts int
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE barber_id = $1
		  AND date = $2
		  AND status IN ('pending', 'approved')
		  AND start_at < $4 AND end_at > $3
	`
	err = tx.QueryRowContext(ctx, query, head.BarberID, head.Date, head.StartAt, head.EndAt).Scan(&conflicts)
	if err != nil {
		return fmt.Errorf("failed to check slot conflicts: %v", err)
	}
	if conflicts > 0 {
		return entity.ErrSlotTaken
	}

	insert := `
		INSERT INTO bookings (
			client_id, barber_id, service_id, date, time,
			start_at, end_at, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	now := time.Now()
	for _, b := range bookings {
		err = tx.QueryRowContext(ctx, insert,
			b.ClientID,
			b.BarberID,
			b.ServiceID,
			b.Date,
			b.Time,
			b.StartAt,
			b.EndAt,
			b.Status,
			now,
		).Scan(&b.ID)
		if err != nil {
			return fmt.Errorf("failed to create booking: %v", err)
		}
		b.CreatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// GetByID retrieves a booking row by its ID
func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %v", err)
	}

	return booking, nil
}

// GetGroup returns every sibling row of a visit
func (r *bookingRepository) GetGroup(ctx context.Context, key entity.GroupKey) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE client_id = $1 AND barber_id = $2 AND date = $3 AND time = $4
		ORDER BY id
	`

	return r.queryBookings(ctx, query, key.ClientID, key.BarberID, key.Date, key.Time)
}

// UpdateGroupStatus updates every sibling to the new status in one statement
func (r *bookingRepository) UpdateGroupStatus(ctx context.Context, key entity.GroupKey, status entity.BookingStatus) (int64, error) {
	query := `
		UPDATE bookings SET status = $1
		WHERE client_id = $2 AND barber_id = $3 AND date = $4 AND time = $5
	`

	res, err := r.db.ExecContext(ctx, query, status, key.ClientID, key.BarberID, key.Date, key.Time)
	if err != nil {
		return 0, fmt.Errorf("failed to update group status: %v", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %v", err)
	}
	if affected == 0 {
		return 0, entity.ErrBookingNotFound
	}

	return affected, nil
}

// SetGroupFlag sets an idempotency flag on every sibling in one statement.
// The column name comes from the closed ReminderFlag set, never from input.
func (r *bookingRepository) SetGroupFlag(ctx context.Context, key entity.GroupKey, flag entity.ReminderFlag) error {
	switch flag {
	case entity.FlagReminder1Day, entity.FlagReminder3Hours, entity.FlagReminder1Hour,
		entity.FlagReminder30Min, entity.FlagCompletion:
	default:
		return fmt.Errorf("%w: unknown reminder flag %q", entity.ErrInvalidInput, flag)
	}

	query := fmt.Sprintf(`
		UPDATE bookings SET %s = TRUE
		WHERE client_id = $1 AND barber_id = $2 AND date = $3 AND time = $4
	`, flag)

	res, err := r.db.ExecContext(ctx, query, key.ClientID, key.BarberID, key.Date, key.Time)
	if err != nil {
		return fmt.Errorf("failed to set group flag %s: %v", flag, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %v", err)
	}
	if affected == 0 {
		return entity.ErrBookingNotFound
	}

	return nil
}

// DeleteGroup removes every sibling row of a visit atomically
func (r *bookingRepository) DeleteGroup(ctx context.Context, key entity.GroupKey) (int64, error) {
	query := `
		DELETE FROM bookings
		WHERE client_id = $1 AND barber_id = $2 AND date = $3 AND time = $4
	`

	res, err := r.db.ExecContext(ctx, query, key.ClientID, key.BarberID, key.Date, key.Time)
	if err != nil {
		return 0, fmt.Errorf("failed to delete group: %v", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %v", err)
	}
	if affected == 0 {
		return 0, entity.ErrBookingNotFound
	}

	return affected, nil
}

// SetComment attaches free text to a completed booking row
func (r *bookingRepository) SetComment(ctx context.Context, id int64, text string) error {
	query := `UPDATE bookings SET comment = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, text, id)
	if err != nil {
		return fmt.Errorf("failed to set comment: %v", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %v", err)
	}
	if affected == 0 {
		return entity.ErrBookingNotFound
	}

	return nil
}

// GetByBarberAndDate returns bookings of a barber on a date filtered by status
func (r *bookingRepository) GetByBarberAndDate(ctx context.Context, barberID int64, date string, statuses []entity.BookingStatus) ([]*entity.Booking, error) {
	statusList := make([]string, 0, len(statuses))
	for _, s := range statuses {
		statusList = append(statusList, string(s))
	}

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE barber_id = $1 AND date = $2 AND status = ANY($3)
		ORDER BY start_at
	`

	return r.queryBookings(ctx, query, barberID, date, pq.Array(statusList))
}

// GetByClient returns all bookings of a client, newest first
func (r *bookingRepository) GetByClient(ctx context.Context, clientID int64) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE client_id = $1
		ORDER BY start_at DESC
	`

	return r.queryBookings(ctx, query, clientID)
}

// GetByStatus returns bookings in the given status with pagination
func (r *bookingRepository) GetByStatus(ctx context.Context, status entity.BookingStatus, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = $1
		ORDER BY start_at DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryBookings(ctx, query, status, limit, offset)
}

// GetAll returns bookings with pagination, newest first
func (r *bookingRepository) GetAll(ctx context.Context, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		ORDER BY start_at DESC
		LIMIT $1 OFFSET $2
	`

	return r.queryBookings(ctx, query, limit, offset)
}

// GetRemindersDue returns approved bookings whose start falls inside
// [from, to] and whose flag for the given threshold is still unset.
func (r *bookingRepository) GetRemindersDue(ctx context.Context, flag entity.ReminderFlag, from, to time.Time) ([]*entity.Booking, error) {
	switch flag {
	case entity.FlagReminder1Day, entity.FlagReminder3Hours, entity.FlagReminder1Hour,
		entity.FlagReminder30Min:
	default:
		return nil, fmt.Errorf("%w: unknown reminder flag %q", entity.ErrInvalidInput, flag)
	}

	query := fmt.Sprintf(`
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = 'approved'
		  AND %s = FALSE
		  AND start_at >= $1 AND start_at <= $2
		ORDER BY start_at
	`, flag)

	return r.queryBookings(ctx, query, from, to)
}

// GetFinishedUnnotified returns approved bookings whose end has passed and
// whose completion flag is still unset.
func (r *bookingRepository) GetFinishedUnnotified(ctx context.Context, before time.Time) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'approved'
		  AND completion_notification_sent = FALSE
		  AND end_at <= $1
		ORDER BY end_at
	`

	return r.queryBookings(ctx, query, before)
}

// CountByStatus returns booking counts grouped by status
func (r *bookingRepository) CountByStatus(ctx context.Context) (map[entity.BookingStatus]int64, error) {
	query := `SELECT status, COUNT(*) FROM bookings GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %v", err)
	}
	defer rows.Close()

	counts := make(map[entity.BookingStatus]int64)
	for rows.Next() {
		var status entity.BookingStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %v", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// CountByBarber returns booking counts grouped by barber
func (r *bookingRepository) CountByBarber(ctx context.Context) (map[int64]int64, error) {
	query := `SELECT barber_id, COUNT(*) FROM bookings GROUP BY barber_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count by barber: %v", err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var barberID, count int64
		if err := rows.Scan(&barberID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan barber count: %v", err)
		}
		counts[barberID] = count
	}

	return counts, rows.Err()
}

func (r *bookingRepository) queryBookings(ctx context.Context, query string, args ...interface{}) ([]*entity.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %v", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %v", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.ClientID,
		&b.BarberID,
		&b.ServiceID,
		&b.Date,
		&b.Time,
		&b.StartAt,
		&b.EndAt,
		&b.Status,
		&b.Comment,
		&b.NotificationSent,
		&b.Reminder1DaySent,
		&b.Reminder3HoursSent,
		&b.Reminder1HourSent,
		&b.CompletionNotificationSent,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
