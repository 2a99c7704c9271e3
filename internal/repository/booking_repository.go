package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, student_id, teacher_id, course_id, ordered_package_id, regular_calendar_id,
	status, start_time, end_time, is_regular_booking, cancel_reason, created_at, updated_at`

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var booking model.Booking
	err := row.Scan(
		&booking.ID,
		&booking.StudentID,
		&booking.TeacherID,
		&booking.CourseID,
		&booking.OrderedPackageID,
		&booking.RegularCalendarID,
		&booking.Status,
		&booking.StartTime,
		&booking.EndTime,
		&booking.IsRegularBooking,
		&booking.CancelReason,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// Create создаёт новое бронирование
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (student_id, teacher_id, course_id, ordered_package_id, regular_calendar_id,
			status, start_time, end_time, is_regular_booking)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		booking.StudentID,
		booking.TeacherID,
		booking.CourseID,
		booking.OrderedPackageID,
		booking.RegularCalendarID,
		booking.Status,
		booking.StartTime,
		booking.EndTime,
		booking.IsRegularBooking,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// List получает бронирования по фильтру, отсортированные по времени начала
func (r *BookingRepository) List(ctx context.Context, filter BookingFilter) ([]*model.Booking, error) {
	pred := filter.Predicate()
	query := `SELECT ` + bookingColumns + ` FROM bookings ` + pred.Where() + ` ORDER BY start_time ASC`

	rows, err := r.pool.Query(ctx, query, pred.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// Exists есть ли хотя бы одно бронирование по фильтру
func (r *BookingRepository) Exists(ctx context.Context, filter BookingFilter) (bool, error) {
	pred := filter.Predicate()
	query := `SELECT EXISTS (SELECT 1 FROM bookings ` + pred.Where() + `)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, pred.Args()...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check bookings exist: %w", err)
	}

	return exists, nil
}

// UpdateStatus обновляет статус бронирования и причину отмены
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus, reason string) error {
	query := `
		UPDATE bookings
		SET status = $1, cancel_reason = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, status, reason, id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking not found")
	}

	return nil
}
