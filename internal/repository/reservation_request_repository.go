package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReservationRequestRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRequestRepository(pool *pgxpool.Pool) *ReservationRequestRepository {
	return &ReservationRequestRepository{pool: pool}
}

// FindApprovedCovering ищет одобренную или оплаченную паузу студента, которая идёт в момент at
func (r *ReservationRequestRepository) FindApprovedCovering(ctx context.Context, studentID int64, at time.Time) (*model.ReservationRequest, error) {
	query := `
		SELECT id, student_id, status, start_time, end_time, created_at
		FROM student_reservation_requests
		WHERE student_id = $1 AND status = ANY($2) AND start_time <= $3 AND end_time >= $3
		ORDER BY start_time
		LIMIT 1
	`

	statuses := []string{string(model.ReservationStatusApproved), string(model.ReservationStatusPaid)}

	var req model.ReservationRequest
	err := r.pool.QueryRow(ctx, query, studentID, statuses, at).Scan(
		&req.ID,
		&req.StudentID,
		&req.Status,
		&req.StartTime,
		&req.EndTime,
		&req.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find reservation request: %w", err)
	}

	return &req, nil
}
