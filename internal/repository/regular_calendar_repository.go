package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/Freeeeeet/tutor_schedule/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const regularCalendarColumns = `id, student_id, teacher_id, course_id, ordered_package_id, regular_start_time,
	status, cancel_reason, admin_note, alerted, auto_schedule, auto_schedule_history,
	finish_at, created_at, updated_at`

// RegularCalendarRepository управляет регулярными расписаниями в базе данных
type RegularCalendarRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRegularCalendarRepository создаёт новый репозиторий
func NewRegularCalendarRepository(pool *pgxpool.Pool, logger *zap.Logger) *RegularCalendarRepository {
	return &RegularCalendarRepository{
		pool:   pool,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegularCalendar(row rowScanner) (*model.RegularCalendar, error) {
	rc := &model.RegularCalendar{}
	var (
		alerted      []string
		autoSchedule []byte
		history      []byte
	)

	err := row.Scan(
		&rc.ID,
		&rc.StudentID,
		&rc.TeacherID,
		&rc.CourseID,
		&rc.OrderedPackageID,
		&rc.RegularStartTime,
		&rc.Status,
		&rc.CancelReason,
		&rc.AdminNote,
		&alerted,
		&autoSchedule,
		&history,
		&rc.FinishAt,
		&rc.CreatedAt,
		&rc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, a := range alerted {
		rc.Alerted = append(rc.Alerted, model.AlertKind(a))
	}
	if len(autoSchedule) > 0 && string(autoSchedule) != "null" {
		rc.AutoSchedule = &model.AutoScheduleAttempt{}
		if err := json.Unmarshal(autoSchedule, rc.AutoSchedule); err != nil {
			return nil, fmt.Errorf("decode auto_schedule: %w", err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &rc.AutoScheduleHistory); err != nil {
			return nil, fmt.Errorf("decode auto_schedule_history: %w", err)
		}
	}

	return rc, nil
}

func encodeAutoSchedule(rc *model.RegularCalendar) (attempt []byte, history []byte, err error) {
	if rc.AutoSchedule != nil {
		if attempt, err = json.Marshal(rc.AutoSchedule); err != nil {
			return nil, nil, fmt.Errorf("encode auto_schedule: %w", err)
		}
	}

	h := rc.AutoScheduleHistory
	if h == nil {
		h = model.AutoScheduleHistory{}
	}
	if history, err = json.Marshal(h); err != nil {
		return nil, nil, fmt.Errorf("encode auto_schedule_history: %w", err)
	}
	return attempt, history, nil
}

func alertedStrings(rc *model.RegularCalendar) []string {
	return stringSlice(rc.Alerted)
}

// Create сохраняет новое расписание (id уже выдан счётчиком)
func (r *RegularCalendarRepository) Create(ctx context.Context, rc *model.RegularCalendar) error {
	attempt, history, err := encodeAutoSchedule(rc)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO regular_calendars (id, student_id, teacher_id, course_id, ordered_package_id, regular_start_time,
			status, cancel_reason, admin_note, alerted, auto_schedule, auto_schedule_history)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err = r.pool.QueryRow(
		ctx,
		query,
		rc.ID,
		rc.StudentID,
		rc.TeacherID,
		rc.CourseID,
		rc.OrderedPackageID,
		rc.RegularStartTime,
		rc.Status,
		rc.CancelReason,
		rc.AdminNote,
		alertedStrings(rc),
		attempt,
		history,
	).Scan(&rc.CreatedAt, &rc.UpdatedAt)

	if base.IsUniqueViolation(err) {
		r.logger.Debug("Regular calendar violates unique slot",
			zap.Int64("regular_calendar_id", rc.ID),
			zap.String("constraint", base.ConstraintName(err)))
		return fmt.Errorf("create regular calendar: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create regular calendar: %w", err)
	}

	return nil
}

// GetByID получает расписание по ID
func (r *RegularCalendarRepository) GetByID(ctx context.Context, id int64) (*model.RegularCalendar, error) {
	query := `SELECT ` + regularCalendarColumns + ` FROM regular_calendars WHERE id = $1`

	rc, err := scanRegularCalendar(r.pool.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get regular calendar by id: %w", err)
	}

	return rc, nil
}

// List возвращает страницу расписаний по фильтру и общее количество
func (r *RegularCalendarRepository) List(ctx context.Context, filter RegularCalendarFilter) ([]*model.RegularCalendar, int64, error) {
	pred := filter.Predicate()

	var total int64
	countQuery := `SELECT COUNT(*) FROM regular_calendars ` + pred.Where()
	if err := r.pool.QueryRow(ctx, countQuery, pred.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count regular calendars: %w", err)
	}

	limit, offset := filter.Window()
	query := fmt.Sprintf(`SELECT %s FROM regular_calendars %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		regularCalendarColumns, pred.Where(), pred.Next(), pred.Next()+1)
	args := append(pred.Args(), limit, offset)

	items, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list regular calendars: %w", err)
	}

	return items, total, nil
}

// ListByStatuses возвращает все расписания в указанных статусах
func (r *RegularCalendarRepository) ListByStatuses(ctx context.Context, statuses ...model.RegularCalendarStatus) ([]*model.RegularCalendar, error) {
	query := `SELECT ` + regularCalendarColumns + ` FROM regular_calendars WHERE status = ANY($1) ORDER BY id`

	items, err := r.query(ctx, query, stringSlice(statuses))
	if err != nil {
		return nil, fmt.Errorf("list regular calendars by statuses: %w", err)
	}

	return items, nil
}

// FindConflicting ищет расписания учителя или студента на то же время, занимающие слот
func (r *RegularCalendarRepository) FindConflicting(ctx context.Context, teacherID, studentID, regularStartTime, excludeID int64) ([]*model.RegularCalendar, error) {
	query := `SELECT ` + regularCalendarColumns + `
		FROM regular_calendars
		WHERE (teacher_id = $1 OR student_id = $2)
			AND regular_start_time = $3
			AND status = ANY($4)
			AND id <> $5
	`

	items, err := r.query(ctx, query, teacherID, studentID, regularStartTime,
		stringSlice(model.OccupyingRegularCalendarStatuses), excludeID)
	if err != nil {
		return nil, fmt.Errorf("find conflicting regular calendars: %w", err)
	}

	return items, nil
}

// Update сохраняет документ целиком (последняя запись побеждает)
func (r *RegularCalendarRepository) Update(ctx context.Context, rc *model.RegularCalendar) error {
	attempt, history, err := encodeAutoSchedule(rc)
	if err != nil {
		return err
	}

	query := `
		UPDATE regular_calendars
		SET student_id = $2, teacher_id = $3, course_id = $4, ordered_package_id = $5, regular_start_time = $6,
			status = $7, cancel_reason = $8, admin_note = $9, alerted = $10, auto_schedule = $11,
			auto_schedule_history = $12, finish_at = $13, updated_at = $14
		WHERE id = $1
	`

	if rc.UpdatedAt.IsZero() {
		rc.UpdatedAt = time.Now()
	}

	tag, err := r.pool.Exec(
		ctx,
		query,
		rc.ID,
		rc.StudentID,
		rc.TeacherID,
		rc.CourseID,
		rc.OrderedPackageID,
		rc.RegularStartTime,
		rc.Status,
		rc.CancelReason,
		rc.AdminNote,
		alertedStrings(rc),
		attempt,
		history,
		rc.FinishAt,
		rc.UpdatedAt,
	)
	if base.IsUniqueViolation(err) {
		r.logger.Debug("Regular calendar violates unique slot",
			zap.Int64("regular_calendar_id", rc.ID),
			zap.String("constraint", base.ConstraintName(err)))
		return fmt.Errorf("update regular calendar: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("update regular calendar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update regular calendar %d: %w", rc.ID, pgx.ErrNoRows)
	}

	return nil
}

// UpdateAutoSchedule обновляет только последнюю попытку и историю
func (r *RegularCalendarRepository) UpdateAutoSchedule(ctx context.Context, rc *model.RegularCalendar) error {
	attempt, history, err := encodeAutoSchedule(rc)
	if err != nil {
		return err
	}

	query := `UPDATE regular_calendars SET auto_schedule = $2, auto_schedule_history = $3 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, rc.ID, attempt, history)
	if err != nil {
		return fmt.Errorf("update regular calendar auto schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update regular calendar %d auto schedule: %w", rc.ID, pgx.ErrNoRows)
	}

	return nil
}

// Delete удаляет расписание, возвращает false если его не было
func (r *RegularCalendarRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM regular_calendars WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete regular calendar: %w", err)
	}

	r.logger.Debug("Regular calendar deleted",
		zap.Int64("regular_calendar_id", id),
		zap.Int64("rows", tag.RowsAffected()))

	return tag.RowsAffected() > 0, nil
}

func (r *RegularCalendarRepository) query(ctx context.Context, query string, args ...any) ([]*model.RegularCalendar, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.RegularCalendar
	for rows.Next() {
		rc, err := scanRegularCalendar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan regular calendar: %w", err)
		}
		items = append(items, rc)
	}

	return items, rows.Err()
}
