package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/Freeeeeet/tutor_schedule/internal/notification"
	"github.com/Freeeeeet/tutor_schedule/internal/repository"
	"github.com/Freeeeeet/tutor_schedule/internal/repository/base"
	"go.uber.org/zap"
)

// regularCalendarCounter имя счётчика, из которого берутся ID расписаний
const regularCalendarCounter = "regular_calendar"

// Options настройки фоновых операций над регулярными расписаниями
type Options struct {
	// SweepConcurrency сколько расписаний обрабатывается параллельно
	SweepConcurrency int
	// ExpiryAlertWindow за сколько до окончания пакета предупреждать
	ExpiryAlertWindow time.Duration
	// LowClassThreshold при скольких оставшихся занятиях предупреждать
	LowClassThreshold int
	// AutoScheduleWeeksAhead на сколько недель вперёд создавать занятия
	AutoScheduleWeeksAhead int
	Clock                  Clock
}

func (o Options) withDefaults() Options {
	if o.SweepConcurrency <= 0 {
		o.SweepConcurrency = 8
	}
	if o.ExpiryAlertWindow <= 0 {
		o.ExpiryAlertWindow = 7 * 24 * time.Hour
	}
	if o.LowClassThreshold <= 0 {
		o.LowClassThreshold = 2
	}
	if o.AutoScheduleWeeksAhead <= 0 {
		o.AutoScheduleWeeksAhead = 1
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

type RegularCalendarService struct {
	calendars RegularCalendarStore
	bookings  BookingStore
	users     UserStore
	courses   CourseStore
	packages  OrderedPackageStore
	counters  CounterStore
	validator *RegularCalendarValidator
	events    EventPublisher
	opts      Options
	now       Clock
	logger    *zap.Logger
}

func NewRegularCalendarService(stores Stores, events EventPublisher, opts Options, logger *zap.Logger) *RegularCalendarService {
	opts = opts.withDefaults()
	return &RegularCalendarService{
		calendars: stores.RegularCalendars,
		bookings:  stores.Bookings,
		users:     stores.Users,
		courses:   stores.Courses,
		packages:  stores.OrderedPackages,
		counters:  stores.Counters,
		validator: NewRegularCalendarValidator(stores, opts.Clock),
		events:    events,
		opts:      opts,
		now:       opts.Clock,
		logger:    logger,
	}
}

// CreateInput данные нового регулярного расписания
type CreateInput struct {
	StudentID        int64
	TeacherID        int64
	CourseID         int64
	OrderedPackageID int64
	RegularStartTime int64
	AdminNote        string
}

// Create создаёт регулярное расписание в статусе ACTIVE
func (s *RegularCalendarService) Create(ctx context.Context, in CreateInput) (*model.RegularCalendar, error) {
	s.logger.Info("Create regular calendar called",
		zap.Int64("student_id", in.StudentID),
		zap.Int64("teacher_id", in.TeacherID),
		zap.Int64("course_id", in.CourseID),
		zap.Int64("ordered_package_id", in.OrderedPackageID),
		zap.Int64("regular_start_time", in.RegularStartTime))

	student, err := s.users.GetByID(ctx, in.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	teacher, err := s.users.GetByID(ctx, in.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	course, err := s.courses.GetByID(ctx, in.CourseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	pkg, err := s.packages.GetByID(ctx, in.OrderedPackageID)
	if err != nil {
		return nil, fmt.Errorf("get ordered package: %w", err)
	}

	if err := s.validator.ValidateCreate(ctx, student, teacher, course, pkg, in.RegularStartTime); err != nil {
		s.logger.Info("Regular calendar rejected",
			zap.Int64("student_id", in.StudentID),
			zap.Int64("teacher_id", in.TeacherID),
			zap.String("code", CodeOf(err)),
			zap.Error(err))
		return nil, err
	}

	id, err := s.counters.NextID(ctx, regularCalendarCounter)
	if err != nil {
		return nil, fmt.Errorf("next regular calendar id: %w", err)
	}

	rc := &model.RegularCalendar{
		ID:                  id,
		StudentID:           in.StudentID,
		TeacherID:           in.TeacherID,
		CourseID:            in.CourseID,
		OrderedPackageID:    in.OrderedPackageID,
		RegularStartTime:    in.RegularStartTime,
		Status:              model.RegularCalendarStatusActive,
		AdminNote:           in.AdminNote,
		Alerted:             []model.AlertKind{},
		AutoScheduleHistory: model.AutoScheduleHistory{},
	}

	if err := s.calendars.Create(ctx, rc); err != nil {
		return nil, mapDuplicate(fmt.Errorf("create regular calendar: %w", err))
	}

	s.logger.Info("Regular calendar created",
		zap.Int64("regular_calendar_id", rc.ID),
		zap.Int64("student_id", rc.StudentID),
		zap.Int64("teacher_id", rc.TeacherID))

	s.publish(notification.NewSlotEvent(notification.EventSlotCreated, rc, s.now()))

	return rc, nil
}

// Get возвращает расписание вместе со связанными студентом, учителем, курсом и пакетом
func (s *RegularCalendarService) Get(ctx context.Context, id int64) (*model.RegularCalendar, error) {
	rc, err := s.calendars.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get regular calendar: %w", err)
	}
	if rc == nil {
		return nil, ErrNotFound
	}
	if err := s.hydrate(ctx, rc); err != nil {
		return nil, err
	}
	return rc, nil
}

// List страница расписаний по фильтру и общее количество
func (s *RegularCalendarService) List(ctx context.Context, filter repository.RegularCalendarFilter) ([]*model.RegularCalendar, int64, error) {
	items, total, err := s.calendars.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list regular calendars: %w", err)
	}
	for _, rc := range items {
		if err := s.hydrate(ctx, rc); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

// ListForTeacher расписания конкретного учителя
func (s *RegularCalendarService) ListForTeacher(ctx context.Context, teacherID int64, filter repository.RegularCalendarFilter) ([]*model.RegularCalendar, int64, error) {
	filter.TeacherID = &teacherID
	return s.List(ctx, filter)
}

func (s *RegularCalendarService) hydrate(ctx context.Context, rc *model.RegularCalendar) error {
	var err error
	if rc.Student, err = s.users.GetByID(ctx, rc.StudentID); err != nil {
		return fmt.Errorf("get student: %w", err)
	}
	if rc.Teacher, err = s.users.GetByID(ctx, rc.TeacherID); err != nil {
		return fmt.Errorf("get teacher: %w", err)
	}
	if rc.Course, err = s.courses.GetByID(ctx, rc.CourseID); err != nil {
		return fmt.Errorf("get course: %w", err)
	}
	if rc.OrderedPackage, err = s.packages.GetByID(ctx, rc.OrderedPackageID); err != nil {
		return fmt.Errorf("get ordered package: %w", err)
	}
	return nil
}

// Edit применяет изменения администратора.
// При смене времени, учителя, курса или при отмене будущие подтверждённые
// регулярные занятия по старым параметрам отменяются.
func (s *RegularCalendarService) Edit(ctx context.Context, id int64, diff RegularCalendarDiff) (*model.RegularCalendar, error) {
	s.logger.Info("Edit regular calendar called", zap.Int64("regular_calendar_id", id))

	rc, err := s.calendars.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get regular calendar: %w", err)
	}
	if rc == nil {
		return nil, ErrNotFound
	}
	original := rc.Clone()
	now := s.now()

	diff = diff.Normalize(rc)

	if err := s.validator.ValidateEdit(ctx, rc, diff); err != nil {
		s.logger.Info("Regular calendar edit rejected",
			zap.Int64("regular_calendar_id", id),
			zap.String("code", CodeOf(err)),
			zap.Error(err))
		return nil, err
	}

	target, err := ResolveTargetStatus(rc, diff)
	if err != nil {
		return nil, err
	}
	statusChanged := target != rc.Status

	if statusChanged && target.IsCancel() {
		reason, err := resolveCancelReason(rc, diff, target)
		if err != nil {
			return nil, err
		}
		rc.CancelReason = reason
	} else if diff.CancelReason != nil {
		rc.CancelReason = strings.TrimSpace(*diff.CancelReason)
	}

	cancelBookings := diff.changesSchedule() || (statusChanged && target.IsCancel())

	if diff.RegularStartTime != nil {
		rc.RegularStartTime = *diff.RegularStartTime
	}
	if diff.TeacherID != nil {
		rc.TeacherID = *diff.TeacherID
	}
	if diff.CourseID != nil {
		rc.CourseID = *diff.CourseID
	}
	if diff.OrderedPackageID != nil {
		rc.OrderedPackageID = *diff.OrderedPackageID
		rc.Alerted = []model.AlertKind{}
	}
	if diff.AdminNote != nil {
		rc.AdminNote = *diff.AdminNote
	}
	rc.Status = target
	if statusChanged && target == model.RegularCalendarStatusFinished {
		rc.FinishAt = &now
	}
	rc.UpdatedAt = now

	if err := s.calendars.Update(ctx, rc); err != nil {
		return nil, mapDuplicate(fmt.Errorf("update regular calendar: %w", err))
	}

	s.logger.Info("Regular calendar updated",
		zap.Int64("regular_calendar_id", rc.ID),
		zap.String("old_status", string(original.Status)),
		zap.String("new_status", string(rc.Status)),
		zap.Bool("cancel_bookings", cancelBookings))

	var cancelErr error
	if cancelBookings {
		cancelErr = s.cancelFutureBookings(ctx, original, rc, bookingCancelStatus(target), now)
	}

	s.publish(notification.NewSlotEvent(slotEventType(original.Status, rc.Status), rc, now))

	if cancelErr != nil {
		return nil, cancelErr
	}
	return rc, nil
}

// resolveCancelReason причина отмены; для TEACHER_CANCEL можно не указывать,
// если учитель уже назвал причину в запросе на отмену
func resolveCancelReason(rc *model.RegularCalendar, diff RegularCalendarDiff, target model.RegularCalendarStatus) (string, error) {
	if !isBlank(diff.CancelReason) {
		return strings.TrimSpace(*diff.CancelReason), nil
	}
	if target == model.RegularCalendarStatusTeacherCancel && strings.TrimSpace(rc.CancelReason) != "" {
		return rc.CancelReason, nil
	}
	return "", ErrMissingCancelReason
}

func bookingCancelStatus(target model.RegularCalendarStatus) model.BookingStatus {
	if target == model.RegularCalendarStatusTeacherCancel {
		return model.BookingStatusCancelByTeacher
	}
	return model.BookingStatusCancelByAdmin
}

func slotEventType(from, to model.RegularCalendarStatus) notification.EventType {
	switch {
	case from == to:
		return notification.EventSlotUpdated
	case to.IsCancel():
		return notification.EventSlotCancelled
	case to == model.RegularCalendarStatusFinished:
		return notification.EventSlotFinished
	case to == model.RegularCalendarStatusExpired:
		return notification.EventSlotExpired
	case to == model.RegularCalendarStatusActive && from == model.RegularCalendarStatusExpired:
		return notification.EventSlotReactivated
	default:
		return notification.EventSlotUpdated
	}
}

// cancelFutureBookings отменяет подтверждённые регулярные занятия по старым
// параметрам расписания, начиная с now. Ошибка одного занятия не останавливает остальные.
func (s *RegularCalendarService) cancelFutureBookings(
	ctx context.Context,
	original, updated *model.RegularCalendar,
	status model.BookingStatus,
	now time.Time,
) error {
	bookings, err := s.bookings.List(ctx, repository.BookingFilter{
		StudentID:        &original.StudentID,
		TeacherID:        &original.TeacherID,
		CourseID:         &original.CourseID,
		OrderedPackageID: &original.OrderedPackageID,
		Statuses:         []model.BookingStatus{model.BookingStatusConfirmed},
		IsRegularBooking: repository.Ptr(true),
		StartFrom:        &now,
	})
	if err != nil {
		return fmt.Errorf("list regular bookings: %w", err)
	}

	reason := updated.CancelReason
	if reason == "" {
		reason = "regular schedule changed"
	}

	var errs []error
	cancelled := 0
	for _, b := range bookings {
		if model.WeeklyOffset(b.StartTime) != original.RegularStartTime {
			continue
		}
		if err := s.bookings.UpdateStatus(ctx, b.ID, status, reason); err != nil {
			s.logger.Error("Failed to cancel regular booking",
				zap.Int64("booking_id", b.ID),
				zap.Int64("regular_calendar_id", original.ID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("cancel booking %d: %w", b.ID, err))
			continue
		}
		b.Status = status
		b.CancelReason = reason
		cancelled++
		s.publish(notification.NewBookingCancelledEvent(b, original, now))
	}

	s.logger.Info("Regular bookings cancelled",
		zap.Int64("regular_calendar_id", original.ID),
		zap.Int("cancelled", cancelled),
		zap.Int("failed", len(errs)))

	return errors.Join(errs...)
}

// RequestCancel учитель просит отменить регулярное расписание.
// Причина обязательна; переход выполняется только из ACTIVE.
func (s *RegularCalendarService) RequestCancel(ctx context.Context, id, requesterID int64, reason string) (*model.RegularCalendar, error) {
	s.logger.Info("Request cancel called",
		zap.Int64("regular_calendar_id", id),
		zap.Int64("requester_id", requesterID))

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrMissingReason
	}

	rc, err := s.calendars.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get regular calendar: %w", err)
	}
	if rc == nil {
		return nil, ErrNotFound
	}

	if rc.Status != model.RegularCalendarStatusActive || !cancelRequestAllowed(rc, requesterID) {
		s.logger.Info("Request cancel ignored",
			zap.Int64("regular_calendar_id", id),
			zap.Int64("requester_id", requesterID),
			zap.String("status", string(rc.Status)))
		return rc, nil
	}

	now := s.now()
	rc.Status = model.RegularCalendarStatusActiveTeacherRequestCanceling
	rc.CancelReason = reason
	rc.UpdatedAt = now

	if err := s.calendars.Update(ctx, rc); err != nil {
		return nil, fmt.Errorf("update regular calendar: %w", err)
	}

	s.logger.Info("Cancel requested",
		zap.Int64("regular_calendar_id", id),
		zap.Int64("requester_id", requesterID))

	s.publish(notification.NewSlotEvent(notification.EventSlotCancelRequested, rc, now))
	return rc, nil
}

// cancelRequestAllowed переход срабатывает, когда запрашивающий НЕ совпадает с учителем расписания.
// TODO: уточнить у продукта, не перепутано ли условие: по смыслу запрос должен принимать только учитель расписания.
func cancelRequestAllowed(rc *model.RegularCalendar, requesterID int64) bool {
	return rc.TeacherID != requesterID
}

// Remove удаляет расписание без каскада на занятия
func (s *RegularCalendarService) Remove(ctx context.Context, id int64) error {
	deleted, err := s.calendars.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete regular calendar: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	s.logger.Info("Regular calendar removed", zap.Int64("regular_calendar_id", id))
	return nil
}

// RecordAutoScheduleAttempt сохраняет результат попытки автосоздания занятия
func (s *RegularCalendarService) RecordAutoScheduleAttempt(ctx context.Context, id int64, attempt model.AutoScheduleAttempt) (*model.RegularCalendar, error) {
	rc, err := s.calendars.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get regular calendar: %w", err)
	}
	if rc == nil {
		return nil, ErrNotFound
	}

	rc.ApplyAutoScheduleAttempt(attempt, s.now())

	if err := s.calendars.UpdateAutoSchedule(ctx, rc); err != nil {
		// расписание удалили между чтением и записью
		if base.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update auto schedule: %w", err)
	}

	s.logger.Debug("Auto schedule attempt recorded",
		zap.Int64("regular_calendar_id", id),
		zap.Bool("success", rc.AutoSchedule.Success),
		zap.Int("history", len(rc.AutoScheduleHistory)))

	return rc, nil
}

func (s *RegularCalendarService) publish(event notification.Event) {
	if s.events == nil {
		return
	}
	s.events.Publish(event)
}
