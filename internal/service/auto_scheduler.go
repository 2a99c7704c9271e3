package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/Freeeeeet/tutor_schedule/internal/repository"
	"go.uber.org/zap"
)

// AutoScheduleReport итог автосоздания занятий по регулярным расписаниям
type AutoScheduleReport struct {
	Checked  int     `json:"checked"`
	Created  []int64 `json:"created"`  // ID созданных бронирований
	Rejected []int64 `json:"rejected"` // расписания с неудачной попыткой
	Failed   []int64 `json:"failed"`   // расписания, которые не удалось обработать
}

// AutoScheduleAll создаёт занятия на ближайшие недели для всех активных расписаний.
// Вызывается периодически; ошибка одного расписания не останавливает остальные.
func (s *RegularCalendarService) AutoScheduleAll(ctx context.Context) (*AutoScheduleReport, error) {
	slots, err := s.calendars.ListByStatuses(ctx, model.RegularCalendarStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active regular calendars: %w", err)
	}

	report := &AutoScheduleReport{Checked: len(slots)}
	for _, rc := range slots {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		created, rejected, err := s.autoScheduleSlot(ctx, rc)
		if err != nil {
			s.logger.Error("Failed to auto schedule regular calendar",
				zap.Int64("regular_calendar_id", rc.ID),
				zap.Error(err))
			report.Failed = append(report.Failed, rc.ID)
			continue
		}
		report.Created = append(report.Created, created...)
		if rejected {
			report.Rejected = append(report.Rejected, rc.ID)
		}
	}

	s.logger.Info("Auto scheduled bookings for regular calendars",
		zap.Int("total_calendars", report.Checked),
		zap.Int("bookings_created", len(report.Created)),
		zap.Int("rejected", len(report.Rejected)),
		zap.Int("failed", len(report.Failed)))

	return report, nil
}

// AutoScheduleOne автосоздание занятий для одного расписания
func (s *RegularCalendarService) AutoScheduleOne(ctx context.Context, id int64) (*model.RegularCalendar, error) {
	rc, err := s.calendars.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get regular calendar: %w", err)
	}
	if rc == nil {
		return nil, ErrNotFound
	}
	if rc.Status != model.RegularCalendarStatusActive {
		return nil, fmt.Errorf("%w: auto schedule requires %s, got %s",
			ErrInvalidStatus, model.RegularCalendarStatusActive, rc.Status)
	}
	if _, _, err := s.autoScheduleSlot(ctx, rc); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// autoScheduleSlot проходит по ближайшим вхождениям расписания и записывает попытку по каждому новому
func (s *RegularCalendarService) autoScheduleSlot(ctx context.Context, rc *model.RegularCalendar) ([]int64, bool, error) {
	now := s.now()

	pkg, err := s.packages.GetByID(ctx, rc.OrderedPackageID)
	if err != nil {
		return nil, false, fmt.Errorf("get ordered package: %w", err)
	}

	var created []int64
	rejected := false
	first := model.NextOccurrence(rc.RegularStartTime, now)

	for week := 0; week < s.opts.AutoScheduleWeeksAhead; week++ {
		startTime := first.AddDate(0, 0, 7*week)

		attempt, err := s.scheduleOccurrence(ctx, rc, pkg, startTime, now)
		if err != nil {
			return created, rejected, err
		}
		if attempt == nil {
			s.logger.Debug("Regular booking already exists, skipping",
				zap.Int64("regular_calendar_id", rc.ID),
				zap.Time("start_time", startTime))
			continue
		}

		if attempt.Success {
			created = append(created, *attempt.BookingID)
		} else {
			rejected = true
		}

		if _, err := s.RecordAutoScheduleAttempt(ctx, rc.ID, *attempt); err != nil {
			return created, rejected, err
		}
		if !attempt.Success {
			// следующие недели упрутся в ту же причину
			break
		}
	}

	return created, rejected, nil
}

// scheduleOccurrence пытается создать занятие на startTime.
// nil без ошибки - занятие на это время уже есть.
func (s *RegularCalendarService) scheduleOccurrence(
	ctx context.Context,
	rc *model.RegularCalendar,
	pkg *model.OrderedPackage,
	startTime, now time.Time,
) (*model.AutoScheduleAttempt, error) {
	meta := map[string]any{"start_time": startTime.Format(time.RFC3339)}
	reject := func(format string, args ...any) (*model.AutoScheduleAttempt, error) {
		return &model.AutoScheduleAttempt{
			Time:     now,
			Success:  false,
			Message:  fmt.Sprintf(format, args...),
			MetaData: meta,
		}, nil
	}

	exists, err := s.bookings.Exists(ctx, repository.BookingFilter{
		StudentID:        &rc.StudentID,
		TeacherID:        &rc.TeacherID,
		CourseID:         &rc.CourseID,
		OrderedPackageID: &rc.OrderedPackageID,
		StartAt:          &startTime,
	})
	if err != nil {
		return nil, fmt.Errorf("check booking existence: %w", err)
	}
	if exists {
		return nil, nil
	}

	switch {
	case pkg == nil:
		return reject("ordered package %d not found", rc.OrderedPackageID)
	case pkg.IsExhausted():
		return reject("ordered package has no classes left")
	case !pkg.IsActivated(now):
		return reject("ordered package is not activated")
	}
	if expiry, ok := pkg.Expiry(); ok && !startTime.Before(expiry) {
		return reject("ordered package expires at %s, before the lesson", expiry.UTC().Format(time.RFC3339))
	}

	booked, err := s.bookings.List(ctx, repository.BookingFilter{
		OrderedPackageID: &rc.OrderedPackageID,
		Statuses:         model.OutstandingBookingStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("list package bookings: %w", err)
	}
	if len(booked) >= pkg.NumberClass {
		return reject("all %d remaining classes are already booked", pkg.NumberClass)
	}

	busy, err := s.bookings.Exists(ctx, repository.BookingFilter{
		TeacherID: &rc.TeacherID,
		Statuses:  model.OutstandingBookingStatuses,
		StartAt:   &startTime,
	})
	if err != nil {
		return nil, fmt.Errorf("check teacher bookings: %w", err)
	}
	if busy {
		return reject("teacher %d already has a lesson at %s", rc.TeacherID, startTime.UTC().Format(time.RFC3339))
	}

	busy, err = s.bookings.Exists(ctx, repository.BookingFilter{
		StudentID: &rc.StudentID,
		Statuses:  model.OutstandingBookingStatuses,
		StartAt:   &startTime,
	})
	if err != nil {
		return nil, fmt.Errorf("check student bookings: %w", err)
	}
	if busy {
		return reject("student %d already has a lesson at %s", rc.StudentID, startTime.UTC().Format(time.RFC3339))
	}

	regularID := rc.ID
	booking := &model.Booking{
		StudentID:         rc.StudentID,
		TeacherID:         rc.TeacherID,
		CourseID:          rc.CourseID,
		OrderedPackageID:  rc.OrderedPackageID,
		RegularCalendarID: &regularID,
		Status:            model.BookingStatusConfirmed,
		StartTime:         startTime,
		EndTime:           startTime.Add(model.DefaultLessonDuration),
		IsRegularBooking:  true,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create regular booking: %w", err)
	}

	s.logger.Info("Regular booking created",
		zap.Int64("regular_calendar_id", rc.ID),
		zap.Int64("booking_id", booking.ID),
		zap.Time("start_time", startTime))

	bookingID := booking.ID
	return &model.AutoScheduleAttempt{
		Time:      now,
		Success:   true,
		Message:   "booking created",
		BookingID: &bookingID,
		MetaData:  meta,
	}, nil
}
