package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/Freeeeeet/tutor_schedule/internal/notification"
	"github.com/Freeeeeet/tutor_schedule/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SweepReport итог ежедневной проверки регулярных расписаний
type SweepReport struct {
	StartedAt   time.Time `json:"started_at"`
	Checked     int       `json:"checked"`
	Expired     []int64   `json:"expired"`
	Finished    []int64   `json:"finished"`
	Reactivated []int64   `json:"reactivated"`
	Alerted     []int64   `json:"alerted"`
	Failed      []int64   `json:"failed"`
}

type sweepAction int

const (
	sweepNone sweepAction = iota
	sweepExpire
	sweepFinish
	sweepReactivate
)

// sweepSnapshot состояние расписания и его пакета на момент начала проверки
type sweepSnapshot struct {
	rc          *model.RegularCalendar
	pkg         *model.OrderedPackage
	outstanding bool
}

// decideSweepAction выбирает не больше одного перехода по снимку
func decideSweepAction(snap sweepSnapshot, now time.Time) sweepAction {
	pkg := snap.pkg
	switch snap.rc.Status {
	case model.RegularCalendarStatusActive, model.RegularCalendarStatusActiveTeacherRequestCanceling:
		if pkg.IsExhausted() {
			if !snap.outstanding {
				return sweepFinish
			}
			return sweepNone
		}
		if pkg.IsExpired(now) && !snap.outstanding {
			return sweepExpire
		}
	case model.RegularCalendarStatusExpired:
		if pkg.IsExhausted() {
			if !snap.outstanding {
				return sweepFinish
			}
			return sweepNone
		}
		if pkg.IsValidAt(now) {
			return sweepReactivate
		}
	}
	return sweepNone
}

// decideAlerts предупреждения, которые ещё не отправлялись по активному расписанию
func (s *RegularCalendarService) decideAlerts(snap sweepSnapshot, now time.Time) []model.AlertKind {
	if snap.rc.Status != model.RegularCalendarStatusActive {
		return nil
	}

	var alerts []model.AlertKind
	if expiry, ok := snap.pkg.Expiry(); ok && expiry.After(now) && expiry.Sub(now) <= s.opts.ExpiryAlertWindow &&
		!snap.rc.HasAlert(model.AlertPackageExpiringSoon) {
		alerts = append(alerts, model.AlertPackageExpiringSoon)
	}
	if snap.pkg.NumberClass > 0 && snap.pkg.NumberClass <= s.opts.LowClassThreshold &&
		!snap.rc.HasAlert(model.AlertLowClasses) {
		alerts = append(alerts, model.AlertLowClasses)
	}
	return alerts
}

// DailySweep переводит расписания по состоянию пакетов: EXPIRED, FINISHED или обратно в ACTIVE.
// Решение по каждому расписанию принимается по одному снимку, ошибки отдельных
// расписаний логируются и не прерывают проверку.
func (s *RegularCalendarService) DailySweep(ctx context.Context) (*SweepReport, error) {
	now := s.now()
	s.logger.Info("Daily sweep started", zap.Time("now", now))

	slots, err := s.calendars.ListByStatuses(ctx,
		model.RegularCalendarStatusActive,
		model.RegularCalendarStatusActiveTeacherRequestCanceling,
		model.RegularCalendarStatusExpired,
	)
	if err != nil {
		return nil, fmt.Errorf("list regular calendars for sweep: %w", err)
	}

	report := &SweepReport{StartedAt: now, Checked: len(slots)}
	var mu sync.Mutex
	record := func(list *[]int64, id int64) {
		mu.Lock()
		*list = append(*list, id)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.SweepConcurrency)

	for _, rc := range slots {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Panic in sweep",
						zap.Int64("regular_calendar_id", rc.ID),
						zap.Any("panic", r))
					record(&report.Failed, rc.ID)
				}
			}()

			action, alerted, err := s.sweepOne(gctx, rc, now)
			if err != nil {
				s.logger.Error("Failed to sweep regular calendar",
					zap.Int64("regular_calendar_id", rc.ID),
					zap.String("status", string(rc.Status)),
					zap.Error(err))
				record(&report.Failed, rc.ID)
				return nil
			}

			switch action {
			case sweepExpire:
				record(&report.Expired, rc.ID)
			case sweepFinish:
				record(&report.Finished, rc.ID)
			case sweepReactivate:
				record(&report.Reactivated, rc.ID)
			}
			if alerted {
				record(&report.Alerted, rc.ID)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, ids := range [][]int64{report.Expired, report.Finished, report.Reactivated, report.Alerted, report.Failed} {
		slices.Sort(ids)
	}

	s.logger.Info("Daily sweep finished",
		zap.Int("checked", report.Checked),
		zap.Int("expired", len(report.Expired)),
		zap.Int("finished", len(report.Finished)),
		zap.Int("reactivated", len(report.Reactivated)),
		zap.Int("alerted", len(report.Alerted)),
		zap.Int("failed", len(report.Failed)))

	return report, ctx.Err()
}

func (s *RegularCalendarService) sweepOne(ctx context.Context, rc *model.RegularCalendar, now time.Time) (sweepAction, bool, error) {
	if err := ctx.Err(); err != nil {
		return sweepNone, false, err
	}

	snap, err := s.takeSnapshot(ctx, rc)
	if err != nil {
		return sweepNone, false, err
	}

	action := decideSweepAction(snap, now)
	var alerts []model.AlertKind
	if action == sweepNone {
		alerts = s.decideAlerts(snap, now)
	}
	if action == sweepNone && len(alerts) == 0 {
		return sweepNone, false, nil
	}

	var event notification.EventType
	switch action {
	case sweepExpire:
		rc.Status = model.RegularCalendarStatusExpired
		event = notification.EventSlotExpired
	case sweepFinish:
		rc.Status = model.RegularCalendarStatusFinished
		rc.FinishAt = &now
		event = notification.EventSlotFinished
	case sweepReactivate:
		rc.Status = model.RegularCalendarStatusActive
		event = notification.EventSlotReactivated
	}
	for _, kind := range alerts {
		rc.MarkAlerted(kind)
	}
	rc.UpdatedAt = now

	if err := s.calendars.Update(ctx, rc); err != nil {
		return sweepNone, false, fmt.Errorf("update regular calendar: %w", err)
	}

	if event != "" {
		s.publish(notification.NewSlotEvent(event, rc, now))
	}
	for _, kind := range alerts {
		s.publish(alertEvent(kind, rc, snap.pkg, now))
	}

	return action, len(alerts) > 0, nil
}

func (s *RegularCalendarService) takeSnapshot(ctx context.Context, rc *model.RegularCalendar) (sweepSnapshot, error) {
	pkg, err := s.packages.GetByID(ctx, rc.OrderedPackageID)
	if err != nil {
		return sweepSnapshot{}, fmt.Errorf("get ordered package: %w", err)
	}
	if pkg == nil {
		return sweepSnapshot{}, fmt.Errorf("ordered package %d: %w", rc.OrderedPackageID, ErrPackageNotFound)
	}

	outstanding, err := s.bookings.Exists(ctx, repository.BookingFilter{
		StudentID:        &rc.StudentID,
		TeacherID:        &rc.TeacherID,
		CourseID:         &rc.CourseID,
		OrderedPackageID: &rc.OrderedPackageID,
		Statuses:         model.OutstandingBookingStatuses,
	})
	if err != nil {
		return sweepSnapshot{}, fmt.Errorf("check outstanding bookings: %w", err)
	}

	return sweepSnapshot{rc: rc.Clone(), pkg: pkg, outstanding: outstanding}, nil
}

func alertEvent(kind model.AlertKind, rc *model.RegularCalendar, pkg *model.OrderedPackage, now time.Time) notification.Event {
	t := notification.EventLowRemainingClasses
	if kind == model.AlertPackageExpiringSoon {
		t = notification.EventPackageExpiring
	}
	e := notification.NewSlotEvent(t, rc, now)
	e.Data["ordered_package_id"] = pkg.ID
	e.Data["remaining_classes"] = pkg.NumberClass
	if expiry, ok := pkg.Expiry(); ok {
		e.Data["expires_at"] = expiry
	}
	return e
}
