package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/Freeeeeet/tutor_schedule/internal/notification"
	"github.com/Freeeeeet/tutor_schedule/internal/repository"
	"github.com/Freeeeeet/tutor_schedule/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreate_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rc, err := f.svc.Create(ctx, f.createInput())

	require.NoError(t, err)
	assert.Equal(t, int64(1), rc.ID)
	assert.Equal(t, model.RegularCalendarStatusActive, rc.Status)
	assert.Empty(t, rc.AutoScheduleHistory)
	assert.Equal(t, []notification.EventType{notification.EventSlotCreated}, f.events.types())

	stored, err := f.store.RegularCalendars.GetByID(ctx, rc.ID)
	require.NoError(t, err)
	assert.Equal(t, wedTen, stored.RegularStartTime)

	// следующий ID из счётчика
	in := f.createInput()
	in.RegularStartTime = thuTen
	second, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
}

func TestCreate_MissingStudent(t *testing.T) {
	f := newFixture(t)
	in := f.createInput()
	in.StudentID = 404

	_, err := f.svc.Create(context.Background(), in)

	assert.ErrorIs(t, err, ErrStudentNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Empty(t, f.events.types())
}

func TestGet_HydratesReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)

	rc, err := f.svc.Get(ctx, created.ID)

	require.NoError(t, err)
	require.NotNil(t, rc.Student)
	require.NotNil(t, rc.Teacher)
	require.NotNil(t, rc.Course)
	require.NotNil(t, rc.OrderedPackage)
	assert.Equal(t, "Иван Петров", rc.Student.FullName)
	assert.Equal(t, packageID, rc.OrderedPackage.ID)

	_, err = f.svc.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListForTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putSlot(1, model.RegularCalendarStatusActive, packageID)
	other := f.putSlot(2, model.RegularCalendarStatusActive, packageID)
	other.TeacherID = otherTeacherID
	f.store.RegularCalendars.Put(other)

	items, total, err := f.svc.ListForTeacher(ctx, otherTeacherID, repository.RegularCalendarFilter{})

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)
}

func TestEdit_StartTimeChangeCancelsOnlyMatchingFutureBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: расписание на среду 10:00 и набор занятий
	rc, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)

	thisWeek := f.putBooking(rc, time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC), model.BookingStatusConfirmed, true)
	nextWeek := f.putBooking(rc, time.Date(2026, 10, 21, 10, 0, 0, 0, time.UTC), model.BookingStatusConfirmed, true)
	otherOffset := f.putBooking(rc, time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC), model.BookingStatusConfirmed, true)
	past := f.putBooking(rc, time.Date(2026, 10, 7, 10, 0, 0, 0, time.UTC), model.BookingStatusConfirmed, true)
	completed := f.putBooking(rc, time.Date(2026, 10, 28, 10, 0, 0, 0, time.UTC), model.BookingStatusCompleted, true)
	manual := f.putBooking(rc, time.Date(2026, 11, 4, 10, 0, 0, 0, time.UTC), model.BookingStatusConfirmed, false)
	f.events.reset()

	// WHEN: время переносится на четверг
	updated, err := f.svc.Edit(ctx, rc.ID, RegularCalendarDiff{RegularStartTime: ptr(thuTen)})

	// THEN
	require.NoError(t, err)
	assert.Equal(t, thuTen, updated.RegularStartTime)
	assert.Equal(t, model.RegularCalendarStatusActive, updated.Status)

	for _, b := range []*model.Booking{thisWeek, nextWeek} {
		got, _ := f.store.Bookings.GetByID(ctx, b.ID)
		assert.Equal(t, model.BookingStatusCancelByAdmin, got.Status, "booking %d", b.ID)
	}
	for _, b := range []*model.Booking{otherOffset, past, completed, manual} {
		got, _ := f.store.Bookings.GetByID(ctx, b.ID)
		assert.Equal(t, b.Status, got.Status, "booking %d", b.ID)
	}

	assert.ElementsMatch(t, []notification.EventType{
		notification.EventBookingCancelled,
		notification.EventBookingCancelled,
		notification.EventSlotUpdated,
	}, f.events.types())
}

func TestEdit_TeacherChangeNotifiesFormerTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: занятие в среду 10:00 у первого учителя
	rc, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)
	b := f.putBooking(rc, time.Date(2026, 10, 21, 10, 0, 0, 0, time.UTC), model.BookingStatusConfirmed, true)
	f.events.reset()

	// WHEN: расписание переходит к другому учителю на четверг
	_, err = f.svc.Edit(ctx, rc.ID, RegularCalendarDiff{
		RegularStartTime: ptr(thuTen),
		TeacherID:        ptr(otherTeacherID),
	})

	// THEN: об отмене узнают участники самого занятия
	require.NoError(t, err)
	cancelled := f.events.ofType(notification.EventBookingCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, b.ID, cancelled[0].BookingID)
	assert.Equal(t, teacherID, cancelled[0].TeacherID)
	assert.Equal(t, studentID, cancelled[0].StudentID)
	assert.Equal(t, wedTen, cancelled[0].RegularStartTime)

	updated := f.events.ofType(notification.EventSlotUpdated)
	require.Len(t, updated, 1)
	assert.Equal(t, otherTeacherID, updated[0].TeacherID)
}

func TestEdit_NoteOnlyKeepsBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rc, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)
	b := f.putBooking(rc, time.Date(2026, 10, 21, 10, 0, 0, 0, time.UTC), model.BookingStatusConfirmed, true)

	// те же значения полей и новая заметка
	updated, err := f.svc.Edit(ctx, rc.ID, RegularCalendarDiff{
		RegularStartTime: ptr(wedTen),
		TeacherID:        ptr(teacherID),
		AdminNote:        ptr("перенести на лето"),
	})

	require.NoError(t, err)
	assert.Equal(t, "перенести на лето", updated.AdminNote)
	got, _ := f.store.Bookings.GetByID(ctx, b.ID)
	assert.Equal(t, model.BookingStatusConfirmed, got.Status)
}

func TestEdit_AdminCancelRequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rc, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)
	b := f.putBooking(rc, time.Date(2026, 10, 21, 10, 0, 0, 0, time.UTC), model.BookingStatusConfirmed, true)

	_, err = f.svc.Edit(ctx, rc.ID, RegularCalendarDiff{Status: ptr(model.RegularCalendarStatusAdminCancel)})
	assert.ErrorIs(t, err, ErrMissingCancelReason)

	_, err = f.svc.Edit(ctx, rc.ID, RegularCalendarDiff{
		Status:       ptr(model.RegularCalendarStatusAdminCancel),
		CancelReason: ptr("   "),
	})
	assert.ErrorIs(t, err, ErrMissingCancelReason)

	updated, err := f.svc.Edit(ctx, rc.ID, RegularCalendarDiff{
		Status:       ptr(model.RegularCalendarStatusAdminCancel),
		CancelReason: ptr("student moved"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.RegularCalendarStatusAdminCancel, updated.Status)
	assert.Equal(t, "student moved", updated.CancelReason)

	got, _ := f.store.Bookings.GetByID(ctx, b.ID)
	assert.Equal(t, model.BookingStatusCancelByAdmin, got.Status)
	assert.Equal(t, "student moved", got.CancelReason)
}

func TestEdit_TeacherCancelFallsBackToRequestedReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rc, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)
	b := f.putBooking(rc, time.Date(2026, 10, 21, 10, 0, 0, 0, time.UTC), model.BookingStatusConfirmed, true)

	_, err = f.svc.RequestCancel(ctx, rc.ID, otherTeacherID, "teacher leaves")
	require.NoError(t, err)

	updated, err := f.svc.Edit(ctx, rc.ID, RegularCalendarDiff{Status: ptr(model.RegularCalendarStatusTeacherCancel)})

	require.NoError(t, err)
	assert.Equal(t, model.RegularCalendarStatusTeacherCancel, updated.Status)
	assert.Equal(t, "teacher leaves", updated.CancelReason)

	got, _ := f.store.Bookings.GetByID(ctx, b.ID)
	assert.Equal(t, model.BookingStatusCancelByTeacher, got.Status)
	assert.Equal(t, "teacher leaves", got.CancelReason)
}

func TestEdit_InvalidTransition(t *testing.T) {
	f := newFixture(t)
	rc := f.putSlot(5, model.RegularCalendarStatusFinished, packageID)

	_, err := f.svc.Edit(context.Background(), rc.ID, RegularCalendarDiff{Status: ptr(model.RegularCalendarStatusActive)})

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestEdit_ManualFinishOnlyFromExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	active := f.putSlot(5, model.RegularCalendarStatusActive, packageID)
	requested := f.putSlot(6, model.RegularCalendarStatusActiveTeacherRequestCanceling, packageID)

	_, err := f.svc.Edit(ctx, active.ID, RegularCalendarDiff{Status: ptr(model.RegularCalendarStatusFinished)})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.Edit(ctx, requested.ID, RegularCalendarDiff{Status: ptr(model.RegularCalendarStatusExpired)})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.Edit(ctx, requested.ID, RegularCalendarDiff{Status: ptr(model.RegularCalendarStatusFinished)})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, model.RegularCalendarStatusActive, f.slotStatus(t, active.ID).Status)
	assert.Equal(t, model.RegularCalendarStatusActiveTeacherRequestCanceling, f.slotStatus(t, requested.ID).Status)
}

func TestEdit_PackageChangeReactivatesExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.OrderedPackages.Put(f.expiredPackage(60, studentID, 4))
	rc := f.putSlot(5, model.RegularCalendarStatusExpired, 60)
	rc.Alerted = []model.AlertKind{model.AlertPackageExpiringSoon}
	f.store.RegularCalendars.Put(rc)

	updated, err := f.svc.Edit(ctx, rc.ID, RegularCalendarDiff{OrderedPackageID: ptr(packageID)})

	require.NoError(t, err)
	assert.Equal(t, model.RegularCalendarStatusActive, updated.Status)
	assert.Equal(t, packageID, updated.OrderedPackageID)
	assert.Empty(t, updated.Alerted)
	assert.Contains(t, f.events.types(), notification.EventSlotReactivated)
}

func TestEdit_ExplicitStatusWinsOverPackageReactivation(t *testing.T) {
	f := newFixture(t)
	f.store.OrderedPackages.Put(f.expiredPackage(60, studentID, 4))
	rc := f.putSlot(5, model.RegularCalendarStatusExpired, 60)

	updated, err := f.svc.Edit(context.Background(), rc.ID, RegularCalendarDiff{
		OrderedPackageID: ptr(packageID),
		Status:           ptr(model.RegularCalendarStatusFinished),
	})

	require.NoError(t, err)
	assert.Equal(t, model.RegularCalendarStatusFinished, updated.Status)
	require.NotNil(t, updated.FinishAt)
	assert.Equal(t, f.now, *updated.FinishAt)
}

func TestEdit_ReactivationRechecksPackage(t *testing.T) {
	f := newFixture(t)
	f.store.OrderedPackages.Put(f.expiredPackage(60, studentID, 4))
	rc := f.putSlot(5, model.RegularCalendarStatusExpired, 60)

	_, err := f.svc.Edit(context.Background(), rc.ID, RegularCalendarDiff{Status: ptr(model.RegularCalendarStatusActive)})

	assert.ErrorIs(t, err, ErrPackageExpired)
}

func TestEdit_TeacherWithoutRegularTime(t *testing.T) {
	f := newFixture(t)
	rc, err := f.svc.Create(context.Background(), f.createInput())
	require.NoError(t, err)

	// второй учитель свободен только в четверг
	_, err = f.svc.Edit(context.Background(), rc.ID, RegularCalendarDiff{TeacherID: ptr(otherTeacherID)})

	assert.ErrorIs(t, err, ErrNoRegularTime)
}

func TestEdit_ConflictExcludesItself(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rc, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)

	in := f.createInput()
	in.StudentID = otherStudentID
	in.RegularStartTime = thuTen
	f.store.OrderedPackages.Put(f.activePackage(70, otherStudentID, 5))
	in.OrderedPackageID = 70
	_, err = f.svc.Create(ctx, in)
	require.NoError(t, err)

	// учитель занят в четверг другим студентом
	_, err = f.svc.Edit(ctx, rc.ID, RegularCalendarDiff{RegularStartTime: ptr(thuTen)})
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestEdit_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Edit(context.Background(), 404, RegularCalendarDiff{AdminNote: ptr("x")})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestEdit_PersistenceErrorIsNotDomainError(t *testing.T) {
	f := newFixture(t)
	rc, err := f.svc.Create(context.Background(), f.createInput())
	require.NoError(t, err)
	f.store.RegularCalendars.UpdateHook = func(*model.RegularCalendar) error {
		return errors.New("connection reset")
	}

	_, err = f.svc.Edit(context.Background(), rc.ID, RegularCalendarDiff{AdminNote: ptr("x")})

	require.Error(t, err)
	assert.Equal(t, KindPersistence, KindOf(err))
	assert.Equal(t, "INTERNAL", CodeOf(err))
}

func TestEdit_UniqueIndexRaceIsSlotConflict(t *testing.T) {
	f := newFixture(t)
	rc, err := f.svc.Create(context.Background(), f.createInput())
	require.NoError(t, err)
	// валидатор конфликт не увидел, а уникальный индекс сработал
	f.store.RegularCalendars.UpdateHook = func(*model.RegularCalendar) error {
		return repository.ErrDuplicate
	}

	_, err = f.svc.Edit(context.Background(), rc.ID, RegularCalendarDiff{AdminNote: ptr("x")})

	assert.ErrorIs(t, err, ErrSlotConflict)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestRequestCancel(t *testing.T) {
	t.Run("empty reason always fails", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RequestCancel(context.Background(), 404, otherTeacherID, "  ")
		assert.ErrorIs(t, err, ErrMissingReason)
	})

	t.Run("active slot moves to teacher request canceling", func(t *testing.T) {
		f := newFixture(t)
		rc := f.putSlot(5, model.RegularCalendarStatusActive, packageID)

		got, err := f.svc.RequestCancel(context.Background(), rc.ID, otherTeacherID, "vacation")

		require.NoError(t, err)
		assert.Equal(t, model.RegularCalendarStatusActiveTeacherRequestCanceling, got.Status)
		assert.Equal(t, "vacation", got.CancelReason)
		assert.Equal(t, []notification.EventType{notification.EventSlotCancelRequested}, f.events.types())
	})

	t.Run("assigned teacher id keeps the slot unchanged", func(t *testing.T) {
		f := newFixture(t)
		rc := f.putSlot(5, model.RegularCalendarStatusActive, packageID)

		got, err := f.svc.RequestCancel(context.Background(), rc.ID, teacherID, "vacation")

		require.NoError(t, err)
		assert.Equal(t, model.RegularCalendarStatusActive, got.Status)
		assert.Empty(t, f.events.types())
	})

	t.Run("non active slot is a no-op", func(t *testing.T) {
		f := newFixture(t)
		rc := f.putSlot(5, model.RegularCalendarStatusExpired, packageID)

		got, err := f.svc.RequestCancel(context.Background(), rc.ID, otherTeacherID, "vacation")

		require.NoError(t, err)
		assert.Equal(t, model.RegularCalendarStatusExpired, got.Status)
		assert.Empty(t, got.CancelReason)
	})

	t.Run("missing slot", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RequestCancel(context.Background(), 404, otherTeacherID, "vacation")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Remove(ctx, 404), ErrNotFound)

	// удаление не зависит от статуса
	rc := f.putSlot(5, model.RegularCalendarStatusFinished, packageID)
	require.NoError(t, f.svc.Remove(ctx, rc.ID))

	got, err := f.store.RegularCalendars.GetByID(ctx, rc.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordAutoScheduleAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rc := f.putSlot(5, model.RegularCalendarStatusActive, packageID)

	_, err := f.svc.RecordAutoScheduleAttempt(ctx, 404, model.AutoScheduleAttempt{Message: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.RecordAutoScheduleAttempt(ctx, rc.ID, model.AutoScheduleAttempt{Message: "teacher busy"})
	require.NoError(t, err)

	f.now = f.now.Add(3 * time.Minute)
	got, err := f.svc.RecordAutoScheduleAttempt(ctx, rc.ID, model.AutoScheduleAttempt{Message: "student busy"})
	require.NoError(t, err)

	assert.Equal(t, "teacher busy\nstudent busy", got.AutoSchedule.Message)

	stored, err := f.store.RegularCalendars.GetByID(ctx, rc.ID)
	require.NoError(t, err)
	require.Len(t, stored.AutoScheduleHistory, 1)
	assert.Equal(t, "teacher busy\nstudent busy", stored.AutoScheduleHistory[0].Message)
	assert.Equal(t, f.now, stored.AutoSchedule.Time)
}

// deletingCalendars удаляет расписание прямо перед записью попытки
type deletingCalendars struct {
	*memory.RegularCalendars
}

func (d deletingCalendars) UpdateAutoSchedule(ctx context.Context, rc *model.RegularCalendar) error {
	if _, err := d.Delete(ctx, rc.ID); err != nil {
		return err
	}
	return d.RegularCalendars.UpdateAutoSchedule(ctx, rc)
}

func TestRecordAutoScheduleAttempt_SlotRemovedBeforeWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rc := f.putSlot(5, model.RegularCalendarStatusActive, packageID)

	stores := storesOf(f.store)
	stores.RegularCalendars = deletingCalendars{f.store.RegularCalendars}
	svc := NewRegularCalendarService(stores, f.events, Options{Clock: func() time.Time { return f.now }}, zap.NewNop())

	_, err := svc.RecordAutoScheduleAttempt(ctx, rc.ID, model.AutoScheduleAttempt{Message: "teacher busy"})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}
