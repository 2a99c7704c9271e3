package repository

import (
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestRegularCalendarFilter_PredicateOnlySetFields(t *testing.T) {
	f := RegularCalendarFilter{
		TeacherID: Ptr(int64(7)),
		Statuses:  []model.RegularCalendarStatus{model.RegularCalendarStatusActive, model.RegularCalendarStatusExpired},
	}

	p := f.Predicate()

	assert.Equal(t, "WHERE teacher_id = $1 AND status = ANY($2)", p.Where())
	assert.Equal(t, []any{int64(7), []string{"ACTIVE", "EXPIRED"}}, p.Args())
	assert.Equal(t, 3, p.Next())
}

func TestRegularCalendarFilter_EmptyPredicate(t *testing.T) {
	p := RegularCalendarFilter{}.Predicate()

	assert.Empty(t, p.Where())
	assert.Empty(t, p.Args())
	assert.Equal(t, 1, p.Next())
}

func TestRegularCalendarFilter_Match(t *testing.T) {
	rc := &model.RegularCalendar{StudentID: 1, TeacherID: 2, CourseID: 3, Status: model.RegularCalendarStatusActive}

	assert.True(t, RegularCalendarFilter{}.Match(rc))
	assert.True(t, RegularCalendarFilter{StudentID: Ptr(int64(1)), CourseID: Ptr(int64(3))}.Match(rc))
	assert.False(t, RegularCalendarFilter{TeacherID: Ptr(int64(9))}.Match(rc))
	assert.False(t, RegularCalendarFilter{Statuses: []model.RegularCalendarStatus{model.RegularCalendarStatusFinished}}.Match(rc))
}

func TestRegularCalendarFilter_Window(t *testing.T) {
	limit, offset := RegularCalendarFilter{}.Window()
	assert.Equal(t, DefaultPageSize, limit)
	assert.Equal(t, 0, offset)

	limit, offset = RegularCalendarFilter{Page: 3, PageSize: 10}.Window()
	assert.Equal(t, 10, limit)
	assert.Equal(t, 20, offset)

	limit, _ = RegularCalendarFilter{PageSize: 10_000}.Window()
	assert.Equal(t, MaxPageSize, limit)
}

func TestBookingFilter_Predicate(t *testing.T) {
	from := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	f := BookingFilter{
		StudentID:        Ptr(int64(1)),
		OrderedPackageID: Ptr(int64(5)),
		Statuses:         []model.BookingStatus{model.BookingStatusConfirmed},
		IsRegularBooking: Ptr(true),
		StartFrom:        &from,
	}

	p := f.Predicate()

	assert.Equal(t,
		"WHERE student_id = $1 AND ordered_package_id = $2 AND status = ANY($3) AND is_regular_booking = $4 AND start_time >= $5",
		p.Where())
	assert.Len(t, p.Args(), 5)
}

func TestBookingFilter_Match(t *testing.T) {
	start := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	b := &model.Booking{
		StudentID:        1,
		TeacherID:        2,
		Status:           model.BookingStatusConfirmed,
		IsRegularBooking: true,
		StartTime:        start,
	}

	assert.True(t, BookingFilter{StartAt: &start}.Match(b))
	assert.True(t, BookingFilter{StartFrom: Ptr(start.Add(-time.Hour))}.Match(b))
	assert.False(t, BookingFilter{StartFrom: Ptr(start.Add(time.Hour))}.Match(b))
	assert.False(t, BookingFilter{IsRegularBooking: Ptr(false)}.Match(b))
	assert.False(t, BookingFilter{Statuses: model.OutstandingBookingStatuses, TeacherID: Ptr(int64(3))}.Match(b))
}
