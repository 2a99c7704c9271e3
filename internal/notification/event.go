package notification

import (
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/google/uuid"
)

type EventType string

const (
	EventSlotCreated         EventType = "regular_calendar.created"
	EventSlotUpdated         EventType = "regular_calendar.updated"
	EventSlotCancelRequested EventType = "regular_calendar.cancel_requested"
	EventSlotCancelled       EventType = "regular_calendar.cancelled"
	EventSlotExpired         EventType = "regular_calendar.expired"
	EventSlotFinished        EventType = "regular_calendar.finished"
	EventSlotReactivated     EventType = "regular_calendar.reactivated"
	EventBookingCancelled    EventType = "booking.cancelled"
	EventPackageExpiring     EventType = "ordered_package.expiring_soon"
	EventLowRemainingClasses EventType = "ordered_package.low_classes"
)

// Event доменное событие, на которое реагируют уведомления
type Event struct {
	ID                uuid.UUID      `json:"id"`
	Type              EventType      `json:"type"`
	OccurredAt        time.Time      `json:"occurred_at"`
	RegularCalendarID int64          `json:"regular_calendar_id"`
	StudentID         int64          `json:"student_id"`
	TeacherID         int64          `json:"teacher_id"`
	RegularStartTime  int64          `json:"regular_start_time"`
	BookingID         int64          `json:"booking_id,omitempty"`
	Reason            string         `json:"reason,omitempty"`
	Data              map[string]any `json:"data,omitempty"`
}

// NewSlotEvent событие по регулярному расписанию
func NewSlotEvent(t EventType, rc *model.RegularCalendar, at time.Time) Event {
	return Event{
		ID:                uuid.New(),
		Type:              t,
		OccurredAt:        at,
		RegularCalendarID: rc.ID,
		StudentID:         rc.StudentID,
		TeacherID:         rc.TeacherID,
		RegularStartTime:  rc.RegularStartTime,
		Reason:            rc.CancelReason,
		Data:              map[string]any{},
	}
}

// NewBookingCancelledEvent событие об отмене конкретного занятия.
// Получатели берутся из самого занятия, rc - расписание, по которому оно было создано.
func NewBookingCancelledEvent(b *model.Booking, rc *model.RegularCalendar, at time.Time) Event {
	e := NewSlotEvent(EventBookingCancelled, rc, at)
	e.StudentID = b.StudentID
	e.TeacherID = b.TeacherID
	e.RegularStartTime = model.WeeklyOffset(b.StartTime)
	e.BookingID = b.ID
	e.Reason = b.CancelReason
	e.Data["start_time"] = b.StartTime
	e.Data["status"] = string(b.Status)
	return e
}
