package model

import (
	"slices"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending          BookingStatus = "PENDING"
	BookingStatusConfirmed        BookingStatus = "CONFIRMED"
	BookingStatusTeacherConfirmed BookingStatus = "TEACHER_CONFIRMED"
	BookingStatusTeaching         BookingStatus = "TEACHING"
	BookingStatusCompleted        BookingStatus = "COMPLETED"
	BookingStatusStudentAbsent    BookingStatus = "STUDENT_ABSENT"
	BookingStatusTeacherAbsent    BookingStatus = "TEACHER_ABSENT"
	BookingStatusCancelByStudent  BookingStatus = "CANCEL_BY_STUDENT"
	BookingStatusCancelByTeacher  BookingStatus = "CANCEL_BY_TEACHER"
	BookingStatusCancelByAdmin    BookingStatus = "CANCEL_BY_ADMIN"
	BookingStatusChangeTime       BookingStatus = "CHANGE_TIME"
)

// OutstandingBookingStatuses занятия, которые ещё не состоялись
var OutstandingBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusTeacherConfirmed,
	BookingStatusTeaching,
}

// IsOutstanding занятие ещё впереди или идёт
func (s BookingStatus) IsOutstanding() bool {
	return slices.Contains(OutstandingBookingStatuses, s)
}

type Booking struct {
	ID                int64         `json:"id"`
	StudentID         int64         `json:"student_id"`
	TeacherID         int64         `json:"teacher_id"`
	CourseID          int64         `json:"course_id"`
	OrderedPackageID  int64         `json:"ordered_package_id"`
	RegularCalendarID *int64        `json:"regular_calendar_id,omitempty"`
	Status            BookingStatus `json:"status"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           time.Time     `json:"end_time"`
	IsRegularBooking  bool          `json:"is_regular_booking"`
	CancelReason      string        `json:"cancel_reason"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
