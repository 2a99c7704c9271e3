package repository

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Predicate типизированное условие WHERE с позиционными аргументами
type Predicate struct {
	clauses []string
	args    []any
}

// add добавляет условие, %s в шаблоне заменяется на номер аргумента
func (p *Predicate) add(template string, arg any) {
	p.args = append(p.args, arg)
	p.clauses = append(p.clauses, fmt.Sprintf(template, fmt.Sprintf("$%d", len(p.args))))
}

// Where возвращает "WHERE ..." или пустую строку
func (p Predicate) Where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(p.clauses, " AND ")
}

// Args аргументы запроса в порядке плейсхолдеров
func (p Predicate) Args() []any {
	return p.args
}

// Next номер следующего плейсхолдера
func (p Predicate) Next() int {
	return len(p.args) + 1
}

// Ptr возвращает указатель на значение (удобно для фильтров)
func Ptr[T any](v T) *T {
	return &v
}

// RegularCalendarFilter фильтр списка регулярных расписаний.
// В условие попадают только заданные поля.
type RegularCalendarFilter struct {
	StudentID        *int64
	TeacherID        *int64
	CourseID         *int64
	OrderedPackageID *int64
	RegularStartTime *int64
	Statuses         []model.RegularCalendarStatus
	Page             int
	PageSize         int
}

func (f RegularCalendarFilter) Predicate() Predicate {
	var p Predicate
	if f.StudentID != nil {
		p.add("student_id = %s", *f.StudentID)
	}
	if f.TeacherID != nil {
		p.add("teacher_id = %s", *f.TeacherID)
	}
	if f.CourseID != nil {
		p.add("course_id = %s", *f.CourseID)
	}
	if f.OrderedPackageID != nil {
		p.add("ordered_package_id = %s", *f.OrderedPackageID)
	}
	if f.RegularStartTime != nil {
		p.add("regular_start_time = %s", *f.RegularStartTime)
	}
	if len(f.Statuses) > 0 {
		p.add("status = ANY(%s)", stringSlice(f.Statuses))
	}
	return p
}

// Match та же логика фильтра для проверки в памяти
func (f RegularCalendarFilter) Match(rc *model.RegularCalendar) bool {
	switch {
	case f.StudentID != nil && rc.StudentID != *f.StudentID:
		return false
	case f.TeacherID != nil && rc.TeacherID != *f.TeacherID:
		return false
	case f.CourseID != nil && rc.CourseID != *f.CourseID:
		return false
	case f.OrderedPackageID != nil && rc.OrderedPackageID != *f.OrderedPackageID:
		return false
	case f.RegularStartTime != nil && rc.RegularStartTime != *f.RegularStartTime:
		return false
	case len(f.Statuses) > 0 && !slices.Contains(f.Statuses, rc.Status):
		return false
	}
	return true
}

// Window возвращает LIMIT и OFFSET с учётом значений по умолчанию
func (f RegularCalendarFilter) Window() (limit, offset int) {
	limit = f.PageSize
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// BookingFilter фильтр бронирований
type BookingFilter struct {
	StudentID        *int64
	TeacherID        *int64
	CourseID         *int64
	OrderedPackageID *int64
	Statuses         []model.BookingStatus
	IsRegularBooking *bool
	StartFrom        *time.Time // start_time >= StartFrom
	StartAt          *time.Time // start_time = StartAt
}

func (f BookingFilter) Predicate() Predicate {
	var p Predicate
	if f.StudentID != nil {
		p.add("student_id = %s", *f.StudentID)
	}
	if f.TeacherID != nil {
		p.add("teacher_id = %s", *f.TeacherID)
	}
	if f.CourseID != nil {
		p.add("course_id = %s", *f.CourseID)
	}
	if f.OrderedPackageID != nil {
		p.add("ordered_package_id = %s", *f.OrderedPackageID)
	}
	if len(f.Statuses) > 0 {
		p.add("status = ANY(%s)", stringSlice(f.Statuses))
	}
	if f.IsRegularBooking != nil {
		p.add("is_regular_booking = %s", *f.IsRegularBooking)
	}
	if f.StartFrom != nil {
		p.add("start_time >= %s", *f.StartFrom)
	}
	if f.StartAt != nil {
		p.add("start_time = %s", *f.StartAt)
	}
	return p
}

func (f BookingFilter) Match(b *model.Booking) bool {
	switch {
	case f.StudentID != nil && b.StudentID != *f.StudentID:
		return false
	case f.TeacherID != nil && b.TeacherID != *f.TeacherID:
		return false
	case f.CourseID != nil && b.CourseID != *f.CourseID:
		return false
	case f.OrderedPackageID != nil && b.OrderedPackageID != *f.OrderedPackageID:
		return false
	case len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status):
		return false
	case f.IsRegularBooking != nil && b.IsRegularBooking != *f.IsRegularBooking:
		return false
	case f.StartFrom != nil && b.StartTime.Before(*f.StartFrom):
		return false
	case f.StartAt != nil && !b.StartTime.Equal(*f.StartAt):
		return false
	}
	return true
}

func stringSlice[S ~string](values []S) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
