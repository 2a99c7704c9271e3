package rest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/Freeeeeet/tutor_schedule/internal/repository"
	"github.com/Freeeeeet/tutor_schedule/internal/service"
)

// CreateRegularCalendarRequest тело POST /regular-calendars
type CreateRegularCalendarRequest struct {
	StudentID        int64  `json:"student_id" validate:"required,gt=0"`
	TeacherID        int64  `json:"teacher_id" validate:"required,gt=0"`
	CourseID         int64  `json:"course_id" validate:"required,gt=0"`
	OrderedPackageID int64  `json:"ordered_package_id" validate:"required,gt=0"`
	RegularStartTime *int64 `json:"regular_start_time" validate:"required,gte=0"`
	AdminNote        string `json:"admin_note" validate:"max=2000"`
}

func (r CreateRegularCalendarRequest) toInput() service.CreateInput {
	return service.CreateInput{
		StudentID:        r.StudentID,
		TeacherID:        r.TeacherID,
		CourseID:         r.CourseID,
		OrderedPackageID: r.OrderedPackageID,
		RegularStartTime: *r.RegularStartTime,
		AdminNote:        r.AdminNote,
	}
}

// EditRegularCalendarRequest тело PUT /regular-calendars/{id}; отсутствующие поля не меняются
type EditRegularCalendarRequest struct {
	RegularStartTime *int64  `json:"regular_start_time" validate:"omitempty,gte=0"`
	TeacherID        *int64  `json:"teacher_id" validate:"omitempty,gt=0"`
	CourseID         *int64  `json:"course_id" validate:"omitempty,gt=0"`
	OrderedPackageID *int64  `json:"ordered_package_id" validate:"omitempty,gt=0"`
	Status           *string `json:"status"`
	CancelReason     *string `json:"cancel_reason" validate:"omitempty,max=2000"`
	AdminNote        *string `json:"admin_note" validate:"omitempty,max=2000"`
}

func (r EditRegularCalendarRequest) toDiff() service.RegularCalendarDiff {
	d := service.RegularCalendarDiff{
		RegularStartTime: r.RegularStartTime,
		TeacherID:        r.TeacherID,
		CourseID:         r.CourseID,
		OrderedPackageID: r.OrderedPackageID,
		CancelReason:     r.CancelReason,
		AdminNote:        r.AdminNote,
	}
	if r.Status != nil {
		s := model.RegularCalendarStatus(strings.ToUpper(strings.TrimSpace(*r.Status)))
		d.Status = &s
	}
	return d
}

// RequestCancelRequest тело PUT /regular-calendars/{id}/request-cancel.
// Пустая причина проверяется сервисом.
type RequestCancelRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// AutoScheduleAttemptRequest тело POST /regular-calendars/{id}/auto-schedule-attempts
type AutoScheduleAttemptRequest struct {
	Time      *time.Time     `json:"time"`
	Success   bool           `json:"success"`
	Message   string         `json:"message" validate:"required,max=2000"`
	BookingID *int64         `json:"booking_id" validate:"omitempty,gt=0"`
	MetaData  map[string]any `json:"meta_data"`
}

func (r AutoScheduleAttemptRequest) toAttempt() model.AutoScheduleAttempt {
	a := model.AutoScheduleAttempt{
		Success:   r.Success,
		Message:   r.Message,
		BookingID: r.BookingID,
		MetaData:  r.MetaData,
	}
	if r.Time != nil {
		a.Time = *r.Time
	}
	return a
}

// parseListFilter собирает фильтр из query: student_id, teacher_id, course_id,
// ordered_package_id, regular_start_time, status (через запятую), page, page_size
func parseListFilter(q url.Values) (repository.RegularCalendarFilter, error) {
	var f repository.RegularCalendarFilter
	var err error

	ids := map[string]**int64{
		"student_id":         &f.StudentID,
		"teacher_id":         &f.TeacherID,
		"course_id":          &f.CourseID,
		"ordered_package_id": &f.OrderedPackageID,
		"regular_start_time": &f.RegularStartTime,
	}
	for key, dst := range ids {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, fmt.Errorf("invalid %s: %q", key, raw)
		}
		*dst = &v
	}

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			s := model.RegularCalendarStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !s.IsValid() {
				return f, fmt.Errorf("invalid status: %q", part)
			}
			f.Statuses = append(f.Statuses, s)
		}
	}

	if f.Page, err = intParam(q, "page"); err != nil {
		return f, err
	}
	if f.PageSize, err = intParam(q, "page_size"); err != nil {
		return f, err
	}

	return f, nil
}

func intParam(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}
