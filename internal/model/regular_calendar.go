package model

import (
	"slices"
	"time"
)

type RegularCalendarStatus string

const (
	RegularCalendarStatusActive                        RegularCalendarStatus = "ACTIVE"
	RegularCalendarStatusActiveTeacherRequestCanceling RegularCalendarStatus = "ACTIVE_TEACHER_REQUEST_CANCELING"
	RegularCalendarStatusAdminCancel                   RegularCalendarStatus = "ADMIN_CANCEL"
	RegularCalendarStatusTeacherCancel                 RegularCalendarStatus = "TEACHER_CANCEL"
	RegularCalendarStatusExpired                       RegularCalendarStatus = "EXPIRED"
	RegularCalendarStatusFinished                      RegularCalendarStatus = "FINISHED"
)

// IsCancel отмена администратором или учителем
func (s RegularCalendarStatus) IsCancel() bool {
	return s == RegularCalendarStatusAdminCancel || s == RegularCalendarStatusTeacherCancel
}

// IsTerminal из этих статусов расписание уже не выходит
func (s RegularCalendarStatus) IsTerminal() bool {
	return s.IsCancel() || s == RegularCalendarStatusFinished
}

// OccupiesTime статусы, в которых расписание занимает время студента и учителя
func (s RegularCalendarStatus) OccupiesTime() bool {
	return s == RegularCalendarStatusActive ||
		s == RegularCalendarStatusActiveTeacherRequestCanceling ||
		s == RegularCalendarStatusExpired
}

// IsValid проверяет что статус известен
func (s RegularCalendarStatus) IsValid() bool {
	_, ok := regularCalendarTransitions[s]
	return ok
}

// OccupyingRegularCalendarStatuses статусы, участвующие в проверке конфликтов
var OccupyingRegularCalendarStatuses = []RegularCalendarStatus{
	RegularCalendarStatusActive,
	RegularCalendarStatusActiveTeacherRequestCanceling,
	RegularCalendarStatusExpired,
}

// Переходы, доступные при ручной правке. Ежедневная проверка пакетов
// меняет статус сама и эту таблицу не использует.
var regularCalendarTransitions = map[RegularCalendarStatus][]RegularCalendarStatus{
	RegularCalendarStatusActive: {
		RegularCalendarStatusActiveTeacherRequestCanceling,
		RegularCalendarStatusAdminCancel,
		RegularCalendarStatusTeacherCancel,
		RegularCalendarStatusExpired,
	},
	RegularCalendarStatusActiveTeacherRequestCanceling: {
		RegularCalendarStatusActive,
		RegularCalendarStatusAdminCancel,
		RegularCalendarStatusTeacherCancel,
	},
	RegularCalendarStatusExpired: {
		RegularCalendarStatusActive,
		RegularCalendarStatusFinished,
	},
	RegularCalendarStatusAdminCancel:   nil,
	RegularCalendarStatusTeacherCancel: nil,
	RegularCalendarStatusFinished:      nil,
}

// CanTransition проверяет допустимость перехода между статусами
func (s RegularCalendarStatus) CanTransition(to RegularCalendarStatus) bool {
	return slices.Contains(regularCalendarTransitions[s], to)
}

// AlertKind вид уже отправленного предупреждения
type AlertKind string

const (
	AlertPackageExpiringSoon AlertKind = "PACKAGE_EXPIRING_SOON"
	AlertLowClasses          AlertKind = "LOW_CLASSES"
)

// RegularCalendar еженедельное регулярное занятие студента с учителем по курсу
type RegularCalendar struct {
	ID                  int64                 `json:"id"`
	StudentID           int64                 `json:"student_id"`
	TeacherID           int64                 `json:"teacher_id"`
	CourseID            int64                 `json:"course_id"`
	OrderedPackageID    int64                 `json:"ordered_package_id"`
	RegularStartTime    int64                 `json:"regular_start_time"` // мс от понедельника 00:00 UTC
	Status              RegularCalendarStatus `json:"status"`
	CancelReason        string                `json:"cancel_reason"`
	AdminNote           string                `json:"admin_note"`
	Alerted             []AlertKind           `json:"alerted"`
	AutoSchedule        *AutoScheduleAttempt  `json:"auto_schedule,omitempty"`
	AutoScheduleHistory AutoScheduleHistory   `json:"auto_schedule_history"`
	FinishAt            *time.Time            `json:"finish_at,omitempty"`
	CreatedAt           time.Time             `json:"created_time"`
	UpdatedAt           time.Time             `json:"updated_time"`

	// Заполняются при чтении (не из БД)
	Student        *User           `json:"student,omitempty"`
	Teacher        *User           `json:"teacher,omitempty"`
	Course         *Course         `json:"course,omitempty"`
	OrderedPackage *OrderedPackage `json:"ordered_package,omitempty"`
}

// HasAlert проверяет было ли уже отправлено предупреждение
func (rc *RegularCalendar) HasAlert(kind AlertKind) bool {
	return slices.Contains(rc.Alerted, kind)
}

// MarkAlerted запоминает отправленное предупреждение
func (rc *RegularCalendar) MarkAlerted(kind AlertKind) {
	if !rc.HasAlert(kind) {
		rc.Alerted = append(rc.Alerted, kind)
	}
}

// Clone копия без гидрированных связей
func (rc *RegularCalendar) Clone() *RegularCalendar {
	c := *rc
	c.Alerted = slices.Clone(rc.Alerted)
	c.AutoScheduleHistory = slices.Clone(rc.AutoScheduleHistory)
	if rc.AutoSchedule != nil {
		a := *rc.AutoSchedule
		c.AutoSchedule = &a
	}
	c.Student, c.Teacher, c.Course, c.OrderedPackage = nil, nil, nil, nil
	return &c
}
