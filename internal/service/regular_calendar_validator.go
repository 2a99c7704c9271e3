package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
)

// RegularCalendarDiff изменения регулярного расписания; nil - поле не меняется
type RegularCalendarDiff struct {
	RegularStartTime *int64
	TeacherID        *int64
	CourseID         *int64
	OrderedPackageID *int64
	Status           *model.RegularCalendarStatus
	CancelReason     *string
	AdminNote        *string
}

// Normalize убирает поля, совпадающие с текущими значениями
func (d RegularCalendarDiff) Normalize(rc *model.RegularCalendar) RegularCalendarDiff {
	if d.RegularStartTime != nil && *d.RegularStartTime == rc.RegularStartTime {
		d.RegularStartTime = nil
	}
	if d.TeacherID != nil && *d.TeacherID == rc.TeacherID {
		d.TeacherID = nil
	}
	if d.CourseID != nil && *d.CourseID == rc.CourseID {
		d.CourseID = nil
	}
	if d.OrderedPackageID != nil && *d.OrderedPackageID == rc.OrderedPackageID {
		d.OrderedPackageID = nil
	}
	if d.Status != nil && *d.Status == rc.Status {
		d.Status = nil
	}
	return d
}

// changesSchedule меняется время, учитель или курс
func (d RegularCalendarDiff) changesSchedule() bool {
	return d.RegularStartTime != nil || d.TeacherID != nil || d.CourseID != nil
}

// ResolveTargetStatus итоговый статус после правки.
// Явно запрошенный статус важнее; смена пакета возвращает EXPIRED в ACTIVE,
// только если статус не запрошен.
func ResolveTargetStatus(rc *model.RegularCalendar, d RegularCalendarDiff) (model.RegularCalendarStatus, error) {
	if d.Status != nil {
		target := *d.Status
		if !target.IsValid() {
			return "", ErrInvalidStatus
		}
		if target == rc.Status {
			return target, nil
		}
		if !rc.Status.CanTransition(target) {
			return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rc.Status, target)
		}
		return target, nil
	}

	if d.OrderedPackageID != nil && rc.Status == model.RegularCalendarStatusExpired {
		return model.RegularCalendarStatusActive, nil
	}

	return rc.Status, nil
}

// RegularCalendarValidator проверки перед созданием и изменением регулярного расписания
type RegularCalendarValidator struct {
	calendars    RegularCalendarStore
	users        UserStore
	courses      CourseStore
	packages     OrderedPackageStore
	reservations ReservationStore
	now          Clock
}

func NewRegularCalendarValidator(stores Stores, now Clock) *RegularCalendarValidator {
	return &RegularCalendarValidator{
		calendars:    stores.RegularCalendars,
		users:        stores.Users,
		courses:      stores.Courses,
		packages:     stores.OrderedPackages,
		reservations: stores.Reservations,
		now:          now,
	}
}

// ValidateCreate проверяет новое регулярное расписание
func (v *RegularCalendarValidator) ValidateCreate(
	ctx context.Context,
	student, teacher *model.User,
	course *model.Course,
	pkg *model.OrderedPackage,
	regularStartTime int64,
) error {
	now := v.now()

	if !model.IsValidWeeklyOffset(regularStartTime) {
		return ErrInvalidTimestamp
	}
	if err := checkStudent(student); err != nil {
		return err
	}
	if err := checkTeacher(teacher); err != nil {
		return err
	}
	if err := checkRegularTime(student, teacher, regularStartTime); err != nil {
		return err
	}
	if err := checkCourse(course, pkg); err != nil {
		return err
	}
	if err := checkPackage(pkg, student.ID, now); err != nil {
		return err
	}
	if err := v.checkConflict(ctx, teacher.ID, student.ID, regularStartTime, 0); err != nil {
		return err
	}

	reservation, err := v.reservations.FindApprovedCovering(ctx, student.ID, now)
	if err != nil {
		return fmt.Errorf("check reservation requests: %w", err)
	}
	if reservation != nil {
		return ErrReservationConflict
	}

	return nil
}

// ValidateEdit повторяет только те проверки, которые затрагивают изменённые поля
func (v *RegularCalendarValidator) ValidateEdit(ctx context.Context, rc *model.RegularCalendar, d RegularCalendarDiff) error {
	now := v.now()

	target, err := ResolveTargetStatus(rc, d)
	if err != nil {
		return err
	}
	activating := target == model.RegularCalendarStatusActive && rc.Status != model.RegularCalendarStatusActive

	startTime := valueOr(d.RegularStartTime, rc.RegularStartTime)
	teacherID := valueOr(d.TeacherID, rc.TeacherID)
	courseID := valueOr(d.CourseID, rc.CourseID)
	packageID := valueOr(d.OrderedPackageID, rc.OrderedPackageID)

	if d.RegularStartTime != nil && !model.IsValidWeeklyOffset(startTime) {
		return ErrInvalidTimestamp
	}

	if d.RegularStartTime != nil || d.TeacherID != nil || activating {
		student, err := v.users.GetByID(ctx, rc.StudentID)
		if err != nil {
			return fmt.Errorf("get student: %w", err)
		}
		if err := checkStudent(student); err != nil {
			return err
		}
		teacher, err := v.users.GetByID(ctx, teacherID)
		if err != nil {
			return fmt.Errorf("get teacher: %w", err)
		}
		if err := checkTeacher(teacher); err != nil {
			return err
		}
		if err := checkRegularTime(student, teacher, startTime); err != nil {
			return err
		}
	}

	var pkg *model.OrderedPackage
	if d.CourseID != nil || d.OrderedPackageID != nil || activating {
		if pkg, err = v.packages.GetByID(ctx, packageID); err != nil {
			return fmt.Errorf("get ordered package: %w", err)
		}
	}

	if d.CourseID != nil || d.OrderedPackageID != nil {
		course, err := v.courses.GetByID(ctx, courseID)
		if err != nil {
			return fmt.Errorf("get course: %w", err)
		}
		if err := checkCourse(course, pkg); err != nil {
			return err
		}
	}

	if d.OrderedPackageID != nil || activating {
		if err := checkPackage(pkg, rc.StudentID, now); err != nil {
			return err
		}
	}

	if target.OccupiesTime() && (d.RegularStartTime != nil || d.TeacherID != nil || activating) {
		if err := v.checkConflict(ctx, teacherID, rc.StudentID, startTime, rc.ID); err != nil {
			return err
		}
	}

	return nil
}

func (v *RegularCalendarValidator) checkConflict(ctx context.Context, teacherID, studentID, regularStartTime, excludeID int64) error {
	conflicts, err := v.calendars.FindConflicting(ctx, teacherID, studentID, regularStartTime, excludeID)
	if err != nil {
		return fmt.Errorf("find conflicting regular calendars: %w", err)
	}
	if len(conflicts) > 0 {
		return ErrSlotConflict
	}
	return nil
}

func checkStudent(student *model.User) error {
	if student == nil || student.Role != model.UserRoleStudent {
		return ErrStudentNotFound
	}
	return nil
}

func checkTeacher(teacher *model.User) error {
	if teacher == nil || teacher.Role != model.UserRoleTeacher {
		return ErrTeacherNotFound
	}
	return nil
}

func checkRegularTime(student, teacher *model.User, regularStartTime int64) error {
	if !student.HasRegularTime(regularStartTime) {
		return fmt.Errorf("%w: student %d", ErrNoRegularTime, student.ID)
	}
	if !teacher.HasRegularTime(regularStartTime) {
		return fmt.Errorf("%w: teacher %d", ErrNoRegularTime, teacher.ID)
	}
	return nil
}

func checkCourse(course *model.Course, pkg *model.OrderedPackage) error {
	if course == nil {
		return ErrCourseNotFound
	}
	if pkg == nil {
		return ErrPackageNotFound
	}
	if !course.IncludesPackage(pkg.PackageID) {
		return ErrCourseNotPurchased
	}
	return nil
}

func checkPackage(pkg *model.OrderedPackage, studentID int64, now time.Time) error {
	switch {
	case pkg == nil:
		return ErrPackageNotFound
	case pkg.UserID != studentID:
		return ErrPackageNotOwned
	case !pkg.IsActivated(now):
		return ErrPackageInactive
	case pkg.IsExpired(now):
		return ErrPackageExpired
	case pkg.IsExhausted():
		return ErrPackageExhausted
	case !pkg.IsPaid():
		return ErrOrderUnpaid
	case pkg.IsPartiallyPaidInsufficient():
		return ErrPartiallyPaidInsufficient
	}
	return nil
}

func valueOr[T any](p *T, fallback T) T {
	if p != nil {
		return *p
	}
	return fallback
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
