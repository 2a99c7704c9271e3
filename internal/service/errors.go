package service

import (
	"errors"

	"github.com/Freeeeeet/tutor_schedule/internal/repository"
)

// Kind класс ошибки, по которому контроллер выбирает HTTP-код
type Kind int

const (
	KindPersistence Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindExternal:
		return "external"
	default:
		return "persistence"
	}
}

// Error доменная ошибка со стабильным кодом
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Ошибки валидации и переходов регулярного расписания
var (
	ErrNotFound                  = newError(KindNotFound, "NOT_FOUND", "regular calendar not found")
	ErrInvalidTimestamp          = newError(KindValidation, "INVALID_TIMESTAMP", "regular start time is not a valid weekly offset")
	ErrSlotConflict              = newError(KindConflict, "SLOT_CONFLICT", "teacher or student already has a regular calendar at this time")
	ErrStudentNotFound           = newError(KindNotFound, "STUDENT_NOT_FOUND", "student not found")
	ErrTeacherNotFound           = newError(KindNotFound, "TEACHER_NOT_FOUND", "teacher not found")
	ErrNoRegularTime             = newError(KindValidation, "NO_REGULAR_TIME", "regular start time is not in the user's regular times")
	ErrCourseNotFound            = newError(KindNotFound, "COURSE_NOT_FOUND", "course not found")
	ErrCourseNotPurchased        = newError(KindValidation, "COURSE_NOT_PURCHASED", "student has not purchased this course")
	ErrPackageNotFound           = newError(KindNotFound, "PACKAGE_NOT_FOUND", "ordered package not found")
	ErrPackageNotOwned           = newError(KindValidation, "PACKAGE_NOT_OWNED", "ordered package does not belong to the student")
	ErrPackageInactive           = newError(KindValidation, "PACKAGE_INACTIVE", "ordered package is not activated")
	ErrPackageExpired            = newError(KindValidation, "PACKAGE_EXPIRED", "ordered package has expired")
	ErrPackageExhausted          = newError(KindValidation, "PACKAGE_EXHAUSTED", "ordered package has no classes left")
	ErrOrderUnpaid               = newError(KindValidation, "ORDER_UNPAID", "order of the package is not paid")
	ErrPartiallyPaidInsufficient = newError(KindValidation, "PARTIALLY_PAID_INSUFFICIENT", "paid classes of the partially paid order are used up")
	ErrReservationConflict       = newError(KindConflict, "RESERVATION_CONFLICT", "student has an approved reservation request covering the current time")
	ErrInvalidStatus             = newError(KindValidation, "INVALID_STATUS", "unknown regular calendar status")
	ErrInvalidTransition         = newError(KindValidation, "INVALID_TRANSITION", "status transition is not allowed")
	ErrMissingCancelReason       = newError(KindValidation, "MISSING_CANCEL_REASON", "cancel reason is required")
	ErrMissingReason             = newError(KindValidation, "MISSING_REASON", "reason is required")
)

// KindOf определяет класс ошибки; неизвестные ошибки считаются ошибками хранилища
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// CodeOf стабильный код ошибки для ответа API
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL"
}

// mapDuplicate превращает нарушение уникального индекса в конфликт расписаний
func mapDuplicate(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrSlotConflict
	}
	return err
}
