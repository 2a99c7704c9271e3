package model

import (
	"slices"
	"time"
)

const (
	// AutoScheduleHistoryLimit сколько попыток хранится в истории
	AutoScheduleHistoryLimit = 6
	// AutoScheduleCoalesceWindow попытки внутри окна склеиваются в одну запись
	AutoScheduleCoalesceWindow = 10 * time.Minute
)

// AutoScheduleAttempt попытка автоматически создать бронирование по регулярному расписанию
type AutoScheduleAttempt struct {
	Time      time.Time      `json:"time"`
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	BookingID *int64         `json:"booking_id,omitempty"`
	MetaData  map[string]any `json:"meta_data,omitempty"`
}

// AutoScheduleHistory ограниченная история попыток, старые записи вытесняются первыми.
// Методы не меняют исходный срез.
type AutoScheduleHistory []AutoScheduleAttempt

// Push добавляет запись и возвращает новую историю и вытесненную запись, если была
func (h AutoScheduleHistory) Push(a AutoScheduleAttempt) (AutoScheduleHistory, *AutoScheduleAttempt) {
	next := make(AutoScheduleHistory, 0, len(h)+1)
	next = append(next, h...)
	next = append(next, a)

	if len(next) <= AutoScheduleHistoryLimit {
		return next, nil
	}

	evicted := next[0]
	return slices.Clone(next[1:]), &evicted
}

// DropLast возвращает историю без последней записи
func (h AutoScheduleHistory) DropLast() AutoScheduleHistory {
	if len(h) == 0 {
		return AutoScheduleHistory{}
	}
	return slices.Clone(h[:len(h)-1])
}

// Last последняя запись истории
func (h AutoScheduleHistory) Last() *AutoScheduleAttempt {
	if len(h) == 0 {
		return nil
	}
	last := h[len(h)-1]
	return &last
}

// ApplyAutoScheduleAttempt записывает новую попытку в расписание.
// booking_id переносится из предыдущей попытки, если в новой его нет.
// Если предыдущее сообщение отличается и записано меньше 10 минут назад,
// сообщения склеиваются, а последняя запись истории заменяется новой.
func (rc *RegularCalendar) ApplyAutoScheduleAttempt(attempt AutoScheduleAttempt, now time.Time) AutoScheduleAttempt {
	if attempt.Time.IsZero() {
		attempt.Time = now
	}

	history := rc.AutoScheduleHistory
	if prev := rc.AutoSchedule; prev != nil {
		if attempt.BookingID == nil && prev.BookingID != nil {
			id := *prev.BookingID
			attempt.BookingID = &id
		}

		// попытка с временем раньше предыдущей не склеивается
		if d := attempt.Time.Sub(prev.Time); prev.Message != attempt.Message && d >= 0 && d < AutoScheduleCoalesceWindow {
			attempt.Message = prev.Message + "\n" + attempt.Message
			history = history.DropLast()
		}
	}

	history, _ = history.Push(attempt)

	rc.AutoSchedule = &attempt
	rc.AutoScheduleHistory = history
	return attempt
}
