package model

import "time"

// Единицы для недельного смещения (регулярное время хранится в миллисекундах от начала недели)
const (
	MsPerMinute int64 = 60 * 1000
	MsPerHour         = 60 * MsPerMinute
	MsPerDay          = 24 * MsPerHour
	MsPerWeek         = 7 * MsPerDay

	// RegularSlotStep шаг сетки регулярного расписания
	RegularSlotStep = 30 * MsPerMinute
	// DefaultLessonDuration длительность урока, если не указано иное
	DefaultLessonDuration = 30 * time.Minute
)

// WeekStart возвращает понедельник 00:00 UTC недели, в которую попадает t
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -daysSinceMonday)
}

// WeeklyOffset переводит абсолютное время в смещение внутри недели
func WeeklyOffset(t time.Time) int64 {
	return t.UTC().Sub(WeekStart(t)).Milliseconds()
}

// IsValidWeeklyOffset проверяет что смещение попадает в неделю и выровнено по сетке
func IsValidWeeklyOffset(offset int64) bool {
	return offset >= 0 && offset < MsPerWeek && offset%RegularSlotStep == 0
}

// NextOccurrence возвращает ближайшее наступление регулярного времени не раньше from
func NextOccurrence(offset int64, from time.Time) time.Time {
	candidate := WeekStart(from).Add(time.Duration(offset) * time.Millisecond)
	if candidate.Before(from) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// OffsetWeekday возвращает день недели для смещения
func OffsetWeekday(offset int64) time.Weekday {
	return time.Weekday((offset/MsPerDay + 1) % 7)
}

// OffsetClock возвращает часы и минуты для смещения
func OffsetClock(offset int64) (hour, minute int) {
	rest := offset % MsPerDay
	return int(rest / MsPerHour), int(rest % MsPerHour / MsPerMinute)
}
