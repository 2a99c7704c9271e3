package notification

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
)

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("02.01.2006 15:04")
}

// FormatDate форматирует только дату
func FormatDate(t time.Time) string {
	return t.UTC().Format("02.01.2006")
}

// GetWeekdayName возвращает название дня недели на русском
func GetWeekdayName(weekday time.Weekday) string {
	names := []string{
		"Воскресенье",
		"Понедельник",
		"Вторник",
		"Среда",
		"Четверг",
		"Пятница",
		"Суббота",
	}
	if int(weekday) >= 0 && int(weekday) < len(names) {
		return names[weekday]
	}
	return "Неизвестно"
}

// FormatRegularTime недельное смещение в виде "Понедельник 18:30 (UTC)"
func FormatRegularTime(offset int64) string {
	hour, minute := model.OffsetClock(offset)
	return fmt.Sprintf("%s %02d:%02d (UTC)", GetWeekdayName(model.OffsetWeekday(offset)), hour, minute)
}
