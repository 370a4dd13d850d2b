package schedule

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// DefaultHour/DefaultMinute — время занятия по умолчанию (09:00),
// если время не задано или не распарсилось.
const (
	DefaultHour   = 9
	DefaultMinute = 0
)

var timeOfDayRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ParseTimeOfDay разбирает строку вида "HH:MM" в пару час/минута.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	m := timeOfDayRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, ErrInvalidTimeOfDay
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, ErrInvalidTimeOfDay
	}
	return hour, minute, nil
}

// TimeOfDayOrDefault — тотальный вариант ParseTimeOfDay: пустая или
// некорректная строка даёт 09:00. Это задокументированный фолбэк,
// генератор расписания никогда не падает из-за времени.
func TimeOfDayOrDefault(s string) (hour, minute int) {
	h, m, err := ParseTimeOfDay(s)
	if err != nil {
		return DefaultHour, DefaultMinute
	}
	return h, m
}

// StampTime возвращает дату t с выставленным временем hour:minute
// (секунды и наносекунды обнуляются, часовой пояс сохраняется).
func StampTime(t time.Time, hour, minute int) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, hour, minute, 0, 0, t.Location())
}

// IsWeekend — суббота или воскресенье.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NextWeekday сдвигает дату вперёд до ближайшего буднего дня.
// Будний день возвращается как есть.
func NextWeekday(t time.Time) time.Time {
	for IsWeekend(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// mondayOf возвращает понедельник недели, в которую попадает t,
// с обнулённым временем. Используется для выравнивания недельных окон.
func mondayOf(t time.Time) time.Time {
	year, month, day := t.Date()
	d := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return d.AddDate(0, 0, -offset)
}
