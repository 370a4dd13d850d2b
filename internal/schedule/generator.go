package schedule

import (
	"errors"
	"time"
)

// Тариф тренировочного плана.
type Tier string

const (
	Tier1      Tier = "tier1"
	Tier2      Tier = "tier2"
	Tier3      Tier = "tier3"
	TierCustom Tier = "custom"
)

// Частота занятий для кастомных планов.
type Frequency string

const (
	FrequencyDaily       Frequency = "daily"
	FrequencyAlternate   Frequency = "alternate"
	FrequencyDaysPerWeek Frequency = "days_per_week"
)

var ErrUnknownTier = errors.New("unknown tier")

// TierSpec возвращает производные параметры расписания для фиксированных
// тарифов. Они нигде не хранятся — только выводятся из тарифа, чтобы
// правка услуги не могла разъехаться с её кэшированными полями.
func TierSpec(t Tier) (durationText string, freq Frequency, daysPerWeek int, ok bool) {
	switch t {
	case Tier1:
		return "1 week", FrequencyDaily, 0, true
	case Tier2:
		return "2 weeks", FrequencyAlternate, 0, true
	case Tier3:
		return "3 weeks", FrequencyDaysPerWeek, 5, true
	default:
		return "", "", 0, false
	}
}

// Params — вход генератора расписания. DurationText, Frequency и
// DaysPerWeek имеют смысл только для TierCustom.
type Params struct {
	Tier         Tier
	StartDate    time.Time
	TimeOfDay    string // "HH:MM", пусто = 09:00
	DurationText string
	Frequency    Frequency
	DaysPerWeek  int
}

// ClampDaysPerWeek приводит значение к допустимому диапазону [1, 6].
func ClampDaysPerWeek(n int) int {
	if n < 1 {
		return 1
	}
	if n > 6 {
		return 6
	}
	return n
}

// Generate строит упорядоченный список дат занятий по параметрам плана.
// Генерация детерминирована: одинаковые параметры всегда дают одинаковую
// последовательность. Ошибки возможны только для неизвестного тарифа;
// нераспознанная длительность и время дня уходят в задокументированные
// фолбэки (5 дней и 09:00).
func Generate(p Params) ([]time.Time, error) {
	hour, minute := TimeOfDayOrDefault(p.TimeOfDay)
	start := StampTime(p.StartDate, hour, minute)

	switch p.Tier {
	case Tier1:
		// 7 занятий подряд, день за днём.
		return consecutiveDays(start, 7), nil
	case Tier2:
		// 7 занятий через день (охват 13 календарных дней).
		return everyOtherDay(start, 7), nil
	case Tier3:
		// Ровно 15 занятий только по будням; старт переносится
		// с выходных на ближайший понедельник.
		return weekdaysOnly(start, 15), nil
	case TierCustom:
		return generateCustom(start, p), nil
	default:
		return nil, ErrUnknownTier
	}
}

func generateCustom(start time.Time, p Params) []time.Time {
	d := ParsePlanDuration(p.DurationText)

	switch p.Frequency {
	case FrequencyDaily:
		total := d.Days
		if d.Weeks > 0 {
			total = d.Weeks * 7
		}
		return consecutiveDays(start, total)
	case FrequencyAlternate:
		total := (d.Days + 1) / 2
		if d.Weeks > 0 {
			total = (d.Weeks*14 + 1) / 2
		}
		return everyOtherDay(start, total)
	case FrequencyDaysPerWeek:
		perWeek := ClampDaysPerWeek(p.DaysPerWeek)
		weeks := d.Weeks
		if weeks == 0 {
			weeks = (d.Days + perWeek - 1) / perWeek
		}
		return perWeekSchedule(start, weeks, perWeek)
	default:
		// Частота не задана: фолбэк на последовательные дни.
		total := d.Days
		if d.Weeks > 0 {
			total = d.Weeks * 5
		}
		return consecutiveDays(start, total)
	}
}

func consecutiveDays(start time.Time, count int) []time.Time {
	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		dates = append(dates, start.AddDate(0, 0, i))
	}
	return dates
}

func everyOtherDay(start time.Time, count int) []time.Time {
	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		dates = append(dates, start.AddDate(0, 0, 2*i))
	}
	return dates
}

func weekdaysOnly(start time.Time, count int) []time.Time {
	dates := make([]time.Time, 0, count)
	cur := NextWeekday(start)
	for len(dates) < count {
		if !IsWeekend(cur) {
			dates = append(dates, cur)
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return dates
}

// perWeekSchedule идёт по неделям, выровненным по понедельнику, начиная
// с недели, в которую попадает start (либо следующей, если start выпал
// на выходные). В каждом недельном окне размещается не больше perWeek
// занятий и только по будням; выходные не считаются.
func perWeekSchedule(start time.Time, weeks, perWeek int) []time.Time {
	var dates []time.Time

	cur := NextWeekday(start)
	week := mondayOf(cur)
	weeksDone := 0
	placed := 0

	for weeksDone < weeks {
		if mondayOf(cur) != week {
			// Перешли в следующее недельное окно.
			week = mondayOf(cur)
			weeksDone++
			placed = 0
			if weeksDone >= weeks {
				break
			}
		}
		if !IsWeekend(cur) && placed < perWeek {
			dates = append(dates, cur)
			placed++
		}
		cur = cur.AddDate(0, 0, 1)
	}

	return dates
}
