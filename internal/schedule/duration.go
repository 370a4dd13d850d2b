package schedule

import (
	"regexp"
	"strconv"
)

// PlanDuration — длительность плана, разобранная из свободного текста
// ("2 weeks", "10 days").
type PlanDuration struct {
	Weeks int
	Days  int
}

var (
	daysRe  = regexp.MustCompile(`(?i)(\d+)\s*day`)
	weeksRe = regexp.MustCompile(`(?i)(\d+)\s*week`)
)

// ParsePlanDuration разбирает свободный текст длительности в {weeks, days}.
// Если текст не распознан, возвращается дефолт в 5 дней — парсер тотален,
// кастомный план никогда не остаётся без длительности.
func ParsePlanDuration(text string) PlanDuration {
	var d PlanDuration
	if m := weeksRe.FindStringSubmatch(text); m != nil {
		d.Weeks, _ = strconv.Atoi(m[1])
	}
	if m := daysRe.FindStringSubmatch(text); m != nil {
		d.Days, _ = strconv.Atoi(m[1])
	}
	if d.Weeks == 0 && d.Days == 0 {
		d.Days = 5
	}
	return d
}
