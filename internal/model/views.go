package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/trainhub/training-platform/internal/schedule"
)

// Чистые адаптеры между каноническим списком занятий и легаси-формами.
// Никакого состояния: только маппинг, который синхронизатор и ручки
// используют для чтения/записи зеркал.

// PlanDocument — встроенная в бронирование копия план-записи.
type PlanDocument struct {
	DurationText string        `json:"duration"`
	Sessions     []PlanSession `json:"sessions"`
}

// EncodeSessions сериализует канонический список занятий в JSON-колонку.
func EncodeSessions(sessions []schedule.Session) (datatypes.JSON, error) {
	raw, err := json.Marshal(sessions)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// DecodeSessions разбирает каноническую колонку sessions.
func (b *Booking) DecodeSessions() ([]schedule.Session, error) {
	if len(b.Sessions) == 0 {
		return nil, nil
	}
	var sessions []schedule.Session
	if err := json.Unmarshal(b.Sessions, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DecodeSessionDates разбирает легаси-массив дат.
func (b *Booking) DecodeSessionDates() ([]time.Time, error) {
	if len(b.SessionDates) == 0 {
		return nil, nil
	}
	var dates []time.Time
	if err := json.Unmarshal(b.SessionDates, &dates); err != nil {
		return nil, err
	}
	return dates, nil
}

// DecodeSessionStatuses разбирает легаси-массив статусов.
func (b *Booking) DecodeSessionStatuses() ([]schedule.SessionStatus, error) {
	if len(b.SessionStatuses) == 0 {
		return nil, nil
	}
	var statuses []schedule.SessionStatus
	if err := json.Unmarshal(b.SessionStatuses, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// DecodePlanDoc разбирает встроенную копию план-документа.
func (b *Booking) DecodePlanDoc() (*PlanDocument, error) {
	if len(b.PlanDoc) == 0 {
		return nil, nil
	}
	var doc PlanDocument
	if err := json.Unmarshal(b.PlanDoc, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ApplySessions записывает канонический список и перестраивает все
// встроенные зеркала бронирования из него.
func (b *Booking) ApplySessions(sessions []schedule.Session) error {
	enc, err := EncodeSessions(sessions)
	if err != nil {
		return err
	}

	dates := make([]time.Time, 0, len(sessions))
	statuses := make([]schedule.SessionStatus, 0, len(sessions))
	for _, s := range sessions {
		dates = append(dates, s.Date)
		statuses = append(statuses, s.Status)
	}

	rawDates, err := json.Marshal(dates)
	if err != nil {
		return err
	}
	rawStatuses, err := json.Marshal(statuses)
	if err != nil {
		return err
	}
	rawDoc, err := json.Marshal(PlanDocument{
		DurationText: b.PlanDurationText(),
		Sessions:     PlanSessionsFrom(sessions),
	})
	if err != nil {
		return err
	}

	b.Sessions = enc
	b.SessionDates = datatypes.JSON(rawDates)
	b.SessionStatuses = datatypes.JSON(rawStatuses)
	b.PlanDoc = datatypes.JSON(rawDoc)
	return nil
}

// PlanDurationText — текст длительности для план-записи: производный для
// фиксированных тарифов, хранимый для custom.
func (b *Booking) PlanDurationText() string {
	if text, _, _, ok := schedule.TierSpec(b.Tier); ok {
		return text
	}
	return b.DurationText
}

// PlanSessionsFrom строит занятия план-записи из канонического списка.
// Номер дня — это стабильный seq занятия.
func PlanSessionsFrom(sessions []schedule.Session) []PlanSession {
	out := make([]PlanSession, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, PlanSession{
			Day:    s.Seq,
			Date:   s.Date,
			Time:   s.Date.Format("15:04"),
			Status: s.Status,
			Notes:  s.Notes,
		})
	}
	return out
}

// MergePlanSessions накатывает канонический список на существующие занятия
// план-записи, сохраняя принадлежащие плану поля (номер дня, время) там,
// где запись уже есть.
func MergePlanSessions(existing []PlanSession, sessions []schedule.Session) []PlanSession {
	out := make([]PlanSession, 0, len(sessions))
	for i, s := range sessions {
		ps := PlanSession{
			Day:    s.Seq,
			Date:   s.Date,
			Time:   s.Date.Format("15:04"),
			Status: s.Status,
			Notes:  s.Notes,
		}
		if i < len(existing) {
			ps.Day = existing[i].Day
			if existing[i].Time != "" {
				ps.Time = existing[i].Time
			}
		}
		out = append(out, ps)
	}
	return out
}

// SessionsFromPlan восстанавливает канонический вид из занятий план-записи.
func SessionsFromPlan(plan []PlanSession) []schedule.Session {
	out := make([]schedule.Session, 0, len(plan))
	for i, ps := range plan {
		seq := ps.Day
		if seq == 0 {
			seq = i + 1
		}
		status := ps.Status
		if !schedule.ValidSessionStatus(status) {
			status = schedule.SessionStatusPending
		}
		out = append(out, schedule.Session{
			Seq:    seq,
			Date:   ps.Date,
			Status: status,
			Notes:  ps.Notes,
		})
	}
	return out
}

// DecodeSessions разбирает массив занятий план-записи.
func (p *PlanRecord) DecodeSessions() ([]PlanSession, error) {
	if len(p.Sessions) == 0 {
		return nil, nil
	}
	var sessions []PlanSession
	if err := json.Unmarshal(p.Sessions, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// EncodePlanDocument сериализует встроенную копию план-документа.
func EncodePlanDocument(doc PlanDocument) (datatypes.JSON, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// EncodePlanSessions сериализует занятия план-записи.
func EncodePlanSessions(sessions []PlanSession) (datatypes.JSON, error) {
	raw, err := json.Marshal(sessions)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
