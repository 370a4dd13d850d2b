package schedule

import (
	"errors"
	"time"
)

// Статус отдельного занятия.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusMissed    SessionStatus = "missed"
)

// Общий статус бронирования, производный от статусов занятий.
// Cancelled выставляется только внешним переходом, агрегатор его не выводит.
type OverallStatus string

const (
	OverallPending    OverallStatus = "pending"
	OverallInProgress OverallStatus = "in_progress"
	OverallCompleted  OverallStatus = "completed"
	OverallCancelled  OverallStatus = "cancelled"
)

var (
	ErrIndexOutOfRange = errors.New("session index out of range")
	ErrInvalidStatus   = errors.New("invalid session status")
)

// Session — одно занятие плана. Seq присваивается при генерации и никогда
// не перенумеровывается: при расширении плана нумерация продолжается,
// а не начинается заново.
type Session struct {
	Seq    int           `json:"seq"`
	Date   time.Time     `json:"date"`
	Status SessionStatus `json:"status"`
	Notes  string        `json:"progress_notes"`
}

// ValidSessionStatus проверяет, что строка — один из трёх известных статусов.
func ValidSessionStatus(s SessionStatus) bool {
	switch s {
	case SessionStatusPending, SessionStatusCompleted, SessionStatusMissed:
		return true
	}
	return false
}

// NewSessions строит занятия по списку дат, все в статусе pending.
// Нумерация начинается с firstSeq.
func NewSessions(dates []time.Time, firstSeq int) []Session {
	sessions := make([]Session, 0, len(dates))
	for i, d := range dates {
		sessions = append(sessions, Session{
			Seq:    firstSeq + i,
			Date:   d,
			Status: SessionStatusPending,
		})
	}
	return sessions
}

// SetStatus меняет статус занятия по позиции. Заметки, если переданы,
// перезаписывают прежние (история не ведётся).
func SetStatus(sessions []Session, index int, status SessionStatus, notes *string) error {
	if index < 0 || index >= len(sessions) {
		return ErrIndexOutOfRange
	}
	if !ValidSessionStatus(status) {
		return ErrInvalidStatus
	}
	sessions[index].Status = status
	if notes != nil {
		sessions[index].Notes = *notes
	}
	return nil
}

// Overall выводит общий статус бронирования из статусов занятий:
//   - completed — список непуст и все занятия completed;
//   - in_progress — есть хотя бы одно completed;
//   - иначе pending.
//
// Занятие в статусе missed навсегда блокирует условие "все completed":
// такое бронирование агрегатор держит в in_progress, завершить его можно
// только явной операцией принудительного завершения. Поведение намеренно
// сохранено как есть, интерфейсы различают производное и принудительное
// завершение.
func Overall(sessions []Session) OverallStatus {
	if len(sessions) == 0 {
		return OverallPending
	}
	completed := 0
	for _, s := range sessions {
		if s.Status == SessionStatusCompleted {
			completed++
		}
	}
	switch {
	case completed == len(sessions):
		return OverallCompleted
	case completed > 0:
		return OverallInProgress
	default:
		return OverallPending
	}
}

// NextUpcoming возвращает индекс первого занятия с датой не раньше now.
// Если все занятия в прошлом — индекс последнего; для пустого списка -1.
func NextUpcoming(sessions []Session, now time.Time) int {
	if len(sessions) == 0 {
		return -1
	}
	for i, s := range sessions {
		if !s.Date.Before(now) {
			return i
		}
	}
	return len(sessions) - 1
}
