package service

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/trainhub/training-platform/internal/model"
	"github.com/trainhub/training-platform/internal/repository"
	"github.com/trainhub/training-platform/internal/schedule"
)

// Источник, из которого удалось восстановить список занятий.
type SessionSource int

const (
	SourceNone SessionSource = iota
	SourceCanonical
	SourcePlanDoc
	SourceDateArray
	SourceGenerated
)

// ScheduleSynchronizer отвечает за то, чтобы остальная система видела один
// канонический список занятий, хотя физически он может лежать в трёх местах:
// встроенный массив занятий, встроенная копия план-документа и корневые
// массивы дат/статусов (плюс отдельная план-запись). На чтении зеркала
// сводятся в одну последовательность, на записи изменение разносится по
// всем достижимым копиям. Расхождения зеркал не валят запрос: операция
// успешна, как только хотя бы одна копия надёжно записана.
type ScheduleSynchronizer struct {
	bookings repository.BookingRepository
	plans    repository.PlanRecordRepository

	// Переопределяется в тестах.
	logf func(format string, args ...any)
}

func NewScheduleSynchronizer(
	bookings repository.BookingRepository,
	plans repository.PlanRecordRepository,
) *ScheduleSynchronizer {
	return &ScheduleSynchronizer{
		bookings: bookings,
		plans:    plans,
		logf:     log.Printf,
	}
}

// Resolve восстанавливает список занятий бронирования. Порядок источников:
// канонический массив занятий, встроенный план-документ, корневой массив
// дат (статусы по умолчанию pending). Если не сохранено ничего, список
// регенерируется из параметров бронирования — только для ответа, без
// записи в хранилище.
func (s *ScheduleSynchronizer) Resolve(b *model.Booking) ([]schedule.Session, SessionSource) {
	sessions, err := b.DecodeSessions()
	if err != nil {
		s.logf("reconcile: booking %s: broken canonical sessions: %v", b.ID, err)
	}
	if len(sessions) > 0 {
		return sessions, SourceCanonical
	}

	doc, err := b.DecodePlanDoc()
	if err != nil {
		s.logf("reconcile: booking %s: broken embedded plan doc: %v", b.ID, err)
	}
	if doc != nil && len(doc.Sessions) > 0 {
		return model.SessionsFromPlan(doc.Sessions), SourcePlanDoc
	}

	dates, err := b.DecodeSessionDates()
	if err != nil {
		s.logf("reconcile: booking %s: broken session date array: %v", b.ID, err)
	}
	if len(dates) > 0 {
		statuses, _ := b.DecodeSessionStatuses()
		out := make([]schedule.Session, 0, len(dates))
		for i, d := range dates {
			status := schedule.SessionStatusPending
			if i < len(statuses) && schedule.ValidSessionStatus(statuses[i]) {
				status = statuses[i]
			}
			out = append(out, schedule.Session{Seq: i + 1, Date: d, Status: status})
		}
		return out, SourceDateArray
	}

	generated, err := schedule.Generate(bookingParams(b))
	if err != nil {
		s.logf("reconcile: booking %s: cannot regenerate sessions: %v", b.ID, err)
		return nil, SourceNone
	}
	return schedule.NewSessions(generated, 1), SourceGenerated
}

// Propagate разносит изменение одного занятия по всем копиям. Сначала
// точечное обновление по индексу (без перезаписи документа целиком);
// если оно не прошло — фолбэк: полный read-modify-save бронирования.
// План-запись обновляется во вторую очередь и только с предупреждением
// при неудаче. В конце — сверка встроенной копии план-документа.
func (s *ScheduleSynchronizer) Propagate(
	ctx context.Context,
	b *model.Booking,
	plan *model.PlanRecord,
	sessions []schedule.Session,
	index int,
) error {
	id := b.ID.String()

	if err := s.bookings.UpdateSessionAt(ctx, id, index, sessions[index]); err != nil {
		s.logf("reconcile: booking %s: targeted update failed: %v; falling back to full save", id, err)
		fresh, ferr := s.bookings.GetByID(ctx, id)
		if ferr != nil {
			return ferr
		}
		if ferr := fresh.ApplySessions(sessions); ferr != nil {
			return ferr
		}
		if ferr := s.bookings.Save(ctx, fresh); ferr != nil {
			return ferr
		}
	}

	s.updatePlanRecord(ctx, id, plan, sessions)
	s.reconcilePlanMirror(ctx, id)
	return nil
}

// PropagateAll — полная запись всех копий (создание, расширение плана).
// Документ бронирования — первичная запись, её ошибка фатальна; всё
// остальное best-effort.
func (s *ScheduleSynchronizer) PropagateAll(
	ctx context.Context,
	b *model.Booking,
	plan *model.PlanRecord,
	sessions []schedule.Session,
) error {
	if err := b.ApplySessions(sessions); err != nil {
		return err
	}
	if err := s.bookings.Save(ctx, b); err != nil {
		return err
	}

	id := b.ID.String()
	s.updatePlanRecord(ctx, id, plan, sessions)
	s.reconcilePlanMirror(ctx, id)
	return nil
}

// updatePlanRecord накатывает канонический список на план-запись, сохраняя
// принадлежащие ей поля (номера дней, время, текст длительности).
func (s *ScheduleSynchronizer) updatePlanRecord(
	ctx context.Context,
	bookingID string,
	plan *model.PlanRecord,
	sessions []schedule.Session,
) {
	if plan == nil {
		return
	}
	existing, err := plan.DecodeSessions()
	if err != nil {
		s.logf("reconcile: booking %s: broken plan record sessions: %v", bookingID, err)
	}
	merged := model.MergePlanSessions(existing, sessions)
	if err := s.plans.UpdateSessions(ctx, bookingID, merged); err != nil {
		s.logf("reconcile: booking %s: plan record update failed: %v", bookingID, err)
	}
}

// reconcilePlanMirror — пост-проверка после записи: если план-запись и
// встроенная её копия разошлись, встроенная копия перезаписывается из
// план-записи (она считается более долговечным источником). Любая ошибка
// здесь — предупреждение, исходный запрос уже успешен.
func (s *ScheduleSynchronizer) reconcilePlanMirror(ctx context.Context, bookingID string) {
	plan, err := s.plans.GetByBookingID(ctx, bookingID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logf("reconcile: booking %s: cannot re-read plan record: %v", bookingID, err)
		}
		return
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		s.logf("reconcile: booking %s: cannot re-read booking: %v", bookingID, err)
		return
	}

	planSessions, err := plan.DecodeSessions()
	if err != nil {
		s.logf("reconcile: booking %s: broken plan record sessions: %v", bookingID, err)
		return
	}

	var docSessions []model.PlanSession
	if doc, derr := b.DecodePlanDoc(); derr == nil && doc != nil {
		docSessions = doc.Sessions
	}

	if planSessionsEqual(planSessions, docSessions) {
		return
	}

	s.logf("reconcile: booking %s: embedded plan copy diverged from plan record; overwriting from plan record", bookingID)

	doc := model.PlanDocument{DurationText: plan.DurationText, Sessions: planSessions}
	encDoc, err := model.EncodePlanDocument(doc)
	if err != nil {
		s.logf("reconcile: booking %s: encode plan doc: %v", bookingID, err)
		return
	}
	if err := s.bookings.UpdateFields(ctx, bookingID, map[string]any{"plan_doc": encDoc}); err != nil {
		s.logf("reconcile: booking %s: overwrite embedded plan copy: %v", bookingID, err)
	}
}

func planSessionsEqual(a, b []model.PlanSession) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Day != b[i].Day ||
			a[i].Status != b[i].Status ||
			a[i].Notes != b[i].Notes ||
			a[i].Time != b[i].Time ||
			!a[i].Date.Equal(b[i].Date) {
			return false
		}
	}
	return true
}

// bookingParams восстанавливает вход генератора из денормализованных полей
// бронирования (копии параметров услуги на момент создания).
func bookingParams(b *model.Booking) schedule.Params {
	return schedule.Params{
		Tier:         b.Tier,
		StartDate:    b.StartDate,
		TimeOfDay:    b.TimeOfDay,
		DurationText: b.DurationText,
		Frequency:    b.Frequency,
		DaysPerWeek:  b.DaysPerWeek,
	}
}
