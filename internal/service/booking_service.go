package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/trainhub/training-platform/internal/model"
	"github.com/trainhub/training-platform/internal/repository"
	"github.com/trainhub/training-platform/internal/schedule"
)

// BookingService — движок бронирований: генерация расписания, трекинг
// статусов занятий, расширение плана и принудительное завершение.
// Вся работа с зеркалами расписания делегируется синхронизатору.
type BookingService struct {
	services repository.ServiceRepository
	bookings repository.BookingRepository
	plans    repository.PlanRecordRepository
	events   repository.EventRepository
	sync     *ScheduleSynchronizer

	// Переопределяется в тестах.
	now func() time.Time
}

func NewBookingService(
	services repository.ServiceRepository,
	bookings repository.BookingRepository,
	plans repository.PlanRecordRepository,
	events repository.EventRepository,
	sync *ScheduleSynchronizer,
) *BookingService {
	return &BookingService{
		services: services,
		bookings: bookings,
		plans:    plans,
		events:   events,
		sync:     sync,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// BookingDetail — бронирование со сведённым списком занятий плюс
// легаси-адаптеры (плоские массивы дат и статусов) для старых клиентов.
type BookingDetail struct {
	Booking         *model.Booking
	Sessions        []schedule.Session
	SessionDates    []time.Time
	SessionStatuses []schedule.SessionStatus
}

func newBookingDetail(b *model.Booking, sessions []schedule.Session) *BookingDetail {
	dates := make([]time.Time, 0, len(sessions))
	statuses := make([]schedule.SessionStatus, 0, len(sessions))
	for _, s := range sessions {
		dates = append(dates, s.Date)
		statuses = append(statuses, s.Status)
	}
	return &BookingDetail{
		Booking:         b,
		Sessions:        sessions,
		SessionDates:    dates,
		SessionStatuses: statuses,
	}
}

type CreateBookingInput struct {
	ServiceID uuid.UUID
	TrainerID uuid.UUID
	ClientID  uuid.UUID
	PetID     *uuid.UUID
	StartDate time.Time
	TimeOfDay string
}

// CreateBooking строит расписание по услуге и создаёт бронирование со всеми
// занятиями в статусе pending. Параметры плана копируются из услуги, чтобы
// её последующие правки не трогали историю.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*BookingDetail, error) {
	if in.ServiceID == uuid.Nil {
		return nil, validationErr("service_id is required")
	}
	if in.TrainerID == uuid.Nil {
		return nil, validationErr("trainer_id is required")
	}
	if in.ClientID == uuid.Nil {
		return nil, validationErr("client_id is required")
	}
	if in.StartDate.IsZero() {
		return nil, validationErr("start_date is required")
	}
	if in.TimeOfDay != "" {
		if _, _, err := schedule.ParseTimeOfDay(in.TimeOfDay); err != nil {
			return nil, validationErr("time_of_day must look like HH:MM")
		}
	}

	svc, err := s.services.GetByID(ctx, in.ServiceID.String())
	if err != nil {
		return nil, lookupErr(err, "service", in.ServiceID.String())
	}

	durationText, freq, daysPerWeek := svc.PlanParams()
	if svc.Tier == schedule.TierCustom && freq == schedule.FrequencyDaysPerWeek {
		if daysPerWeek < 1 || daysPerWeek > 6 {
			return nil, validationErr("days_per_week must be between 1 and 6")
		}
	}

	dates, err := schedule.Generate(schedule.Params{
		Tier:         svc.Tier,
		StartDate:    in.StartDate,
		TimeOfDay:    in.TimeOfDay,
		DurationText: durationText,
		Frequency:    freq,
		DaysPerWeek:  daysPerWeek,
	})
	if err != nil {
		return nil, validationErr("service %s: %v", svc.ID, err)
	}

	sessions := schedule.NewSessions(dates, 1)
	now := s.now()

	b := &model.Booking{
		ID:            uuid.New(),
		ServiceID:     svc.ID,
		TrainerID:     in.TrainerID,
		ClientID:      in.ClientID,
		PetID:         in.PetID,
		Tier:          svc.Tier,
		DurationText:  durationText,
		Frequency:     freq,
		DaysPerWeek:   daysPerWeek,
		StartDate:     in.StartDate,
		TimeOfDay:     in.TimeOfDay,
		OverallStatus: schedule.OverallPending,
		AcceptedAt:    &now,
	}
	if i := schedule.NextUpcoming(sessions, now); i >= 0 {
		b.NextSessionAt = &sessions[i].Date
	}
	if err := b.ApplySessions(sessions); err != nil {
		return nil, fmt.Errorf("encode sessions: %w", err)
	}

	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, storageErr("create booking", err)
	}

	// План-запись — вторичная копия: её отказ не валит создание.
	planSessions, err := model.EncodePlanSessions(model.PlanSessionsFrom(sessions))
	if err != nil {
		log.Printf("reconcile: booking %s: encode plan sessions: %v", b.ID, err)
	} else {
		plan := &model.PlanRecord{
			ID:           uuid.New(),
			BookingID:    b.ID,
			DurationText: b.PlanDurationText(),
			Sessions:     planSessions,
		}
		if cerr := s.plans.Create(ctx, plan); cerr != nil {
			log.Printf("reconcile: booking %s: create plan record: %v", b.ID, cerr)
		}
	}

	s.appendEvent(ctx, model.EventTypeBookingCreated, b, fmt.Sprintf("%d sessions generated", len(sessions)))

	return newBookingDetail(b, sessions), nil
}

// GetBooking возвращает бронирование со сведённым списком занятий.
// Если ни одна копия не сохранена, список регенерируется на лету —
// только в ответ, без записи.
func (s *BookingService) GetBooking(ctx context.Context, id string) (*BookingDetail, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "booking", id)
	}

	sessions, source := s.sync.Resolve(b)
	if source == SourceGenerated {
		log.Printf("reconcile: booking %s: no persisted session list; regenerated for response", id)
	}

	return newBookingDetail(b, sessions), nil
}

// UpdateSessionStatus меняет статус одного занятия по позиции, пересчитывает
// общий статус и разносит изменение по всем копиям расписания.
func (s *BookingService) UpdateSessionStatus(
	ctx context.Context,
	id string,
	index int,
	status schedule.SessionStatus,
	notes *string,
) (*BookingDetail, error) {
	if !schedule.ValidSessionStatus(status) {
		return nil, fmt.Errorf("%q: %w", status, schedule.ErrInvalidStatus)
	}

	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "booking", id)
	}
	plan := s.loadPlan(ctx, id)

	sessions, _ := s.sync.Resolve(b)
	if err := schedule.SetStatus(sessions, index, status, notes); err != nil {
		return nil, fmt.Errorf("booking %s: %w", id, err)
	}

	if err := s.sync.Propagate(ctx, b, plan, sessions, index); err != nil {
		return nil, storageErr("propagate session update", err)
	}

	if err := s.refreshDerivedStatus(ctx, b, sessions); err != nil {
		return nil, err
	}

	s.appendEvent(ctx, model.EventTypeSessionUpdated, b,
		fmt.Sprintf("session %d -> %s", index, status))

	return newBookingDetail(b, sessions), nil
}

type ExtendBookingInput struct {
	AdditionalDays int
	TimeOfDay      string
}

// ExtendBooking дописывает новый блок занятий в конец плана. Существующие
// занятия не переупорядочиваются и не меняются; новые стартуют на следующий
// день после последнего занятия (или после стартовой даты, если занятий
// нет) и наследуют частоту исходного тарифа.
func (s *BookingService) ExtendBooking(ctx context.Context, id string, in ExtendBookingInput) (*BookingDetail, error) {
	if in.AdditionalDays <= 0 {
		return nil, validationErr("additional_days must be positive")
	}
	if in.TimeOfDay != "" {
		if _, _, err := schedule.ParseTimeOfDay(in.TimeOfDay); err != nil {
			return nil, validationErr("time_of_day must look like HH:MM")
		}
	}

	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "booking", id)
	}
	plan := s.loadPlan(ctx, id)

	sessions, _ := s.sync.Resolve(b)

	baseStart := b.StartDate.AddDate(0, 0, 1)
	firstSeq := 1
	if len(sessions) > 0 {
		last := sessions[len(sessions)-1]
		baseStart = last.Date.AddDate(0, 0, 1)
		firstSeq = last.Seq + 1
	}

	timeOfDay := in.TimeOfDay
	if timeOfDay == "" {
		timeOfDay = b.TimeOfDay
	}

	freq := b.Frequency
	daysPerWeek := b.DaysPerWeek
	if _, tierFreq, tierDPW, ok := schedule.TierSpec(b.Tier); ok {
		freq = tierFreq
		daysPerWeek = tierDPW
	}

	// Дополнительные дни интерпретируются как длительность кастомного
	// блока с частотой исходного плана.
	newDates, err := schedule.Generate(schedule.Params{
		Tier:         schedule.TierCustom,
		StartDate:    baseStart,
		TimeOfDay:    timeOfDay,
		DurationText: fmt.Sprintf("%d days", in.AdditionalDays),
		Frequency:    freq,
		DaysPerWeek:  daysPerWeek,
	})
	if err != nil {
		return nil, validationErr("booking %s: %v", id, err)
	}

	appended := schedule.NewSessions(newDates, firstSeq)
	sessions = append(sessions, appended...)

	s.applyDerivedStatus(b, sessions)

	if err := s.sync.PropagateAll(ctx, b, plan, sessions); err != nil {
		return nil, storageErr("persist extended plan", err)
	}

	s.appendEvent(ctx, model.EventTypeBookingExtended, b,
		fmt.Sprintf("%d sessions appended", len(appended)))

	return newBookingDetail(b, sessions), nil
}

type ForceCompleteInput struct {
	FollowUpRequired bool
	FollowUpDate     *time.Time
	Notes            string
}

// ForceCompleteBooking — авторитетное завершение тренером, независимое от
// статусов занятий. Агрегатор здесь не участвует: операция всегда успешна
// для существующего бронирования.
func (s *BookingService) ForceCompleteBooking(ctx context.Context, id string, in ForceCompleteInput) (*BookingDetail, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "booking", id)
	}

	now := s.now()
	fields := map[string]any{
		"overall_status":     schedule.OverallCompleted,
		"completed_at":       now,
		"follow_up_required": in.FollowUpRequired,
	}
	if in.FollowUpDate != nil {
		fields["follow_up_date"] = datatypes.Date(*in.FollowUpDate)
	}
	if in.Notes != "" {
		fields["notes"] = in.Notes
	}

	if err := s.bookings.UpdateFields(ctx, id, fields); err != nil {
		return nil, storageErr("force complete booking", err)
	}

	b.OverallStatus = schedule.OverallCompleted
	b.CompletedAt = &now
	b.FollowUpRequired = in.FollowUpRequired
	if in.FollowUpDate != nil {
		d := datatypes.Date(*in.FollowUpDate)
		b.FollowUpDate = &d
	}
	if in.Notes != "" {
		b.Notes = in.Notes
	}

	s.appendEvent(ctx, model.EventTypeBookingCompleted, b, "force completed")

	sessions, _ := s.sync.Resolve(b)
	return newBookingDetail(b, sessions), nil
}

// ListBookings — бронирования тренера за период, постранично.
func (s *BookingService) ListBookings(
	ctx context.Context,
	trainerID string,
	from, to time.Time,
	page, pageSize int,
) (schedule.Page[model.Booking], error) {
	if trainerID == "" {
		return schedule.Page[model.Booking]{}, validationErr("trainer_id is required")
	}
	if from.IsZero() {
		from = time.Unix(0, 0)
	}
	if to.IsZero() {
		to = s.now().AddDate(10, 0, 0)
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	bookings, total, err := s.bookings.ListByTrainerAndRange(ctx, trainerID, from, to, pageSize, offset)
	if err != nil {
		return schedule.Page[model.Booking]{}, storageErr("list bookings", err)
	}

	return schedule.NewPage(bookings, page, pageSize, int(total)), nil
}

// refreshDerivedStatus пересчитывает общий статус и указатель на ближайшее
// занятие и сохраняет их. Cancelled — внешний переход, агрегатором не
// перетирается.
func (s *BookingService) refreshDerivedStatus(ctx context.Context, b *model.Booking, sessions []schedule.Session) error {
	s.applyDerivedStatus(b, sessions)

	fields := map[string]any{
		"overall_status":  b.OverallStatus,
		"next_session_at": b.NextSessionAt,
		"completed_at":    b.CompletedAt,
	}
	if err := s.bookings.UpdateFields(ctx, b.ID.String(), fields); err != nil {
		return storageErr("update booking status", err)
	}
	return nil
}

func (s *BookingService) applyDerivedStatus(b *model.Booking, sessions []schedule.Session) {
	now := s.now()

	if b.OverallStatus != schedule.OverallCancelled {
		overall := schedule.Overall(sessions)
		switch {
		case overall == schedule.OverallCompleted && b.CompletedAt == nil:
			b.CompletedAt = &now
		case overall != schedule.OverallCompleted:
			// Дописанные pending-занятия возвращают завершённый план
			// в работу.
			b.CompletedAt = nil
		}
		b.OverallStatus = overall
	}

	b.NextSessionAt = nil
	if i := schedule.NextUpcoming(sessions, now); i >= 0 {
		b.NextSessionAt = &sessions[i].Date
	}
}

func (s *BookingService) loadPlan(ctx context.Context, bookingID string) *model.PlanRecord {
	plan, err := s.plans.GetByBookingID(ctx, bookingID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("reconcile: booking %s: load plan record: %v", bookingID, err)
		}
		return nil
	}
	return plan
}

// appendEvent пишет событие аудита; отказ аудита не валит операцию.
func (s *BookingService) appendEvent(ctx context.Context, t model.EventType, b *model.Booking, details string) {
	bookingID := b.ID
	trainerID := b.TrainerID
	e := &model.Event{
		ID:        uuid.New(),
		EventType: t,
		BookingID: &bookingID,
		TrainerID: &trainerID,
		Details:   details,
	}
	if err := s.events.Append(ctx, e); err != nil {
		log.Printf("audit: booking %s: append %s: %v", b.ID, t, err)
	}
}
