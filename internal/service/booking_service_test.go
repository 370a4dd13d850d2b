package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/trainhub/training-platform/internal/model"
	"github.com/trainhub/training-platform/internal/repository"
	"github.com/trainhub/training-platform/internal/schedule"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Minimal schema for the engine tables (sqlite-friendly).
	schemaDDL := []string{
		`CREATE TABLE services (
			id TEXT PRIMARY KEY,
			trainer_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			tier TEXT NOT NULL,
			duration_text TEXT,
			frequency TEXT,
			days_per_week INTEGER,
			price NUMERIC,
			base_price NUMERIC,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE bookings (
			id TEXT PRIMARY KEY,
			service_id TEXT NOT NULL,
			trainer_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			pet_id TEXT,
			tier TEXT NOT NULL,
			duration_text TEXT,
			frequency TEXT,
			days_per_week INTEGER,
			start_date DATETIME NOT NULL,
			time_of_day TEXT,
			sessions TEXT,
			session_dates TEXT,
			session_statuses TEXT,
			plan_doc TEXT,
			overall_status TEXT NOT NULL DEFAULT 'pending',
			next_session_at DATETIME,
			accepted_at DATETIME,
			completed_at DATETIME,
			follow_up_required INTEGER NOT NULL DEFAULT 0,
			follow_up_date DATE,
			notes TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE plan_records (
			id TEXT PRIMARY KEY,
			booking_id TEXT NOT NULL UNIQUE,
			duration_text TEXT,
			sessions TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			created_at DATETIME,
			booking_id TEXT,
			trainer_id TEXT,
			details TEXT
		);`,
	}
	for _, stmt := range schemaDDL {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	return db
}

func newTestEngine(t *testing.T, db *gorm.DB, now time.Time) *BookingService {
	t.Helper()

	bookingRepo := repository.NewGormBookingRepository(db)
	planRepo := repository.NewGormPlanRecordRepository(db)
	sync := NewScheduleSynchronizer(bookingRepo, planRepo)
	sync.logf = t.Logf

	svc := NewBookingService(
		repository.NewGormServiceRepository(db),
		bookingRepo,
		planRepo,
		repository.NewGormEventRepository(db),
		sync,
	)
	svc.now = func() time.Time { return now }
	return svc
}

func seedService(t *testing.T, db *gorm.DB, svc *model.Service) {
	t.Helper()
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	if svc.TrainerID == uuid.Nil {
		svc.TrainerID = uuid.New()
	}
	if svc.Name == "" {
		svc.Name = "obedience course"
	}
	svc.IsActive = true
	if err := db.Create(svc).Error; err != nil {
		t.Fatalf("seed service: %v", err)
	}
}

func TestBookingLifecycle_EndToEnd(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)
	ctx := context.Background()

	svc := &model.Service{
		Tier:         schedule.TierCustom,
		DurationText: "10 days",
		Frequency:    schedule.FrequencyDaily,
	}
	seedService(t, db, svc)

	detail, err := engine.CreateBooking(ctx, CreateBookingInput{
		ServiceID: svc.ID,
		TrainerID: svc.TrainerID,
		ClientID:  uuid.New(),
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	if len(detail.Sessions) != 10 {
		t.Fatalf("expected 10 generated sessions, got %d", len(detail.Sessions))
	}
	if detail.Booking.OverallStatus != schedule.OverallPending {
		t.Fatalf("fresh booking must be pending, got %s", detail.Booking.OverallStatus)
	}
	if detail.Booking.AcceptedAt == nil {
		t.Fatalf("accepted_at must be stamped on creation")
	}
	if detail.Booking.NextSessionAt == nil || !detail.Booking.NextSessionAt.Equal(detail.Sessions[0].Date) {
		t.Fatalf("next session pointer must aim at the first session, got %v", detail.Booking.NextSessionAt)
	}

	id := detail.Booking.ID.String()

	// План-запись создаётся вместе с бронированием.
	var planCount int64
	if err := db.Model(&model.PlanRecord{}).Where("booking_id = ?", id).Count(&planCount).Error; err != nil {
		t.Fatalf("count plan records: %v", err)
	}
	if planCount != 1 {
		t.Fatalf("expected 1 plan record, got %d", planCount)
	}

	// Занятия 0..8 завершены — бронирование в работе.
	for i := 0; i < 9; i++ {
		detail, err = engine.UpdateSessionStatus(ctx, id, i, schedule.SessionStatusCompleted, nil)
		if err != nil {
			t.Fatalf("update session %d: %v", i, err)
		}
	}
	if detail.Booking.OverallStatus != schedule.OverallInProgress {
		t.Fatalf("expected in_progress after 9 of 10, got %s", detail.Booking.OverallStatus)
	}

	// Последнее занятие — агрегатор выводит completed.
	detail, err = engine.UpdateSessionStatus(ctx, id, 9, schedule.SessionStatusCompleted, nil)
	if err != nil {
		t.Fatalf("update last session: %v", err)
	}
	if detail.Booking.OverallStatus != schedule.OverallCompleted {
		t.Fatalf("expected completed, got %s", detail.Booking.OverallStatus)
	}
	if detail.Booking.CompletedAt == nil {
		t.Fatalf("derived completion must stamp completed_at")
	}

	before := detail.Sessions

	// Расширение на 3 дня возвращает план в работу.
	detail, err = engine.ExtendBooking(ctx, id, ExtendBookingInput{AdditionalDays: 3})
	if err != nil {
		t.Fatalf("extend booking: %v", err)
	}
	if len(detail.Sessions) != 13 {
		t.Fatalf("expected 13 sessions after extension, got %d", len(detail.Sessions))
	}
	if detail.Booking.OverallStatus != schedule.OverallInProgress {
		t.Fatalf("extension must revert status to in_progress, got %s", detail.Booking.OverallStatus)
	}

	// Расширение строго дописывает: прежние занятия не тронуты.
	for i, s := range before {
		after := detail.Sessions[i]
		if !after.Date.Equal(s.Date) || after.Status != s.Status || after.Notes != s.Notes || after.Seq != s.Seq {
			t.Fatalf("existing session %d mutated by extension: %+v vs %+v", i, s, after)
		}
	}
	for i := 10; i < 13; i++ {
		s := detail.Sessions[i]
		if s.Status != schedule.SessionStatusPending {
			t.Fatalf("appended session %d must be pending, got %s", i, s.Status)
		}
		if s.Seq != i+1 {
			t.Fatalf("appended session %d must continue numbering, got seq %d", i, s.Seq)
		}
	}
	// Новый блок стартует на следующий день после последнего занятия.
	wantStart := before[len(before)-1].Date.AddDate(0, 0, 1)
	if !detail.Sessions[10].Date.Equal(wantStart) {
		t.Fatalf("extension must start at %v, got %v", wantStart, detail.Sessions[10].Date)
	}

	// Принудительное завершение — авторитетный переход.
	followUp := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	detail, err = engine.ForceCompleteBooking(ctx, id, ForceCompleteInput{
		FollowUpRequired: true,
		FollowUpDate:     &followUp,
		Notes:            "recheck recall drills",
	})
	if err != nil {
		t.Fatalf("force complete: %v", err)
	}
	if detail.Booking.OverallStatus != schedule.OverallCompleted {
		t.Fatalf("force complete must set completed, got %s", detail.Booking.OverallStatus)
	}
	if !detail.Booking.FollowUpRequired || detail.Booking.FollowUpDate == nil {
		t.Fatalf("follow-up metadata lost: %+v", detail.Booking)
	}

	// Перечитанное состояние совпадает.
	detail, err = engine.GetBooking(ctx, id)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if detail.Booking.OverallStatus != schedule.OverallCompleted {
		t.Fatalf("persisted status mismatch: %s", detail.Booking.OverallStatus)
	}
	if len(detail.Sessions) != 13 {
		t.Fatalf("persisted session list mismatch: %d", len(detail.Sessions))
	}
}

func TestUpdateSessionStatus_ReconciliationConvergence(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)
	ctx := context.Background()

	svc := &model.Service{Tier: schedule.Tier1}
	seedService(t, db, svc)

	created, err := engine.CreateBooking(ctx, CreateBookingInput{
		ServiceID: svc.ID,
		TrainerID: svc.TrainerID,
		ClientID:  uuid.New(),
		StartDate: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		TimeOfDay: "10:30",
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	id := created.Booking.ID.String()

	// Имитируем легаси-документ: канонический массив и встроенный план
	// стёрты, остались только корневые массивы дат и статусов.
	err = db.Model(&model.Booking{}).Where("id = ?", id).
		Updates(map[string]any{"sessions": nil, "plan_doc": nil}).Error
	if err != nil {
		t.Fatalf("strip canonical copies: %v", err)
	}

	notes := "came through the legacy path"
	detail, err := engine.UpdateSessionStatus(ctx, id, 2, schedule.SessionStatusCompleted, &notes)
	if err != nil {
		t.Fatalf("update via legacy shape: %v", err)
	}
	if detail.Sessions[2].Status != schedule.SessionStatusCompleted {
		t.Fatalf("mutation lost in response: %+v", detail.Sessions[2])
	}

	// Сходимость: повторное чтение видит изменение независимо от того,
	// в какой копии жили данные.
	detail, err = engine.GetBooking(ctx, id)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if len(detail.Sessions) != 7 {
		t.Fatalf("expected 7 sessions, got %d", len(detail.Sessions))
	}
	if detail.Sessions[2].Status != schedule.SessionStatusCompleted {
		t.Fatalf("mutated session not visible after re-read: %+v", detail.Sessions[2])
	}
	if detail.Booking.OverallStatus != schedule.OverallInProgress {
		t.Fatalf("expected in_progress, got %s", detail.Booking.OverallStatus)
	}

	// Пост-проверка записи: план-запись и встроенная копия сведены.
	plan, err := repository.NewGormPlanRecordRepository(db).GetByBookingID(ctx, id)
	if err != nil {
		t.Fatalf("load plan record: %v", err)
	}
	planSessions, err := plan.DecodeSessions()
	if err != nil {
		t.Fatalf("decode plan sessions: %v", err)
	}
	if planSessions[2].Status != schedule.SessionStatusCompleted || planSessions[2].Notes != notes {
		t.Fatalf("plan record not updated: %+v", planSessions[2])
	}

	b, err := repository.NewGormBookingRepository(db).GetByID(ctx, id)
	if err != nil {
		t.Fatalf("load booking: %v", err)
	}
	doc, err := b.DecodePlanDoc()
	if err != nil {
		t.Fatalf("decode embedded plan: %v", err)
	}
	if doc == nil || !planSessionsEqual(doc.Sessions, planSessions) {
		t.Fatalf("embedded plan copy diverged from plan record")
	}
}

func TestUpdateSessionStatus_DateArrayOnlyShape(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)
	ctx := context.Background()

	svc := &model.Service{Tier: schedule.Tier1}
	seedService(t, db, svc)

	created, err := engine.CreateBooking(ctx, CreateBookingInput{
		ServiceID: svc.ID,
		TrainerID: svc.TrainerID,
		ClientID:  uuid.New(),
		StartDate: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		TimeOfDay: "10:30",
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	id := created.Booking.ID.String()

	// Самая старая форма документа: только корневой массив дат — ни
	// канонического списка, ни статусов, ни план-записи.
	err = db.Model(&model.Booking{}).Where("id = ?", id).
		Updates(map[string]any{"sessions": nil, "plan_doc": nil, "session_statuses": nil}).Error
	if err != nil {
		t.Fatalf("strip to date array: %v", err)
	}
	if err := db.Where("booking_id = ?", id).Delete(&model.PlanRecord{}).Error; err != nil {
		t.Fatalf("drop plan record: %v", err)
	}

	detail, err := engine.UpdateSessionStatus(ctx, id, 2, schedule.SessionStatusCompleted, nil)
	if err != nil {
		t.Fatalf("update via date-array shape: %v", err)
	}
	if detail.Sessions[2].Status != schedule.SessionStatusCompleted {
		t.Fatalf("mutation lost in response: %+v", detail.Sessions[2])
	}

	// Точечный апдейт по пустому каноническому массиву невозможен — запись
	// обязана пройти через полный фолбэк, а не отчитаться об успехе.
	detail, err = engine.GetBooking(ctx, id)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if len(detail.Sessions) != 7 {
		t.Fatalf("expected 7 sessions, got %d", len(detail.Sessions))
	}
	if detail.Sessions[2].Status != schedule.SessionStatusCompleted {
		t.Fatalf("update silently lost on date-array shape: %+v", detail.Sessions[2])
	}
	if detail.Booking.OverallStatus != schedule.OverallInProgress {
		t.Fatalf("expected in_progress, got %s", detail.Booking.OverallStatus)
	}

	// Фолбэк восстанавливает все зеркала из сведённого списка.
	b, err := repository.NewGormBookingRepository(db).GetByID(ctx, id)
	if err != nil {
		t.Fatalf("load booking: %v", err)
	}
	canonical, err := b.DecodeSessions()
	if err != nil {
		t.Fatalf("decode canonical sessions: %v", err)
	}
	if len(canonical) != 7 || canonical[2].Status != schedule.SessionStatusCompleted {
		t.Fatalf("canonical mirror not rebuilt: %+v", canonical)
	}
	statuses, err := b.DecodeSessionStatuses()
	if err != nil {
		t.Fatalf("decode statuses: %v", err)
	}
	if len(statuses) != 7 || statuses[2] != schedule.SessionStatusCompleted {
		t.Fatalf("status mirror not rebuilt: %+v", statuses)
	}
	doc, err := b.DecodePlanDoc()
	if err != nil {
		t.Fatalf("decode embedded plan: %v", err)
	}
	if doc == nil || len(doc.Sessions) != 7 || doc.Sessions[2].Status != schedule.SessionStatusCompleted {
		t.Fatalf("embedded plan mirror not rebuilt: %+v", doc)
	}
}

func TestUpdateSessionStatus_PlanRecordWinsPostWrite(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)
	ctx := context.Background()

	svc := &model.Service{Tier: schedule.Tier1}
	seedService(t, db, svc)

	created, err := engine.CreateBooking(ctx, CreateBookingInput{
		ServiceID: svc.ID,
		TrainerID: svc.TrainerID,
		ClientID:  uuid.New(),
		StartDate: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	id := created.Booking.ID.String()

	// План-запись "ушла вперёд": тренер переименовал дни.
	plan, err := repository.NewGormPlanRecordRepository(db).GetByBookingID(ctx, id)
	if err != nil {
		t.Fatalf("load plan record: %v", err)
	}
	planSessions, err := plan.DecodeSessions()
	if err != nil {
		t.Fatalf("decode plan sessions: %v", err)
	}
	planSessions[0].Day = 100
	if err := repository.NewGormPlanRecordRepository(db).UpdateSessions(ctx, id, planSessions); err != nil {
		t.Fatalf("mutate plan record: %v", err)
	}

	if _, err := engine.UpdateSessionStatus(ctx, id, 1, schedule.SessionStatusCompleted, nil); err != nil {
		t.Fatalf("update session: %v", err)
	}

	// После записи встроенная копия перезаписана из план-записи.
	b, err := repository.NewGormBookingRepository(db).GetByID(ctx, id)
	if err != nil {
		t.Fatalf("load booking: %v", err)
	}
	doc, err := b.DecodePlanDoc()
	if err != nil {
		t.Fatalf("decode embedded plan: %v", err)
	}
	if doc == nil || len(doc.Sessions) == 0 || doc.Sessions[0].Day != 100 {
		t.Fatalf("plan record must win post-write reconciliation: %+v", doc)
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := engine.CreateBooking(ctx, CreateBookingInput{TrainerID: uuid.New(), ClientID: uuid.New(), StartDate: start})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("missing service_id: expected ErrValidation, got %v", err)
	}

	_, err = engine.CreateBooking(ctx, CreateBookingInput{ServiceID: uuid.New(), TrainerID: uuid.New(), ClientID: uuid.New()})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("missing start_date: expected ErrValidation, got %v", err)
	}

	_, err = engine.CreateBooking(ctx, CreateBookingInput{ServiceID: uuid.New(), TrainerID: uuid.New(), ClientID: uuid.New(), StartDate: start})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown service: expected ErrNotFound, got %v", err)
	}

	badDPW := &model.Service{
		Tier:         schedule.TierCustom,
		DurationText: "2 weeks",
		Frequency:    schedule.FrequencyDaysPerWeek,
		DaysPerWeek:  9,
	}
	seedService(t, db, badDPW)

	_, err = engine.CreateBooking(ctx, CreateBookingInput{ServiceID: badDPW.ID, TrainerID: badDPW.TrainerID, ClientID: uuid.New(), StartDate: start})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("days_per_week out of range: expected ErrValidation, got %v", err)
	}
}

func TestUpdateSessionStatus_Errors(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	svc := &model.Service{Tier: schedule.Tier1}
	seedService(t, db, svc)

	created, err := engine.CreateBooking(ctx, CreateBookingInput{
		ServiceID: svc.ID,
		TrainerID: svc.TrainerID,
		ClientID:  uuid.New(),
		StartDate: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	id := created.Booking.ID.String()

	if _, err := engine.UpdateSessionStatus(ctx, id, 0, "done", nil); !errors.Is(err, schedule.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := engine.UpdateSessionStatus(ctx, id, 7, schedule.SessionStatusCompleted, nil); !errors.Is(err, schedule.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := engine.UpdateSessionStatus(ctx, uuid.New().String(), 0, schedule.SessionStatusCompleted, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExtendBooking_Validation(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := engine.ExtendBooking(ctx, uuid.New().String(), ExtendBookingInput{AdditionalDays: 0}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero days, got %v", err)
	}
	if _, err := engine.ExtendBooking(ctx, uuid.New().String(), ExtendBookingInput{AdditionalDays: 3}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
