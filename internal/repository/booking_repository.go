package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/trainhub/training-platform/internal/model"
	"github.com/trainhub/training-platform/internal/schedule"
)

type BookingRepository interface {
	// Создать бронирование.
	Create(ctx context.Context, booking *model.Booking) error
	// Получить бронирование по ID.
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	// Полное сохранение документа (фолбэк и массовые изменения).
	Save(ctx context.Context, booking *model.Booking) error
	// Частичное обновление именованных полей.
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	// Точечное обновление одного занятия по индексу во всех встроенных
	// JSON-копиях, без перезаписи документа целиком.
	UpdateSessionAt(ctx context.Context, id string, index int, session schedule.Session) error
	// Список бронирований тренера за период с пагинацией.
	ListByTrainerAndRange(
		ctx context.Context,
		trainerID string,
		from, to time.Time,
		limit, offset int,
	) ([]model.Booking, int64, error)
}

// Реализация на GORM.
type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormBookingRepository) Save(ctx context.Context, booking *model.Booking) error {
	return r.db.WithContext(ctx).Save(booking).Error
}

func (r *GormBookingRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ?", id).
		Updates(fields).
		Error
}

// UpdateSessionAt пишет sessions[index], session_statuses[index] и
// plan_doc.sessions[index] одним UPDATE через jsonb_set/json_set.
// UPDATE срабатывает только если канонический массив достаточно длинный:
// json_set по несуществующему индексу — тихий no-op (sqlite) либо запись
// не в ту позицию (postgres с create_missing), поэтому короткий или пустой
// массив отфильтровывается прямо в WHERE. Если строка не найдена или индекс
// не резолвится — возвращается ошибка, и вызывающая сторона уходит в фолбэк
// с полным сохранением.
func (r *GormBookingRepository) UpdateSessionAt(
	ctx context.Context,
	id string,
	index int,
	session schedule.Session,
) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}

	idx := strconv.Itoa(index)
	var (
		fields      map[string]any
		lengthGuard string
	)

	if r.db.Dialector.Name() == "postgres" {
		lengthGuard = "jsonb_array_length(COALESCE(sessions, '[]'::jsonb)) > ?"
		fields = map[string]any{
			"sessions": gorm.Expr(
				"jsonb_set(COALESCE(sessions, '[]'::jsonb), ?::text[], ?::jsonb, true)",
				"{"+idx+"}", string(raw),
			),
			"session_statuses": gorm.Expr(
				"jsonb_set(COALESCE(session_statuses, '[]'::jsonb), ?::text[], to_jsonb(?::text), true)",
				"{"+idx+"}", string(session.Status),
			),
			"plan_doc": gorm.Expr(
				"CASE WHEN plan_doc IS NULL THEN NULL ELSE jsonb_set(plan_doc, ?::text[], ?::jsonb, false) END",
				"{sessions,"+idx+"}", string(raw),
			),
		}
	} else {
		// sqlite и прочие диалекты с json_set.
		lengthGuard = "json_array_length(COALESCE(sessions, '[]')) > ?"
		fields = map[string]any{
			"sessions": gorm.Expr(
				"json_set(COALESCE(sessions, '[]'), ?, json(?))",
				"$["+idx+"]", string(raw),
			),
			"session_statuses": gorm.Expr(
				"json_set(COALESCE(session_statuses, '[]'), ?, ?)",
				"$["+idx+"]", string(session.Status),
			),
			"plan_doc": gorm.Expr(
				"CASE WHEN plan_doc IS NULL THEN NULL ELSE json_set(plan_doc, ?, json(?)) END",
				"$.sessions["+idx+"]", string(raw),
			),
		}
	}

	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ?", id).
		Where(lengthGuard, index).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("booking %s: targeted update of session %d matched no rows", id, index)
	}
	return nil
}

func (r *GormBookingRepository) ListByTrainerAndRange(
	ctx context.Context,
	trainerID string,
	from, to time.Time,
	limit, offset int,
) ([]model.Booking, int64, error) {
	var (
		bookings []model.Booking
		total    int64
	)

	q := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("trainer_id = ?", trainerID).
		Where("created_at >= ? AND created_at <= ?", from, to)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	if err := q.Order("created_at DESC").Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}
