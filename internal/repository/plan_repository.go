package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/trainhub/training-platform/internal/model"
)

type PlanRecordRepository interface {
	// Создать план-запись.
	Create(ctx context.Context, plan *model.PlanRecord) error
	// Найти план-запись по бронированию.
	GetByBookingID(ctx context.Context, bookingID string) (*model.PlanRecord, error)
	// Обновить только массив занятий плана.
	UpdateSessions(ctx context.Context, bookingID string, sessions []model.PlanSession) error
	// Полное сохранение.
	Save(ctx context.Context, plan *model.PlanRecord) error
}

type GormPlanRecordRepository struct {
	db *gorm.DB
}

func NewGormPlanRecordRepository(db *gorm.DB) *GormPlanRecordRepository {
	return &GormPlanRecordRepository{db: db}
}

func (r *GormPlanRecordRepository) Create(ctx context.Context, plan *model.PlanRecord) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *GormPlanRecordRepository) GetByBookingID(ctx context.Context, bookingID string) (*model.PlanRecord, error) {
	var p model.PlanRecord
	if err := r.db.WithContext(ctx).First(&p, "booking_id = ?", bookingID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormPlanRecordRepository) UpdateSessions(
	ctx context.Context,
	bookingID string,
	sessions []model.PlanSession,
) error {
	enc, err := model.EncodePlanSessions(sessions)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(&model.PlanRecord{}).
		Where("booking_id = ?", bookingID).
		Update("sessions", enc)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormPlanRecordRepository) Save(ctx context.Context, plan *model.PlanRecord) error {
	return r.db.WithContext(ctx).Save(plan).Error
}
