package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/trainhub/training-platform/internal/model"
)

type ServiceRepository interface {
	// Создать услугу.
	Create(ctx context.Context, svc *model.Service) error
	// Получить услугу по ID.
	GetByID(ctx context.Context, id string) (*model.Service, error)
	// Активные услуги тренера.
	ListByTrainer(ctx context.Context, trainerID string) ([]model.Service, error)
}

type GormServiceRepository struct {
	db *gorm.DB
}

func NewGormServiceRepository(db *gorm.DB) *GormServiceRepository {
	return &GormServiceRepository{db: db}
}

func (r *GormServiceRepository) Create(ctx context.Context, svc *model.Service) error {
	return r.db.WithContext(ctx).Create(svc).Error
}

func (r *GormServiceRepository) GetByID(ctx context.Context, id string) (*model.Service, error) {
	var s model.Service
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormServiceRepository) ListByTrainer(ctx context.Context, trainerID string) ([]model.Service, error) {
	var services []model.Service
	err := r.db.WithContext(ctx).
		Where("trainer_id = ?", trainerID).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&services).Error
	if err != nil {
		return nil, err
	}
	return services, nil
}
