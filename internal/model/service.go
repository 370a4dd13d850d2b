package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trainhub/training-platform/internal/schedule"
)

// services — услуга тренера с тарифной сеткой.
type Service struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	TrainerID uuid.UUID `gorm:"type:uuid;not null;index"`

	Name        string `gorm:"type:varchar(255);not null"`
	Description string `gorm:"type:text"`

	Tier schedule.Tier `gorm:"type:varchar(32);not null;index"`

	// Параметры кастомного плана. Для фиксированных тарифов не хранятся:
	// длительность и частота выводятся из Tier через schedule.TierSpec.
	DurationText string             `gorm:"type:varchar(64)"`
	Frequency    schedule.Frequency `gorm:"type:varchar(32)"`
	DaysPerWeek  int                `gorm:"type:smallint"`

	Price     decimal.Decimal `gorm:"type:numeric(10,2)"`
	BasePrice decimal.Decimal `gorm:"type:numeric(10,2)"`

	IsActive bool `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Trainer *Trainer `gorm:"foreignKey:TrainerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// PlanParams возвращает эффективные параметры расписания услуги:
// для фиксированных тарифов — производные от Tier, для custom — хранимые.
func (s *Service) PlanParams() (durationText string, freq schedule.Frequency, daysPerWeek int) {
	if text, f, n, ok := schedule.TierSpec(s.Tier); ok {
		return text, f, n
	}
	return s.DurationText, s.Frequency, s.DaysPerWeek
}
