package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/trainhub/training-platform/internal/schedule"
)

// bookings — бронирование плана занятий.
//
// Канонический список занятий лежит в Sessions. Колонки SessionDates,
// SessionStatuses и PlanDoc — легаси-зеркала той же последовательности,
// оставшиеся от старых клиентов: плоский массив дат, отдельный массив
// статусов и встроенная копия план-документа. Это представления одной
// последовательности, а не независимые данные; их согласованность
// поддерживает синхронизатор расписаний.
type Booking struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	ServiceID uuid.UUID  `gorm:"type:uuid;not null;index"`
	TrainerID uuid.UUID  `gorm:"type:uuid;not null;index"`
	ClientID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	PetID     *uuid.UUID `gorm:"type:uuid;index"`

	// Параметры плана копируются из услуги при создании, чтобы правка
	// услуги задним числом не меняла уже построенные расписания.
	Tier         schedule.Tier      `gorm:"type:varchar(32);not null"`
	DurationText string             `gorm:"type:varchar(64)"`
	Frequency    schedule.Frequency `gorm:"type:varchar(32)"`
	DaysPerWeek  int                `gorm:"type:smallint"`

	StartDate time.Time `gorm:"type:timestamp with time zone;not null"`
	TimeOfDay string    `gorm:"type:varchar(8)"`

	Sessions        datatypes.JSON `gorm:"type:jsonb"`
	SessionDates    datatypes.JSON `gorm:"type:jsonb"`
	SessionStatuses datatypes.JSON `gorm:"type:jsonb"`
	PlanDoc         datatypes.JSON `gorm:"column:plan_doc;type:jsonb"`

	OverallStatus schedule.OverallStatus `gorm:"type:varchar(32);not null;default:'pending';index"`

	// Ближайшее предстоящее занятие (первое с датой >= now).
	NextSessionAt *time.Time `gorm:"type:timestamp with time zone"`

	AcceptedAt  *time.Time `gorm:"type:timestamp with time zone"`
	CompletedAt *time.Time `gorm:"type:timestamp with time zone"`

	FollowUpRequired bool            `gorm:"not null;default:false"`
	FollowUpDate     *datatypes.Date `gorm:"type:date"`
	Notes            string          `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	// Навигационные поля (удобны для Preload).
	Service *Service `gorm:"foreignKey:ServiceID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Trainer *Trainer `gorm:"foreignKey:TrainerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Client  *Client  `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Pet     *Pet     `gorm:"foreignKey:PetID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}
