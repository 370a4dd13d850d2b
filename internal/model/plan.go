package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/trainhub/training-platform/internal/schedule"
)

// PlanSession — занятие внутри план-записи. Day — стабильный номер дня
// ("день 3"), Time — время в виде "HH:MM"; оба поля принадлежат плану
// и при синхронизации статусов не перетираются.
type PlanSession struct {
	Day    int                    `json:"day"`
	Date   time.Time              `json:"date"`
	Time   string                 `json:"time"`
	Status schedule.SessionStatus `json:"status"`
	Notes  string                 `json:"notes"`
}

// plan_records — отдельно хранимая план-запись бронирования.
// Легаси-путь чтения: старые клиенты адресуют план по booking_id и ждут
// собственный массив занятий с номерами дней. После появления план-запись
// считается более долговечным, «тренерским» источником — при расхождении
// с встроенной копией в бронировании выигрывает она.
type PlanRecord struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	BookingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`

	DurationText string `gorm:"type:varchar(64)"`

	Sessions datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Booking *Booking `gorm:"foreignKey:BookingID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
