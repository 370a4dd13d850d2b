package model

import "gorm.io/gorm"

// AutoMigrate выполняет миграцию всех сущностей движка расписаний.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Trainer{},
		&Client{},
		&Pet{},
		&Service{},
		&Booking{},
		&PlanRecord{},
		&Event{},
	)
}
