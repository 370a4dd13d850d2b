package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Таксономия ошибок движка. Ошибки валидации и выхода за границы всегда
// доходят до вызывающего и никогда не глушатся; ошибки согласования зеркал
// — наоборот, только предупреждения в логе (см. синхронизатор).
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage unavailable")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// lookupErr переводит ошибку чтения из хранилища в таксономию движка.
func lookupErr(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w: %v", what, id, ErrStorage, err)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}
