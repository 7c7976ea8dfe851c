package service

import (
	"context"
	"errors"
	"fmt"

	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"

	"gorm.io/gorm"
)

// ledgerErr 把记录不存在转成 NotFoundError，其它错误带上下文返回
func ledgerErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkg.NewNotFoundError(what + " not found")
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func validPair(a, b uint64) error {
	if a == 0 || b == 0 {
		return pkg.NewValidationError("invalid person id")
	}
	if a == b {
		return pkg.NewValidationError("person ids must differ")
	}
	return nil
}

// requirePerson 关系的另一方必须是已注册的账号，否则 NotFound
func requirePerson(ctx context.Context, persons *mysql.PersonRepository, personID uint64) error {
	if _, err := persons.FindByID(ctx, personID); err != nil {
		return ledgerErr(err, "person")
	}
	return nil
}
