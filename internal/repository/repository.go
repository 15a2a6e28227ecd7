package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Transaction 在同一事务中执行 fn，fn 返回错误时回滚
func Transaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// forUpdate 行级锁。sqlite 驱动会忽略该子句，整库写锁已保证串行
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// mapNotFound 将记录不存在转换为业务错误
func mapNotFound(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

// mapDuplicate 将唯一键冲突转换为业务错误，需开启 gorm TranslateError
func mapDuplicate(err, conflict error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return conflict
	}
	return err
}
