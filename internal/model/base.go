package model

import (
	"time"

	"github.com/google/uuid"
)

// 所有业务表共用的主键与时间戳。不使用软删除：
// 退课后 (student, course) 唯一约束需要能立即重新插入。
// swagger:model
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func GenerateUUID() string {
	return uuid.New().String()
}
