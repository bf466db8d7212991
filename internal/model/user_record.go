package model

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// UserRecord 扁平化后的用户记录，关系库、topic 与宽表三处共用同一个 ID
type UserRecord struct {
	ID             uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required"`
	FirstName      string    `json:"first_name" gorm:"type:text" validate:"required"`
	LastName       string    `json:"last_name" gorm:"type:text" validate:"required"`
	Gender         string    `json:"gender" gorm:"type:text" validate:"required"`
	Address        string    `json:"address" gorm:"type:text" validate:"required"`
	PostCode       string    `json:"post_code" gorm:"type:text" validate:"required"`
	Email          string    `json:"email" gorm:"type:text" validate:"required"`
	Username       string    `json:"username" gorm:"type:text" validate:"required"`
	RegisteredDate string    `json:"registered_date" gorm:"type:text" validate:"required"` // ISO-8601，原样保存
	Phone          string    `json:"phone" gorm:"type:text" validate:"required"`
	Picture        string    `json:"picture" gorm:"type:text" validate:"required"`
}

// Validate 检查十一个字段是否全部有值
func (r *UserRecord) Validate() error {
	return validate.Struct(r)
}
