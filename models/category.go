package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category struct {
	Id          string `json:"id" gorm:"primaryKey;size:36"`
	Name        string `json:"name" gorm:"size:128;not null;uniqueIndex"`
	Description string `json:"description"`
}

func (category *Category) BeforeCreate(tx *gorm.DB) (err error) {
	if category.Id == "" {
		category.Id = uuid.NewString()
	}
	return
}
