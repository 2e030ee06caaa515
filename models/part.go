package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Part struct {
	Id            string          `json:"id" gorm:"primaryKey;size:36"`
	Name          string          `json:"name" gorm:"not null"`
	PartNumber    string          `json:"part_number" gorm:"size:64;not null;uniqueIndex"`
	CategoryId    *string         `json:"category_id" gorm:"size:36;index"`
	Category      *Category       `json:"category,omitempty" gorm:"foreignKey:CategoryId;references:Id;constraint:OnDelete:SET NULL"`
	Stock         int             `json:"stock" gorm:"not null;default:0"`
	MinStock      int             `json:"min_stock" gorm:"not null;default:0"`
	MaxStock      *int            `json:"max_stock"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null;default:0"`
	Location      string          `json:"location"`
	Supplier      string          `json:"supplier"`
	MachineModels datatypes.JSON  `json:"machine_models"`
}

func (part *Part) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	if part.Id == "" {
		part.Id = uuid.NewString()
	}
	return
}

// BelowMinimum reports whether stock has dropped under the configured minimum.
func (part *Part) BelowMinimum() bool {
	return part.Stock < part.MinStock
}

// AboveMaximum reports whether stock exceeds the optional maximum.
func (part *Part) AboveMaximum() bool {
	return part.MaxStock != nil && part.Stock > *part.MaxStock
}
