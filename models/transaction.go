package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// Transaction is one stock movement with its line items. Items never change
// after creation; only notes and payment fields do.
type Transaction struct {
	Id          string            `json:"id" gorm:"primaryKey;size:36"`
	Type        MovementType      `json:"type" gorm:"type:VARCHAR(20);not null;index"`
	Recipient   string            `json:"recipient"`
	Reason      string            `json:"reason"`
	Notes       string            `json:"notes"`
	Currency    string            `json:"currency" gorm:"size:8;not null"`
	TotalAmount decimal.Decimal   `json:"total_amount" gorm:"type:numeric(12,2);not null;default:0"`
	AmountPaid  decimal.Decimal   `json:"amount_paid" gorm:"type:numeric(12,2);not null;default:0"`
	IsPaid      bool              `json:"is_paid"`
	Items       []TransactionItem `json:"items" gorm:"foreignKey:TransactionId;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `json:"created_at" gorm:"index"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.Id == "" {
		t.Id = uuid.NewString()
	}
	return
}

// SumItems recomputes the total from the line totals.
func (t *Transaction) SumItems() decimal.Decimal {
	total := decimal.Zero
	for _, item := range t.Items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// TransactionItem freezes the part name, number and unit price as well as
// the stock level around the movement so the line can be reversed later.
type TransactionItem struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	TransactionId  string          `json:"-" gorm:"size:36;not null;index"`
	Position       int             `json:"position"`
	PartId         string          `json:"part_id" gorm:"size:36;not null;index"`
	Part           *Part           `json:"-" gorm:"foreignKey:PartId;references:Id;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	PartName       string          `json:"part_name"`
	PartNumber     string          `json:"part_number" gorm:"size:64"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	LineTotal      decimal.Decimal `json:"line_total" gorm:"type:numeric(12,2);not null"`
	PriorStock     int             `json:"prior_stock"`
	ResultingStock int             `json:"resulting_stock"`
}
