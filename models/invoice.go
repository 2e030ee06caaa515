package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CopyType string

const (
	CustomerCopy CopyType = "CUSTOMER_COPY"
	CompanyCopy  CopyType = "COMPANY_COPY"
)

// Invoice is a historical snapshot of an OUT transaction. It references the
// transaction by id only; nothing on Transaction points back.
type Invoice struct {
	Id            string          `json:"id" gorm:"primaryKey;size:36"`
	InvoiceNumber string          `json:"invoice_number" gorm:"size:64;not null;uniqueIndex"`
	TransactionId string          `json:"transaction_id" gorm:"size:36;not null;index"`
	CopyType      CopyType        `json:"copy_type" gorm:"type:VARCHAR(20);not null"`
	Recipient     string          `json:"recipient"`
	Currency      string          `json:"currency" gorm:"size:8"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	AmountPaid    decimal.Decimal `json:"amount_paid" gorm:"type:numeric(12,2);not null"`
	IsPaid        bool            `json:"is_paid"`
	Items         []InvoiceItem   `json:"items" gorm:"foreignKey:InvoiceId;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (invoice *Invoice) BeforeCreate(tx *gorm.DB) (err error) {
	if invoice.Id == "" {
		invoice.Id = uuid.NewString()
	}
	return
}

func (invoice *Invoice) SumItems() decimal.Decimal {
	total := decimal.Zero
	for _, item := range invoice.Items {
		total = total.Add(item.LineTotal)
	}
	return total
}

type InvoiceItem struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	InvoiceId  string          `json:"-" gorm:"size:36;not null;index"`
	PartId     string          `json:"part_id" gorm:"size:36;not null;index"`
	PartName   string          `json:"part_name"`
	PartNumber string          `json:"part_number"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	LineTotal  decimal.Decimal `json:"line_total" gorm:"type:numeric(12,2);not null"`
}

// InvoiceCounter is the row-locked sequence behind invoice numbers.
type InvoiceCounter struct {
	Name  string `gorm:"primaryKey;size:32"`
	Value int64  `gorm:"not null"`
}
