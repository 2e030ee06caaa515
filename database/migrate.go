package database

import (
	"fmt"

	"gorm.io/gorm"

	"inventory-backend/models"
)

const invoiceCounterName = "invoice"

// Migrate applies the (idempotent) schema:
// - AutoMigrate (tables/columns/index tags)
// - CHECK constraints on stock and money columns (postgres only)
// - the invoice counter row
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.Category{},
			&models.Part{},
			&models.Transaction{},
			&models.TransactionItem{},
			&models.Invoice{},
			&models.InvoiceItem{},
			&models.InvoiceCounter{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		if tx.Dialector.Name() == "postgres" {
			for _, c := range checks {
				if err := tx.Exec(c.statement()).Error; err != nil {
					return fmt.Errorf("check constraint %s failed: %w", c.name, err)
				}
			}
		}

		counter := models.InvoiceCounter{Name: invoiceCounterName}
		if err := tx.Where(&counter).FirstOrCreate(&counter).Error; err != nil {
			return fmt.Errorf("seed invoice counter failed: %w", err)
		}
		return nil
	})
}

type check struct {
	table string
	name  string
	expr  string
}

var checks = []check{
	{"parts", "chk_parts_stock_nonneg", "stock >= 0"},
	{"parts", "chk_parts_min_stock_nonneg", "min_stock >= 0"},
	{"parts", "chk_parts_unit_price_nonneg", "unit_price >= 0"},
	{"transaction_items", "chk_transaction_items_unit_price_nonneg", "unit_price >= 0"},
	{"transactions", "chk_transactions_amount_paid_nonneg", "amount_paid >= 0"},
	{"invoice_items", "chk_invoice_items_unit_price_nonneg", "unit_price >= 0"},
}

func (c check) statement() string {
	return fmt.Sprintf(`DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_constraint
		WHERE conrelid = '%[1]s'::regclass
		  AND conname  = '%[2]s'
	) THEN
		ALTER TABLE %[1]s
		ADD CONSTRAINT %[2]s
		CHECK (%[3]s);
	END IF;
END $$;`, c.table, c.name, c.expr)
}
