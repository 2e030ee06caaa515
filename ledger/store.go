package ledger

import (
	"context"

	"inventory-backend/models"
)

// Store is the durable unit-of-work facility. Atomic commits everything fn
// wrote when fn returns nil and discards all of it otherwise.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the view of the store inside one unit of work. Lookups that miss
// return ErrNotFound. Lock* methods hold the row until the unit ends.
type Tx interface {
	LockPart(id string) (*models.Part, error)
	GetPart(id string) (*models.Part, error)
	PartByNumber(number string) (*models.Part, error)
	ListParts(filter PartFilter) ([]models.Part, error)
	CreatePart(part *models.Part) error
	UpdatePart(id string, fields map[string]any) error
	SetStock(partID string, stock int) error
	DeletePart(id string) error

	GetCategory(id string) (*models.Category, error)
	CreateCategory(category *models.Category) error
	ListCategories() ([]models.Category, error)

	CreateTransaction(t *models.Transaction) error
	LockTransaction(id string) (*models.Transaction, error)
	GetTransaction(id string) (*models.Transaction, error)
	ListTransactions(filter TransactionFilter) ([]models.Transaction, error)
	UpdateTransaction(id string, fields map[string]any) error
	DeleteTransaction(id string) error

	NextInvoiceSequence() (int64, error)
	CreateInvoice(invoice *models.Invoice) error
	GetInvoice(id string) (*models.Invoice, error)
	InvoicesByTransaction(transactionID string) ([]models.Invoice, error)
	UpdateInvoice(id string, fields map[string]any) error
	DeleteInvoice(id string) error
	DeleteInvoicesByTransaction(transactionID string) (int64, error)

	CountPartDependencies(partID string) (PartDependencies, error)
	// DeletePartDependencies removes every transaction item and invoice item
	// of the part and returns the ids of the parents it touched.
	DeletePartDependencies(partID string) (transactionIDs, invoiceIDs []string, err error)
}

type PartFilter struct {
	CategoryID string
	Search     string
	LowStock   bool
	Limit      int
}

type TransactionFilter struct {
	Type   models.MovementType
	PartID string
	Limit  int
}
