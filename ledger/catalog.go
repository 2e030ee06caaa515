package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"inventory-backend/models"
	"inventory-backend/utils"
)

// PartUpdate carries the editable, non-stock fields of a part.
type PartUpdate struct {
	Name          *string          `json:"name"`
	PartNumber    *string          `json:"part_number"`
	CategoryId    *string          `json:"category_id"`
	MinStock      *int             `json:"min_stock"`
	MaxStock      *int             `json:"max_stock"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	Location      *string          `json:"location"`
	Supplier      *string          `json:"supplier"`
	MachineModels *datatypes.JSON  `json:"machine_models"`
}

func (s *Service) CreateCategory(ctx context.Context, category *models.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return invalid("category name is required")
	}
	return s.atomic(ctx, "create category", func(tx Tx) error {
		return tx.CreateCategory(category)
	})
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.atomic(ctx, "list categories", func(tx Tx) error {
		var err error
		categories, err = tx.ListCategories()
		return err
	})
	return categories, err
}

// CreatePart registers a part with its opening stock. Later stock changes go
// through transactions only.
func (s *Service) CreatePart(ctx context.Context, part *models.Part) error {
	part.Name = strings.TrimSpace(part.Name)
	part.PartNumber = strings.TrimSpace(part.PartNumber)
	switch {
	case part.Name == "":
		return invalid("part name is required")
	case part.PartNumber == "":
		return invalid("part number is required")
	case part.Stock < 0:
		return invalid("stock must not be negative")
	case part.MinStock < 0:
		return invalid("minimum stock must not be negative")
	case part.MaxStock != nil && *part.MaxStock < part.MinStock:
		return invalid("maximum stock must not be below minimum stock")
	case part.UnitPrice.IsNegative():
		return invalid("unit price must not be negative")
	}
	part.UnitPrice = utils.Round2(part.UnitPrice)
	if part.CategoryId != nil && strings.TrimSpace(*part.CategoryId) == "" {
		part.CategoryId = nil
	}

	return s.atomic(ctx, "create part", func(tx Tx) error {
		if err := ensurePartNumberFree(tx, part.PartNumber, ""); err != nil {
			return err
		}
		if err := ensureCategory(tx, part.CategoryId); err != nil {
			return err
		}
		return tx.CreatePart(part)
	})
}

func (s *Service) GetPart(ctx context.Context, id string) (*models.Part, error) {
	var part *models.Part
	err := s.atomic(ctx, "get part", func(tx Tx) error {
		var err error
		part, err = tx.GetPart(id)
		if isNotFound(err) {
			return notFound("part", id)
		}
		return err
	})
	return part, err
}

func (s *Service) ListParts(ctx context.Context, filter PartFilter) ([]models.Part, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListSize
	}
	var parts []models.Part
	err := s.atomic(ctx, "list parts", func(tx Tx) error {
		var err error
		parts, err = tx.ListParts(filter)
		return err
	})
	return parts, err
}

// UpdatePart edits catalog fields. Price changes never reach existing
// transactions or invoices; their prices are frozen copies.
func (s *Service) UpdatePart(ctx context.Context, id string, upd PartUpdate) (*models.Part, error) {
	utils.NormalizePtrDTO(&upd)
	switch {
	case upd.Name != nil && *upd.Name == "":
		return nil, invalid("part name must not be empty")
	case upd.PartNumber != nil && *upd.PartNumber == "":
		return nil, invalid("part number must not be empty")
	case upd.MinStock != nil && *upd.MinStock < 0:
		return nil, invalid("minimum stock must not be negative")
	case upd.UnitPrice != nil && upd.UnitPrice.IsNegative():
		return nil, invalid("unit price must not be negative")
	}

	fields := utils.ChangedColumns(&upd)
	if len(fields) == 0 {
		return nil, invalid("nothing to update")
	}
	if upd.CategoryId != nil && *upd.CategoryId == "" {
		fields["category_id"] = nil
	}

	var part *models.Part
	err := s.atomic(ctx, "update part", func(tx Tx) error {
		current, err := tx.LockPart(id)
		if err != nil {
			if isNotFound(err) {
				return notFound("part", id)
			}
			return err
		}
		minStock, maxStock := current.MinStock, current.MaxStock
		if upd.MinStock != nil {
			minStock = *upd.MinStock
		}
		if upd.MaxStock != nil {
			maxStock = upd.MaxStock
		}
		if maxStock != nil && *maxStock < minStock {
			return invalid("maximum stock must not be below minimum stock")
		}
		if upd.PartNumber != nil && *upd.PartNumber != current.PartNumber {
			if err := ensurePartNumberFree(tx, *upd.PartNumber, id); err != nil {
				return err
			}
		}
		if err := ensureCategory(tx, upd.CategoryId); err != nil {
			return err
		}
		if err := tx.UpdatePart(id, fields); err != nil {
			return err
		}
		part, err = tx.GetPart(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

func ensurePartNumberFree(tx Tx, number, selfID string) error {
	existing, err := tx.PartByNumber(number)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.Id != selfID:
		return &ConflictError{Details: "part number " + number + " is already in use"}
	}
	return nil
}

func ensureCategory(tx Tx, categoryID *string) error {
	if categoryID == nil || *categoryID == "" {
		return nil
	}
	if _, err := tx.GetCategory(*categoryID); err != nil {
		if isNotFound(err) {
			return invalid("category %s does not exist", *categoryID)
		}
		return err
	}
	return nil
}

// GetTransaction returns a transaction with its invoices, looked up by the
// invoices' transaction reference.
func (s *Service) GetTransaction(ctx context.Context, id string) (*models.Transaction, []models.Invoice, error) {
	var (
		t        *models.Transaction
		invoices []models.Invoice
	)
	err := s.atomic(ctx, "get transaction", func(tx Tx) error {
		var err error
		t, err = tx.GetTransaction(id)
		if err != nil {
			if isNotFound(err) {
				return notFound("transaction", id)
			}
			return err
		}
		invoices, err = tx.InvoicesByTransaction(id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return t, invoices, nil
}

func (s *Service) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListSize
	}
	if filter.Type != "" {
		if _, err := RuleFor(filter.Type); err != nil {
			return nil, err
		}
	}
	var transactions []models.Transaction
	err := s.atomic(ctx, "list transactions", func(tx Tx) error {
		var err error
		transactions, err = tx.ListTransactions(filter)
		return err
	})
	return transactions, err
}
