package database

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inventory-backend/ledger"
	"inventory-backend/models"
)

// GormStore is the SQL ledger.Store. Every unit of work is one database
// transaction; Lock* methods take row locks with SELECT ... FOR UPDATE.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Atomic(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db})
	})
}

type gormTx struct {
	db *gorm.DB
}

// translate maps driver level errors onto ledger sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ledger.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &ledger.ConflictError{Details: err.Error()}
	}
	return err
}

func deleted(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (t *gormTx) forUpdate() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *gormTx) LockPart(id string) (*models.Part, error) {
	var part models.Part
	if err := t.forUpdate().First(&part, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &part, nil
}

func (t *gormTx) GetPart(id string) (*models.Part, error) {
	var part models.Part
	if err := t.db.First(&part, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &part, nil
}

func (t *gormTx) PartByNumber(number string) (*models.Part, error) {
	var part models.Part
	if err := t.db.Where("part_number = ?", number).First(&part).Error; err != nil {
		return nil, translate(err)
	}
	return &part, nil
}

func (t *gormTx) ListParts(filter ledger.PartFilter) ([]models.Part, error) {
	query := t.db.Model(&models.Part{})
	if filter.CategoryID != "" {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if s := strings.ToLower(strings.TrimSpace(filter.Search)); s != "" {
		like := "%" + s + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(part_number) LIKE ?", like, like)
	}
	if filter.LowStock {
		query = query.Where("stock < min_stock")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var parts []models.Part
	if err := query.Order("part_number").Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}

func (t *gormTx) CreatePart(part *models.Part) error {
	return translate(t.db.Omit(clause.Associations).Create(part).Error)
}

// UpdatePart and the other map updates run after the row was locked, so a
// zero RowsAffected (MySQL reports unchanged rows as 0) is not a miss.
func (t *gormTx) UpdatePart(id string, fields map[string]any) error {
	return translate(t.db.Model(&models.Part{}).Where("id = ?", id).Updates(fields).Error)
}

func (t *gormTx) SetStock(partID string, stock int) error {
	return translate(t.db.Model(&models.Part{}).Where("id = ?", partID).Update("stock", stock).Error)
}

func (t *gormTx) DeletePart(id string) error {
	return deleted(t.db.Where("id = ?", id).Delete(&models.Part{}))
}

func (t *gormTx) GetCategory(id string) (*models.Category, error) {
	var category models.Category
	if err := t.db.First(&category, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (t *gormTx) CreateCategory(category *models.Category) error {
	return translate(t.db.Create(category).Error)
}

func (t *gormTx) ListCategories() ([]models.Category, error) {
	var categories []models.Category
	if err := t.db.Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (t *gormTx) CreateTransaction(tr *models.Transaction) error {
	return translate(t.db.Omit("Items.Part").Create(tr).Error)
}

func (t *gormTx) LockTransaction(id string) (*models.Transaction, error) {
	var tr models.Transaction
	if err := t.forUpdate().First(&tr, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	if err := t.db.Where("transaction_id = ?", id).Order("position").Find(&tr.Items).Error; err != nil {
		return nil, err
	}
	return &tr, nil
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

func orderedInvoiceItems(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

func (t *gormTx) GetTransaction(id string) (*models.Transaction, error) {
	var tr models.Transaction
	if err := t.db.Preload("Items", orderedItems).First(&tr, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &tr, nil
}

func (t *gormTx) ListTransactions(filter ledger.TransactionFilter) ([]models.Transaction, error) {
	query := t.db.Model(&models.Transaction{}).Preload("Items", orderedItems)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.PartID != "" {
		touching := t.db.Model(&models.TransactionItem{}).Select("transaction_id").Where("part_id = ?", filter.PartID)
		query = query.Where("id IN (?)", touching)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var transactions []models.Transaction
	if err := query.Order("created_at DESC").Order("id DESC").Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

func (t *gormTx) UpdateTransaction(id string, fields map[string]any) error {
	return translate(t.db.Model(&models.Transaction{}).Where("id = ?", id).Updates(fields).Error)
}

func (t *gormTx) DeleteTransaction(id string) error {
	if err := t.db.Where("transaction_id = ?", id).Delete(&models.TransactionItem{}).Error; err != nil {
		return err
	}
	return deleted(t.db.Where("id = ?", id).Delete(&models.Transaction{}))
}

// NextInvoiceSequence increments the counter row under lock. Concurrent
// units queue on the row, so no two invoices share a number.
func (t *gormTx) NextInvoiceSequence() (int64, error) {
	counter := models.InvoiceCounter{Name: invoiceCounterName}
	if err := t.forUpdate().Where(&counter).FirstOrCreate(&counter).Error; err != nil {
		return 0, err
	}
	counter.Value++
	if err := t.db.Model(&models.InvoiceCounter{}).
		Where("name = ?", invoiceCounterName).
		Update("value", counter.Value).Error; err != nil {
		return 0, err
	}
	return counter.Value, nil
}

func (t *gormTx) CreateInvoice(invoice *models.Invoice) error {
	return translate(t.db.Create(invoice).Error)
}

func (t *gormTx) GetInvoice(id string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := t.db.Preload("Items", orderedInvoiceItems).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &invoice, nil
}

func (t *gormTx) InvoicesByTransaction(transactionID string) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := t.db.Preload("Items", orderedInvoiceItems).
		Where("transaction_id = ?", transactionID).
		Order("invoice_number").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (t *gormTx) UpdateInvoice(id string, fields map[string]any) error {
	return translate(t.db.Model(&models.Invoice{}).Where("id = ?", id).Updates(fields).Error)
}

func (t *gormTx) DeleteInvoice(id string) error {
	if err := t.db.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
		return err
	}
	return deleted(t.db.Where("id = ?", id).Delete(&models.Invoice{}))
}

func (t *gormTx) DeleteInvoicesByTransaction(transactionID string) (int64, error) {
	var ids []string
	if err := t.db.Model(&models.Invoice{}).Where("transaction_id = ?", transactionID).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := t.db.Where("invoice_id IN ?", ids).Delete(&models.InvoiceItem{}).Error; err != nil {
		return 0, err
	}
	res := t.db.Where("id IN ?", ids).Delete(&models.Invoice{})
	return res.RowsAffected, res.Error
}

func (t *gormTx) CountPartDependencies(partID string) (ledger.PartDependencies, error) {
	var deps ledger.PartDependencies
	if err := t.db.Model(&models.TransactionItem{}).Where("part_id = ?", partID).Count(&deps.TransactionItems).Error; err != nil {
		return deps, err
	}
	if err := t.db.Model(&models.InvoiceItem{}).Where("part_id = ?", partID).Count(&deps.InvoiceItems).Error; err != nil {
		return deps, err
	}
	return deps, nil
}

func (t *gormTx) DeletePartDependencies(partID string) ([]string, []string, error) {
	var transactionIDs, invoiceIDs []string
	if err := t.db.Model(&models.TransactionItem{}).Where("part_id = ?", partID).
		Distinct("transaction_id").Pluck("transaction_id", &transactionIDs).Error; err != nil {
		return nil, nil, err
	}
	if err := t.db.Model(&models.InvoiceItem{}).Where("part_id = ?", partID).
		Distinct("invoice_id").Pluck("invoice_id", &invoiceIDs).Error; err != nil {
		return nil, nil, err
	}
	if err := t.db.Where("part_id = ?", partID).Delete(&models.TransactionItem{}).Error; err != nil {
		return nil, nil, err
	}
	if err := t.db.Where("part_id = ?", partID).Delete(&models.InvoiceItem{}).Error; err != nil {
		return nil, nil, err
	}
	sort.Strings(transactionIDs)
	sort.Strings(invoiceIDs)
	return transactionIDs, invoiceIDs, nil
}
