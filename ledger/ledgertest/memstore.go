// Package ledgertest provides an in-memory ledger.Store for tests.
package ledgertest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"inventory-backend/ledger"
	"inventory-backend/models"
)

// MemStore runs every unit of work against a private copy of its state and
// swaps the copy in on success. Units are serialized by one mutex, which
// gives the same guarantee the row locks give in the SQL store.
type MemStore struct {
	mu       sync.Mutex
	state    *state
	failures map[string]error
	units    int
}

type state struct {
	parts        map[string]models.Part
	categories   map[string]models.Category
	transactions map[string]models.Transaction
	invoices     map[string]models.Invoice
	invoiceSeq   int64
	itemSeq      uint
}

func NewMemStore() *MemStore {
	return &MemStore{
		state: &state{
			parts:        map[string]models.Part{},
			categories:   map[string]models.Category{},
			transactions: map[string]models.Transaction{},
			invoices:     map[string]models.Invoice{},
		},
		failures: map[string]error{},
	}
}

// FailOn makes every later call of the named Tx method return err.
func (m *MemStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[method] = err
}

// ClearFailures removes every injected failure.
func (m *MemStore) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = map[string]error{}
}

func (m *MemStore) Atomic(ctx context.Context, fn func(tx ledger.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	m.units++
	work := m.state.clone()
	if err := fn(&memTx{s: work, failures: m.failures}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// Units reports how many units of work were started.
func (m *MemStore) Units() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.units
}

// SeedPart stores part directly, bypassing the ledger.
func (m *MemStore) SeedPart(part models.Part) models.Part {
	m.mu.Lock()
	defer m.mu.Unlock()
	if part.Id == "" {
		part.Id = uuid.NewString()
	}
	m.state.parts[part.Id] = part
	return part
}

func (m *MemStore) Part(id string) (models.Part, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.parts[id]
	return p, ok
}

func (m *MemStore) TransactionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.transactions)
}

func (m *MemStore) InvoiceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.invoices)
}

func (m *MemStore) Transaction(id string) (models.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.state.transactions[id]
	return cloneTransaction(t), ok
}

func (s *state) clone() *state {
	out := &state{
		parts:        make(map[string]models.Part, len(s.parts)),
		categories:   make(map[string]models.Category, len(s.categories)),
		transactions: make(map[string]models.Transaction, len(s.transactions)),
		invoices:     make(map[string]models.Invoice, len(s.invoices)),
		invoiceSeq:   s.invoiceSeq,
		itemSeq:      s.itemSeq,
	}
	for k, v := range s.parts {
		out.parts[k] = v
	}
	for k, v := range s.categories {
		out.categories[k] = v
	}
	for k, v := range s.transactions {
		out.transactions[k] = cloneTransaction(v)
	}
	for k, v := range s.invoices {
		out.invoices[k] = cloneInvoice(v)
	}
	return out
}

func cloneTransaction(t models.Transaction) models.Transaction {
	t.Items = append([]models.TransactionItem(nil), t.Items...)
	return t
}

func cloneInvoice(inv models.Invoice) models.Invoice {
	inv.Items = append([]models.InvoiceItem(nil), inv.Items...)
	return inv
}

type memTx struct {
	s        *state
	failures map[string]error
}

func (t *memTx) fail(method string) error {
	return t.failures[method]
}

func (t *memTx) LockPart(id string) (*models.Part, error) {
	if err := t.fail("LockPart"); err != nil {
		return nil, err
	}
	return t.GetPart(id)
}

func (t *memTx) GetPart(id string) (*models.Part, error) {
	p, ok := t.s.parts[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &p, nil
}

func (t *memTx) PartByNumber(number string) (*models.Part, error) {
	for _, p := range t.s.parts {
		if p.PartNumber == number {
			return &p, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (t *memTx) ListParts(filter ledger.PartFilter) ([]models.Part, error) {
	search := strings.ToLower(filter.Search)
	out := []models.Part{}
	for _, p := range t.s.parts {
		if filter.CategoryID != "" && (p.CategoryId == nil || *p.CategoryId != filter.CategoryID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.PartNumber), search) {
			continue
		}
		if filter.LowStock && !p.BelowMinimum() {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartNumber < out[j].PartNumber })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (t *memTx) CreatePart(part *models.Part) error {
	if err := t.fail("CreatePart"); err != nil {
		return err
	}
	if part.Id == "" {
		part.Id = uuid.NewString()
	}
	t.s.parts[part.Id] = *part
	return nil
}

func (t *memTx) UpdatePart(id string, fields map[string]any) error {
	p, ok := t.s.parts[id]
	if !ok {
		return ledger.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "name":
			p.Name = value.(string)
		case "part_number":
			p.PartNumber = value.(string)
		case "category_id":
			if value == nil {
				p.CategoryId = nil
			} else {
				id := value.(string)
				p.CategoryId = &id
			}
		case "min_stock":
			p.MinStock = value.(int)
		case "max_stock":
			v := value.(int)
			p.MaxStock = &v
		case "unit_price":
			p.UnitPrice = value.(decimal.Decimal)
		case "location":
			p.Location = value.(string)
		case "supplier":
			p.Supplier = value.(string)
		case "machine_models":
			p.MachineModels = value.(datatypes.JSON)
		default:
			return fmt.Errorf("memstore: unknown part column %q", key)
		}
	}
	t.s.parts[id] = p
	return nil
}

func (t *memTx) SetStock(partID string, stock int) error {
	if err := t.fail("SetStock"); err != nil {
		return err
	}
	p, ok := t.s.parts[partID]
	if !ok {
		return ledger.ErrNotFound
	}
	if stock < 0 {
		return fmt.Errorf("memstore: stock check constraint violated for part %s", partID)
	}
	p.Stock = stock
	t.s.parts[partID] = p
	return nil
}

func (t *memTx) DeletePart(id string) error {
	if err := t.fail("DeletePart"); err != nil {
		return err
	}
	for _, tr := range t.s.transactions {
		for _, item := range tr.Items {
			if item.PartId == id {
				return fmt.Errorf("memstore: part %s still referenced by transaction %s", id, tr.Id)
			}
		}
	}
	delete(t.s.parts, id)
	return nil
}

func (t *memTx) GetCategory(id string) (*models.Category, error) {
	c, ok := t.s.categories[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &c, nil
}

func (t *memTx) CreateCategory(category *models.Category) error {
	for _, c := range t.s.categories {
		if c.Name == category.Name {
			return &ledger.ConflictError{Details: "category " + c.Name + " already exists"}
		}
	}
	if category.Id == "" {
		category.Id = uuid.NewString()
	}
	t.s.categories[category.Id] = *category
	return nil
}

func (t *memTx) ListCategories() ([]models.Category, error) {
	out := make([]models.Category, 0, len(t.s.categories))
	for _, c := range t.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *memTx) CreateTransaction(tr *models.Transaction) error {
	if err := t.fail("CreateTransaction"); err != nil {
		return err
	}
	if tr.Id == "" {
		tr.Id = uuid.NewString()
	}
	for i := range tr.Items {
		t.s.itemSeq++
		tr.Items[i].ID = t.s.itemSeq
		tr.Items[i].TransactionId = tr.Id
	}
	t.s.transactions[tr.Id] = cloneTransaction(*tr)
	return nil
}

func (t *memTx) LockTransaction(id string) (*models.Transaction, error) {
	if err := t.fail("LockTransaction"); err != nil {
		return nil, err
	}
	return t.GetTransaction(id)
}

func (t *memTx) GetTransaction(id string) (*models.Transaction, error) {
	tr, ok := t.s.transactions[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	tr = cloneTransaction(tr)
	return &tr, nil
}

func (t *memTx) ListTransactions(filter ledger.TransactionFilter) ([]models.Transaction, error) {
	out := []models.Transaction{}
	for _, tr := range t.s.transactions {
		if filter.Type != "" && tr.Type != filter.Type {
			continue
		}
		if filter.PartID != "" && !touchesPart(tr, filter.PartID) {
			continue
		}
		out = append(out, cloneTransaction(tr))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Id > out[j].Id
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func touchesPart(tr models.Transaction, partID string) bool {
	for _, item := range tr.Items {
		if item.PartId == partID {
			return true
		}
	}
	return false
}

func (t *memTx) UpdateTransaction(id string, fields map[string]any) error {
	if err := t.fail("UpdateTransaction"); err != nil {
		return err
	}
	tr, ok := t.s.transactions[id]
	if !ok {
		return ledger.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "amount_paid":
			tr.AmountPaid = value.(decimal.Decimal)
		case "is_paid":
			tr.IsPaid = value.(bool)
		case "notes":
			tr.Notes = value.(string)
		case "total_amount":
			tr.TotalAmount = value.(decimal.Decimal)
		default:
			return fmt.Errorf("memstore: unknown transaction column %q", key)
		}
	}
	t.s.transactions[id] = tr
	return nil
}

func (t *memTx) DeleteTransaction(id string) error {
	if err := t.fail("DeleteTransaction"); err != nil {
		return err
	}
	if _, ok := t.s.transactions[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(t.s.transactions, id)
	return nil
}

func (t *memTx) NextInvoiceSequence() (int64, error) {
	if err := t.fail("NextInvoiceSequence"); err != nil {
		return 0, err
	}
	t.s.invoiceSeq++
	return t.s.invoiceSeq, nil
}

func (t *memTx) CreateInvoice(invoice *models.Invoice) error {
	if err := t.fail("CreateInvoice"); err != nil {
		return err
	}
	for _, existing := range t.s.invoices {
		if existing.InvoiceNumber == invoice.InvoiceNumber {
			return fmt.Errorf("memstore: duplicate invoice number %s", invoice.InvoiceNumber)
		}
	}
	if invoice.Id == "" {
		invoice.Id = uuid.NewString()
	}
	for i := range invoice.Items {
		t.s.itemSeq++
		invoice.Items[i].ID = t.s.itemSeq
		invoice.Items[i].InvoiceId = invoice.Id
	}
	t.s.invoices[invoice.Id] = cloneInvoice(*invoice)
	return nil
}

func (t *memTx) GetInvoice(id string) (*models.Invoice, error) {
	inv, ok := t.s.invoices[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	inv = cloneInvoice(inv)
	return &inv, nil
}

func (t *memTx) InvoicesByTransaction(transactionID string) ([]models.Invoice, error) {
	out := []models.Invoice{}
	for _, inv := range t.s.invoices {
		if inv.TransactionId == transactionID {
			out = append(out, cloneInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNumber < out[j].InvoiceNumber })
	return out, nil
}

func (t *memTx) UpdateInvoice(id string, fields map[string]any) error {
	inv, ok := t.s.invoices[id]
	if !ok {
		return ledger.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "total_amount":
			inv.TotalAmount = value.(decimal.Decimal)
		default:
			return fmt.Errorf("memstore: unknown invoice column %q", key)
		}
	}
	t.s.invoices[id] = inv
	return nil
}

func (t *memTx) DeleteInvoice(id string) error {
	if err := t.fail("DeleteInvoice"); err != nil {
		return err
	}
	if _, ok := t.s.invoices[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(t.s.invoices, id)
	return nil
}

func (t *memTx) DeleteInvoicesByTransaction(transactionID string) (int64, error) {
	if err := t.fail("DeleteInvoicesByTransaction"); err != nil {
		return 0, err
	}
	var n int64
	for id, inv := range t.s.invoices {
		if inv.TransactionId == transactionID {
			delete(t.s.invoices, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) CountPartDependencies(partID string) (ledger.PartDependencies, error) {
	var deps ledger.PartDependencies
	for _, tr := range t.s.transactions {
		for _, item := range tr.Items {
			if item.PartId == partID {
				deps.TransactionItems++
			}
		}
	}
	for _, inv := range t.s.invoices {
		for _, item := range inv.Items {
			if item.PartId == partID {
				deps.InvoiceItems++
			}
		}
	}
	return deps, nil
}

func (t *memTx) DeletePartDependencies(partID string) ([]string, []string, error) {
	var transactionIDs, invoiceIDs []string
	for id, tr := range t.s.transactions {
		kept := tr.Items[:0:0]
		for _, item := range tr.Items {
			if item.PartId != partID {
				kept = append(kept, item)
			}
		}
		if len(kept) != len(tr.Items) {
			tr.Items = kept
			t.s.transactions[id] = tr
			transactionIDs = append(transactionIDs, id)
		}
	}
	for id, inv := range t.s.invoices {
		kept := inv.Items[:0:0]
		for _, item := range inv.Items {
			if item.PartId != partID {
				kept = append(kept, item)
			}
		}
		if len(kept) != len(inv.Items) {
			inv.Items = kept
			t.s.invoices[id] = inv
			invoiceIDs = append(invoiceIDs, id)
		}
	}
	sort.Strings(transactionIDs)
	sort.Strings(invoiceIDs)
	return transactionIDs, invoiceIDs, nil
}
