package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"inventory-backend/events"
	"inventory-backend/models"
	"inventory-backend/utils"
)

type ItemRequest struct {
	PartID   string
	Quantity int
	// UnitPrice nil means the part's current price, frozen at creation.
	UnitPrice *decimal.Decimal
}

type CreateRequest struct {
	Type       models.MovementType
	Items      []ItemRequest
	Recipient  string
	Reason     string
	Notes      string
	IsPaid     bool
	AmountPaid *decimal.Decimal
	Currency   string
}

type StockWarning struct {
	PartID     string `json:"part_id"`
	PartNumber string `json:"part_number"`
	Stock      int    `json:"stock"`
	MinStock   int    `json:"min_stock"`
	MaxStock   *int   `json:"max_stock,omitempty"`
	Kind       string `json:"kind"`
}

const (
	WarningBelowMinimum = "below_minimum"
	WarningAboveMaximum = "above_maximum"
)

type CreateResult struct {
	Transaction models.Transaction `json:"transaction"`
	Invoices    []models.Invoice   `json:"invoices"`
	Warnings    []StockWarning     `json:"warnings,omitempty"`
}

func (r CreateRequest) validate() error {
	if _, err := RuleFor(r.Type); err != nil {
		return err
	}
	if len(r.Items) == 0 {
		return invalid("a transaction needs at least one item")
	}
	if r.Type == models.MovementOut && strings.TrimSpace(r.Recipient) == "" {
		return invalid("recipient is required for OUT transactions")
	}
	if r.AmountPaid != nil && r.AmountPaid.IsNegative() {
		return invalid("amount paid must not be negative")
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.PartID) == "" {
			return invalid("item %d: part id is required", i)
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return invalid("item %d: unit price must not be negative", i)
		}
	}
	return nil
}

// CreateTransaction validates every line against stock read inside the unit
// of work, persists the transaction, writes the new stock levels and, for
// OUT movements, derives the invoice pair. Either all of it lands or none.
func (s *Service) CreateTransaction(ctx context.Context, req CreateRequest) (res *CreateResult, err error) {
	ctx, span := s.startSpan(ctx, "CreateTransaction")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("transaction.type", string(req.Type)),
		attribute.Int("transaction.items", len(req.Items)),
	)

	if err := req.validate(); err != nil {
		return nil, err
	}

	err = s.atomic(ctx, "create transaction", func(tx Tx) error {
		var err error
		res, err = s.createInTx(tx, req)
		return err
	})
	if err != nil {
		s.logger.Info("Transaction rejected",
			zap.String("type", string(req.Type)),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(attribute.String("transaction.id", res.Transaction.Id))
	s.logger.Info("Transaction created",
		zap.String("transaction_id", res.Transaction.Id),
		zap.String("type", string(res.Transaction.Type)),
		zap.Int("items", len(res.Transaction.Items)),
		zap.String("total", res.Transaction.TotalAmount.StringFixed(2)),
		zap.Int("invoices", len(res.Invoices)),
	)
	s.warnStock(res.Warnings)
	s.publish(ctx, s.createdEvents(res)...)
	return res, nil
}

func (s *Service) createInTx(tx Tx, req CreateRequest) (*CreateResult, error) {
	rule, err := RuleFor(req.Type)
	if err != nil {
		return nil, err
	}

	parts, err := lockParts(tx, req.Items)
	if err != nil {
		return nil, err
	}

	running := make(map[string]int, len(parts))
	for id, part := range parts {
		running[id] = part.Stock
	}

	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = s.currency
	}

	t := models.Transaction{
		Id:        uuid.NewString(),
		Type:      req.Type,
		Recipient: strings.TrimSpace(req.Recipient),
		Reason:    strings.TrimSpace(req.Reason),
		Notes:     strings.TrimSpace(req.Notes),
		Currency:  currency,
		CreatedAt: s.now().UTC(),
	}

	for i, item := range req.Items {
		part := parts[item.PartID]
		prior := running[part.Id]

		next, err := rule.Apply(prior, item.Quantity)
		if err != nil {
			return nil, stockFailure(err, part, prior, item.Quantity, false)
		}
		running[part.Id] = next

		price := part.UnitPrice
		if item.UnitPrice != nil {
			price = *item.UnitPrice
		}
		price = utils.Round2(price)

		t.Items = append(t.Items, models.TransactionItem{
			TransactionId:  t.Id,
			Position:       i + 1,
			PartId:         part.Id,
			PartName:       part.Name,
			PartNumber:     part.PartNumber,
			Quantity:       item.Quantity,
			UnitPrice:      price,
			LineTotal:      utils.LineTotal(price, item.Quantity),
			PriorStock:     prior,
			ResultingStock: next,
		})
	}

	t.TotalAmount = t.SumItems()
	amountPaid := decimal.Zero
	if req.AmountPaid != nil {
		amountPaid = utils.Round2(*req.AmountPaid)
	}
	t.AmountPaid = amountPaid
	t.IsPaid = settled(req.IsPaid, amountPaid, t.TotalAmount)

	if err := tx.CreateTransaction(&t); err != nil {
		return nil, err
	}

	res := &CreateResult{Transaction: t}
	for _, id := range sortedKeys(running) {
		if running[id] == parts[id].Stock {
			continue
		}
		if err := tx.SetStock(id, running[id]); err != nil {
			return nil, err
		}
		parts[id].Stock = running[id]
		res.Warnings = append(res.Warnings, stockWarnings(parts[id])...)
	}

	if t.Type == models.MovementOut {
		invoices, err := s.deriveInTx(tx, &t)
		if err != nil {
			return nil, err
		}
		res.Invoices = invoices
	}
	return res, nil
}

// lockParts locks every referenced part once, in id order, so concurrent
// units touching the same parts cannot deadlock.
func lockParts(tx Tx, items []ItemRequest) (map[string]*models.Part, error) {
	parts := make(map[string]*models.Part, len(items))
	for _, item := range items {
		parts[item.PartID] = nil
	}
	for _, id := range sortedKeys(parts) {
		part, err := tx.LockPart(id)
		if err != nil {
			if isNotFound(err) {
				return nil, notFound("part", id)
			}
			return nil, err
		}
		parts[id] = part
	}
	return parts, nil
}

func stockFailure(err error, part *models.Part, available, requested int, reversal bool) error {
	if errors.Is(err, ErrInsufficientStock) {
		return &StockError{
			PartID:     part.Id,
			PartNumber: part.PartNumber,
			Available:  available,
			Requested:  requested,
			Reversal:   reversal,
		}
	}
	return err
}

func stockWarnings(part *models.Part) []StockWarning {
	var out []StockWarning
	if part.BelowMinimum() {
		out = append(out, StockWarning{PartID: part.Id, PartNumber: part.PartNumber, Stock: part.Stock, MinStock: part.MinStock, MaxStock: part.MaxStock, Kind: WarningBelowMinimum})
	}
	if part.AboveMaximum() {
		out = append(out, StockWarning{PartID: part.Id, PartNumber: part.PartNumber, Stock: part.Stock, MinStock: part.MinStock, MaxStock: part.MaxStock, Kind: WarningAboveMaximum})
	}
	return out
}

func (s *Service) warnStock(warnings []StockWarning) {
	for _, w := range warnings {
		s.logger.Warn("Part stock outside configured range",
			zap.String("part_id", w.PartID),
			zap.String("part_number", w.PartNumber),
			zap.Int("stock", w.Stock),
			zap.Int("min_stock", w.MinStock),
			zap.String("kind", w.Kind),
		)
	}
}

func (s *Service) createdEvents(res *CreateResult) []events.Event {
	now := s.now().UTC()
	evs := []events.Event{{
		Type:          events.TransactionCreated,
		TransactionID: res.Transaction.Id,
		OccurredAt:    now,
	}}
	return append(evs, invoiceEvents(res.Invoices, now)...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
