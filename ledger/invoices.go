package ledger

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"inventory-backend/events"
	"inventory-backend/models"
)

// copyOrder is the order in which the pair is numbered and returned.
var copyOrder = []models.CopyType{models.CustomerCopy, models.CompanyCopy}

// DeriveInvoices returns the invoice pair of an OUT transaction, creating it
// on first request. Repeated calls return the same two invoices.
func (s *Service) DeriveInvoices(ctx context.Context, transactionID string) (invoices []models.Invoice, err error) {
	ctx, span := s.startSpan(ctx, "DeriveInvoices")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	created := false
	err = s.atomic(ctx, "derive invoices", func(tx Tx) error {
		t, err := tx.LockTransaction(transactionID)
		if err != nil {
			if isNotFound(err) {
				return notFound("transaction", transactionID)
			}
			return err
		}
		existing, err := tx.InvoicesByTransaction(t.Id)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			invoices = existing
			return nil
		}
		invoices, err = s.deriveInTx(tx, t)
		created = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.Info("Invoices derived",
			zap.String("transaction_id", transactionID),
			zap.Int("invoices", len(invoices)),
		)
		s.publish(ctx, invoiceEvents(invoices, s.now().UTC())...)
	}
	return invoices, nil
}

// deriveInTx snapshots t into a customer and a company copy. Item data comes
// from the transaction lines only, never from the live parts.
func (s *Service) deriveInTx(tx Tx, t *models.Transaction) ([]models.Invoice, error) {
	existing, err := tx.InvoicesByTransaction(t.Id)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	if t.Type != models.MovementOut {
		return nil, invalid("invoices are only derived for OUT transactions, %s is %s", t.Id, t.Type)
	}

	items := make([]models.InvoiceItem, 0, len(t.Items))
	for _, line := range t.Items {
		items = append(items, models.InvoiceItem{
			PartId:     line.PartId,
			PartName:   line.PartName,
			PartNumber: line.PartNumber,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			LineTotal:  line.LineTotal,
		})
	}

	now := s.now().UTC()
	invoices := make([]models.Invoice, 0, len(copyOrder))
	for _, copyType := range copyOrder {
		seq, err := tx.NextInvoiceSequence()
		if err != nil {
			return nil, err
		}
		invoice := models.Invoice{
			InvoiceNumber: invoiceNumber(now, seq),
			TransactionId: t.Id,
			CopyType:      copyType,
			Recipient:     t.Recipient,
			Currency:      t.Currency,
			TotalAmount:   t.TotalAmount,
			AmountPaid:    t.AmountPaid,
			IsPaid:        t.IsPaid,
			Items:         append([]models.InvoiceItem(nil), items...),
			CreatedAt:     now,
		}
		if err := tx.CreateInvoice(&invoice); err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, nil
}

// invoiceNumber renders a sequence value. Sequence values are unique per
// store, so the date prefix is informational only.
func invoiceNumber(at time.Time, seq int64) string {
	return fmt.Sprintf("INV-%s-%06d", at.Format("20060102"), seq)
}

func invoiceEvents(invoices []models.Invoice, at time.Time) []events.Event {
	evs := make([]events.Event, 0, len(invoices))
	for _, inv := range invoices {
		evs = append(evs, events.Event{
			Type:          events.InvoiceDerived,
			TransactionID: inv.TransactionId,
			InvoiceID:     inv.Id,
			InvoiceNumber: inv.InvoiceNumber,
			CopyType:      string(inv.CopyType),
			OccurredAt:    at,
		})
	}
	return evs
}

func (s *Service) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice *models.Invoice
	err := s.atomic(ctx, "get invoice", func(tx Tx) error {
		var err error
		invoice, err = tx.GetInvoice(id)
		if isNotFound(err) {
			return notFound("invoice", id)
		}
		return err
	})
	return invoice, err
}

// DeleteInvoice removes one invoice and its items. The transaction and stock
// are untouched; DeriveInvoices will not recreate a partially deleted pair.
func (s *Service) DeleteInvoice(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteInvoice")
	defer func() { endSpan(span, err) }()

	var invoice *models.Invoice
	err = s.atomic(ctx, "delete invoice", func(tx Tx) error {
		var err error
		invoice, err = tx.GetInvoice(id)
		if err != nil {
			if isNotFound(err) {
				return notFound("invoice", id)
			}
			return err
		}
		return tx.DeleteInvoice(id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Invoice deleted",
		zap.String("invoice_id", id),
		zap.String("invoice_number", invoice.InvoiceNumber),
	)
	s.publish(ctx, events.Event{
		Type:          events.InvoiceDeleted,
		TransactionID: invoice.TransactionId,
		InvoiceID:     invoice.Id,
		InvoiceNumber: invoice.InvoiceNumber,
		CopyType:      string(invoice.CopyType),
		OccurredAt:    s.now().UTC(),
	})
	return nil
}
