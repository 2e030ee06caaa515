package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"inventory-backend/models"
	"inventory-backend/utils"
)

// PaymentUpdate sets the paid amount (AmountPaid) or adds to it (AddAmount).
// At most one of the two may be given. MarkPaid flags the transaction as
// fully paid whatever the amount.
type PaymentUpdate struct {
	AmountPaid *decimal.Decimal
	AddAmount  *decimal.Decimal
	MarkPaid   bool
}

func (u PaymentUpdate) validate() error {
	if u.AmountPaid != nil && u.AddAmount != nil {
		return invalid("give either an absolute amount or a payment delta, not both")
	}
	if u.AmountPaid != nil && u.AmountPaid.IsNegative() {
		return invalid("amount paid must not be negative")
	}
	if u.AddAmount != nil && u.AddAmount.IsNegative() {
		return invalid("payment delta must not be negative")
	}
	return nil
}

// settled is the single paid rule: explicitly marked, or covered in full.
func settled(markPaid bool, amountPaid, total decimal.Decimal) bool {
	return markPaid || amountPaid.GreaterThanOrEqual(total)
}

// UpdatePayment changes only the payment fields of a transaction. Stock and
// invoices stay as they are; invoices keep the terms they were derived with.
func (s *Service) UpdatePayment(ctx context.Context, transactionID string, upd PaymentUpdate) (t *models.Transaction, err error) {
	ctx, span := s.startSpan(ctx, "UpdatePayment")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	if err := upd.validate(); err != nil {
		return nil, err
	}

	err = s.atomic(ctx, "update payment", func(tx Tx) error {
		var err error
		t, err = tx.LockTransaction(transactionID)
		if err != nil {
			if isNotFound(err) {
				return notFound("transaction", transactionID)
			}
			return err
		}

		amount := t.AmountPaid
		switch {
		case upd.AmountPaid != nil:
			amount = utils.Round2(*upd.AmountPaid)
		case upd.AddAmount != nil:
			amount = utils.Round2(amount.Add(*upd.AddAmount))
		}
		isPaid := settled(upd.MarkPaid, amount, t.TotalAmount)

		if err := tx.UpdateTransaction(t.Id, map[string]any{
			"amount_paid": amount,
			"is_paid":     isPaid,
		}); err != nil {
			return err
		}
		t.AmountPaid = amount
		t.IsPaid = isPaid
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment updated",
		zap.String("transaction_id", t.Id),
		zap.String("amount_paid", t.AmountPaid.StringFixed(2)),
		zap.String("total", t.TotalAmount.StringFixed(2)),
		zap.Bool("is_paid", t.IsPaid),
	)
	return t, nil
}

// UpdateNotes replaces the free-form notes of a transaction.
func (s *Service) UpdateNotes(ctx context.Context, transactionID, notes string) (*models.Transaction, error) {
	var t *models.Transaction
	err := s.atomic(ctx, "update notes", func(tx Tx) error {
		var err error
		t, err = tx.LockTransaction(transactionID)
		if err != nil {
			if isNotFound(err) {
				return notFound("transaction", transactionID)
			}
			return err
		}
		if err := tx.UpdateTransaction(t.Id, map[string]any{"notes": notes}); err != nil {
			return err
		}
		t.Notes = notes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
