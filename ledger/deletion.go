package ledger

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"inventory-backend/events"
	"inventory-backend/models"
)

type DeleteResult struct {
	// Found is false when the transaction was already gone. That is a
	// finished deletion, not a failure.
	Found           bool                `json:"found"`
	Transaction     *models.Transaction `json:"transaction,omitempty"`
	InvoicesRemoved int64               `json:"invoices_removed"`
}

// DeleteTransaction reverses the stock effect of every line, newest line
// first, and removes the invoices, the items and the transaction in one unit.
func (s *Service) DeleteTransaction(ctx context.Context, id string) (res DeleteResult, err error) {
	ctx, span := s.startSpan(ctx, "DeleteTransaction")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("transaction.id", id))

	err = s.atomic(ctx, "delete transaction", func(tx Tx) error {
		t, err := tx.LockTransaction(id)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}

		rule, err := RuleFor(t.Type)
		if err != nil {
			return err
		}

		requests := make([]ItemRequest, 0, len(t.Items))
		for _, item := range t.Items {
			requests = append(requests, ItemRequest{PartID: item.PartId})
		}
		parts, err := lockParts(tx, requests)
		if err != nil {
			return err
		}

		running := make(map[string]int, len(parts))
		for partID, part := range parts {
			running[partID] = part.Stock
		}
		for i := len(t.Items) - 1; i >= 0; i-- {
			item := t.Items[i]
			current := running[item.PartId]
			next, err := rule.Reverse(current, item.Quantity, item.PriorStock)
			if err != nil {
				return stockFailure(err, parts[item.PartId], current, item.Quantity, true)
			}
			running[item.PartId] = next
		}
		for _, partID := range sortedKeys(running) {
			if running[partID] == parts[partID].Stock {
				continue
			}
			if err := tx.SetStock(partID, running[partID]); err != nil {
				return err
			}
		}

		removed, err := tx.DeleteInvoicesByTransaction(t.Id)
		if err != nil {
			return err
		}
		if err := tx.DeleteTransaction(t.Id); err != nil {
			return err
		}

		res = DeleteResult{Found: true, Transaction: t, InvoicesRemoved: removed}
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}

	if !res.Found {
		s.logger.Info("Transaction already deleted", zap.String("transaction_id", id))
		return res, nil
	}

	s.logger.Info("Transaction deleted",
		zap.String("transaction_id", id),
		zap.String("type", string(res.Transaction.Type)),
		zap.Int64("invoices_removed", res.InvoicesRemoved),
	)
	s.publish(ctx, events.Event{
		Type:          events.TransactionDeleted,
		TransactionID: id,
		OccurredAt:    s.now().UTC(),
	})
	return res, nil
}

type PartDeletion struct {
	PartID              string           `json:"part_id"`
	DependenciesRemoved PartDependencies `json:"dependencies_removed"`
}

// DeletePart refuses to delete a referenced part unless cascade is set. With
// cascade the referencing transaction and invoice items go first and the
// totals of their parents are recomputed from what is left.
func (s *Service) DeletePart(ctx context.Context, id string, cascade bool) (res PartDeletion, err error) {
	ctx, span := s.startSpan(ctx, "DeletePart")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("part.id", id),
		attribute.Bool("part.cascade", cascade),
	)

	err = s.atomic(ctx, "delete part", func(tx Tx) error {
		if _, err := tx.LockPart(id); err != nil {
			if isNotFound(err) {
				return notFound("part", id)
			}
			return err
		}

		deps, err := tx.CountPartDependencies(id)
		if err != nil {
			return err
		}
		if deps.Total() > 0 {
			if !cascade {
				return &DependencyError{PartID: id, Dependencies: deps}
			}
			if err := removeDependencies(tx, id); err != nil {
				return err
			}
		}

		if err := tx.DeletePart(id); err != nil {
			return err
		}
		res = PartDeletion{PartID: id, DependenciesRemoved: deps}
		return nil
	})
	if err != nil {
		return PartDeletion{}, err
	}

	s.logger.Info("Part deleted",
		zap.String("part_id", id),
		zap.Int64("transaction_items_removed", res.DependenciesRemoved.TransactionItems),
		zap.Int64("invoice_items_removed", res.DependenciesRemoved.InvoiceItems),
	)
	return res, nil
}

func removeDependencies(tx Tx, partID string) error {
	transactionIDs, invoiceIDs, err := tx.DeletePartDependencies(partID)
	if err != nil {
		return err
	}
	for _, id := range transactionIDs {
		t, err := tx.GetTransaction(id)
		if err != nil {
			return err
		}
		total := t.SumItems()
		if err := tx.UpdateTransaction(id, map[string]any{
			"total_amount": total,
			"is_paid":      t.IsPaid || settled(false, t.AmountPaid, total),
		}); err != nil {
			return err
		}
	}
	for _, id := range invoiceIDs {
		invoice, err := tx.GetInvoice(id)
		if err != nil {
			return err
		}
		if err := tx.UpdateInvoice(id, map[string]any{"total_amount": invoice.SumItems()}); err != nil {
			return err
		}
	}
	return nil
}
