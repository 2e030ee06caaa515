package ledger

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"inventory-backend/models"
)

// BulkLine is one stock change addressed by part number. An empty Type means
// ADJUSTMENT, i.e. Quantity is the new stock level.
type BulkLine struct {
	PartNumber string
	Type       models.MovementType
	Quantity   int
	Recipient  string
	Reason     string
}

type BulkOutcome struct {
	Index         int    `json:"index"`
	PartNumber    string `json:"part_number"`
	TransactionID string `json:"transaction_id,omitempty"`
	Stock         int    `json:"stock"`
	Error         string `json:"error,omitempty"`
	err           error
}

// Err is the failure behind Error, for callers that need errors.Is.
func (o BulkOutcome) Err() error { return o.err }

type BulkResult struct {
	Succeeded []BulkOutcome `json:"succeeded"`
	Failed    []BulkOutcome `json:"failed"`
}

// BulkUpdateStock books every line as its own single-item transaction in its
// own unit of work. A failing line is reported in Failed and does not stop
// the remaining lines.
func (s *Service) BulkUpdateStock(ctx context.Context, lines []BulkLine) (res BulkResult, err error) {
	ctx, span := s.startSpan(ctx, "BulkUpdateStock")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int("bulk.lines", len(lines)))

	if len(lines) == 0 {
		return res, invalid("bulk update needs at least one line")
	}

	res.Succeeded = []BulkOutcome{}
	res.Failed = []BulkOutcome{}
	for i, line := range lines {
		outcome, created := s.bulkLine(ctx, i, line)
		if outcome.err != nil {
			outcome.Error = outcome.err.Error()
			res.Failed = append(res.Failed, outcome)
			continue
		}
		res.Succeeded = append(res.Succeeded, outcome)
		s.warnStock(created.Warnings)
		s.publish(ctx, s.createdEvents(created)...)
	}

	s.logger.Info("Bulk stock update finished",
		zap.Int("succeeded", len(res.Succeeded)),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

func (s *Service) bulkLine(ctx context.Context, index int, line BulkLine) (BulkOutcome, *CreateResult) {
	number := strings.TrimSpace(line.PartNumber)
	outcome := BulkOutcome{Index: index, PartNumber: number}
	if number == "" {
		outcome.err = invalid("line %d: part number is required", index)
		return outcome, nil
	}
	movement := line.Type
	if movement == "" {
		movement = models.MovementAdjustment
	}

	var created *CreateResult
	outcome.err = s.atomic(ctx, "bulk stock line", func(tx Tx) error {
		part, err := tx.PartByNumber(number)
		if err != nil {
			if isNotFound(err) {
				return notFound("part", number)
			}
			return err
		}
		req := CreateRequest{
			Type:      movement,
			Items:     []ItemRequest{{PartID: part.Id, Quantity: line.Quantity}},
			Recipient: line.Recipient,
			Reason:    line.Reason,
		}
		if err := req.validate(); err != nil {
			return err
		}
		created, err = s.createInTx(tx, req)
		return err
	})
	if outcome.err != nil {
		return outcome, nil
	}

	outcome.TransactionID = created.Transaction.Id
	outcome.Stock = created.Transaction.Items[0].ResultingStock
	return outcome, created
}
