package controllers

import (
	"github.com/gofiber/fiber/v2"

	"inventory-backend/ledger"
	"inventory-backend/middlewares"
	"inventory-backend/models"
)

type BulkLineDTO struct {
	PartNumber string `json:"part_number" validate:"max=64"`
	Type       string `json:"type" validate:"max=20"`
	Quantity   int    `json:"quantity"`
	Recipient  string `json:"recipient" validate:"max=255"`
	Reason     string `json:"reason" validate:"max=255"`
}

type BulkStockDTO struct {
	Lines []BulkLineDTO `json:"lines" validate:"dive"`
}

// POST /api/stock/bulk
func (h *Handler) BulkUpdateStock(c *fiber.Ctx) error {
	var in BulkStockDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	lines := make([]ledger.BulkLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, ledger.BulkLine{
			PartNumber: l.PartNumber,
			Type:       models.MovementType(l.Type),
			Quantity:   l.Quantity,
			Recipient:  l.Recipient,
			Reason:     l.Reason,
		})
	}

	res, err := h.ledger.BulkUpdateStock(c.UserContext(), lines)
	if err != nil {
		return err
	}
	return c.JSON(res)
}
