package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// GET /api/invoices/:id
func (h *Handler) GetInvoice(c *fiber.Ctx) error {
	id, err := pathID(c, "invoice")
	if err != nil {
		return err
	}
	invoice, err := h.ledger.GetInvoice(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(invoice)
}

// DELETE /api/invoices/:id
func (h *Handler) DeleteInvoice(c *fiber.Ctx) error {
	id, err := pathID(c, "invoice")
	if err != nil {
		return err
	}
	if err := h.ledger.DeleteInvoice(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
