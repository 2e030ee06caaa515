package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"inventory-backend/ledger"
	"inventory-backend/middlewares"
	"inventory-backend/models"
	"inventory-backend/utils"
)

type TransactionItemDTO struct {
	PartID    string           `json:"part_id" validate:"max=36"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price" validate:"omitempty,gte=0"`
}

type TransactionCreateDTO struct {
	Type       string               `json:"type" validate:"max=20"`
	Items      []TransactionItemDTO `json:"items" validate:"dive"`
	Recipient  string               `json:"recipient" validate:"max=255"`
	Reason     string               `json:"reason" validate:"max=255"`
	Notes      string               `json:"notes"`
	IsPaid     bool                 `json:"is_paid"`
	AmountPaid *decimal.Decimal     `json:"amount_paid" validate:"omitempty,gte=0"`
	Currency   string               `json:"currency" validate:"omitempty,len=3,alpha"`
}

type PaymentUpdateDTO struct {
	AmountPaid *decimal.Decimal `json:"amount_paid" validate:"omitempty,gte=0"`
	AddAmount  *decimal.Decimal `json:"add_amount" validate:"omitempty,gte=0"`
	IsPaid     bool             `json:"is_paid"`
}

type NotesUpdateDTO struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// POST /api/transactions
func (h *Handler) CreateTransaction(c *fiber.Ctx) error {
	var in TransactionCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	canPrice := middlewares.CanSetPrices(c)
	req := ledger.CreateRequest{
		Type:       models.MovementType(in.Type),
		Recipient:  in.Recipient,
		Reason:     in.Reason,
		Notes:      in.Notes,
		IsPaid:     in.IsPaid,
		AmountPaid: in.AmountPaid,
		Currency:   in.Currency,
	}
	for _, item := range in.Items {
		price := item.UnitPrice
		if !canPrice && price != nil {
			h.logger.Info("Dropping unit price override for role without pricing rights",
				zap.String("part_id", item.PartID),
				zap.Any("user_id", c.Locals("userID")),
			)
			price = nil
		}
		req.Items = append(req.Items, ledger.ItemRequest{
			PartID:    item.PartID,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
	}

	res, err := h.ledger.CreateTransaction(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// GET /api/transactions?type=&part_id=&limit=
func (h *Handler) GetTransactions(c *fiber.Ctx) error {
	transactions, err := h.ledger.ListTransactions(c.UserContext(), ledger.TransactionFilter{
		Type:   models.MovementType(c.Query("type")),
		PartID: c.Query("part_id"),
		Limit:  utils.ParseLimit(c.Query("limit"), 0, maxPageSize),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"transactions": transactions,
		"message":      "success",
	})
}

// GET /api/transactions/:id
func (h *Handler) GetTransaction(c *fiber.Ctx) error {
	id, err := pathID(c, "transaction")
	if err != nil {
		return err
	}
	t, invoices, err := h.ledger.GetTransaction(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"transaction": t,
		"invoices":    invoices,
	})
}

// PUT /api/transactions/:id/payment
func (h *Handler) UpdatePayment(c *fiber.Ctx) error {
	id, err := pathID(c, "transaction")
	if err != nil {
		return err
	}
	var in PaymentUpdateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	t, err := h.ledger.UpdatePayment(c.UserContext(), id, ledger.PaymentUpdate{
		AmountPaid: in.AmountPaid,
		AddAmount:  in.AddAmount,
		MarkPaid:   in.IsPaid,
	})
	if err != nil {
		return err
	}
	return c.JSON(t)
}

// PUT /api/transactions/:id/notes
func (h *Handler) UpdateNotes(c *fiber.Ctx) error {
	id, err := pathID(c, "transaction")
	if err != nil {
		return err
	}
	var in NotesUpdateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	t, err := h.ledger.UpdateNotes(c.UserContext(), id, in.Notes)
	if err != nil {
		return err
	}
	return c.JSON(t)
}

// DELETE /api/transactions/:id
func (h *Handler) DeleteTransaction(c *fiber.Ctx) error {
	id, err := pathID(c, "transaction")
	if err != nil {
		return err
	}
	res, err := h.ledger.DeleteTransaction(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !res.Found {
		return fiber.NewError(fiber.StatusNotFound, "transaction not found")
	}
	return c.JSON(fiber.Map{
		"success":          true,
		"invoices_removed": res.InvoicesRemoved,
	})
}

// POST /api/transactions/:id/invoices
func (h *Handler) DeriveInvoices(c *fiber.Ctx) error {
	id, err := pathID(c, "transaction")
	if err != nil {
		return err
	}
	invoices, err := h.ledger.DeriveInvoices(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"invoices": invoices})
}
