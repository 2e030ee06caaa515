package controllers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"inventory-backend/ledger"
	"inventory-backend/middlewares"
	"inventory-backend/models"
	"inventory-backend/utils"
)

type PartCreateDTO struct {
	Name          string          `json:"name" validate:"required,max=255"`
	PartNumber    string          `json:"part_number" validate:"required,max=64"`
	CategoryId    string          `json:"category_id" validate:"omitempty,max=36"`
	Stock         int             `json:"stock" validate:"gte=0"`
	MinStock      int             `json:"min_stock" validate:"gte=0"`
	MaxStock      *int            `json:"max_stock" validate:"omitempty,gte=0"`
	UnitPrice     decimal.Decimal `json:"unit_price" validate:"gte=0"`
	Location      string          `json:"location" validate:"max=255"`
	Supplier      string          `json:"supplier" validate:"max=255"`
	MachineModels []string        `json:"machine_models" validate:"omitempty,dive,required"`
}

type PartUpdateDTO struct {
	Name          *string          `json:"name" validate:"omitempty,max=255"`
	PartNumber    *string          `json:"part_number" validate:"omitempty,max=64"`
	CategoryId    *string          `json:"category_id" validate:"omitempty,max=36"`
	MinStock      *int             `json:"min_stock" validate:"omitempty,gte=0"`
	MaxStock      *int             `json:"max_stock" validate:"omitempty,gte=0"`
	UnitPrice     *decimal.Decimal `json:"unit_price" validate:"omitempty,gte=0"`
	Location      *string          `json:"location" validate:"omitempty,max=255"`
	Supplier      *string          `json:"supplier" validate:"omitempty,max=255"`
	MachineModels *[]string        `json:"machine_models" validate:"omitempty,dive,required"`
}

func machineModelsJSON(names []string) (datatypes.JSON, error) {
	if names == nil {
		names = []string{}
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid machine_models")
	}
	return datatypes.JSON(raw), nil
}

// POST /api/parts
func (h *Handler) CreatePart(c *fiber.Ctx) error {
	var in PartCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)
	if !in.UnitPrice.IsZero() && !middlewares.CanSetPrices(c) {
		return fiber.NewError(fiber.StatusForbidden, "role may not set unit prices")
	}

	machineModels, err := machineModelsJSON(in.MachineModels)
	if err != nil {
		return err
	}
	part := models.Part{
		Name:          in.Name,
		PartNumber:    in.PartNumber,
		Stock:         in.Stock,
		MinStock:      in.MinStock,
		MaxStock:      in.MaxStock,
		UnitPrice:     in.UnitPrice,
		Location:      in.Location,
		Supplier:      in.Supplier,
		MachineModels: machineModels,
	}
	if in.CategoryId != "" {
		part.CategoryId = &in.CategoryId
	}

	if err := h.ledger.CreatePart(c.UserContext(), &part); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(part)
}

// GET /api/parts?category_id=&search=&low_stock=&limit=
func (h *Handler) GetParts(c *fiber.Ctx) error {
	parts, err := h.ledger.ListParts(c.UserContext(), ledger.PartFilter{
		CategoryID: c.Query("category_id"),
		Search:     c.Query("search"),
		LowStock:   c.QueryBool("low_stock"),
		Limit:      utils.ParseLimit(c.Query("limit"), 0, maxPageSize),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"parts":   parts,
		"message": "success",
	})
}

// GET /api/parts/:id
func (h *Handler) GetPart(c *fiber.Ctx) error {
	id, err := pathID(c, "part")
	if err != nil {
		return err
	}
	part, err := h.ledger.GetPart(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(part)
}

// PUT /api/parts/:id
func (h *Handler) UpdatePart(c *fiber.Ctx) error {
	id, err := pathID(c, "part")
	if err != nil {
		return err
	}
	var in PartUpdateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	if in.UnitPrice != nil && !middlewares.CanSetPrices(c) {
		return fiber.NewError(fiber.StatusForbidden, "role may not set unit prices")
	}

	upd := ledger.PartUpdate{
		Name:       in.Name,
		PartNumber: in.PartNumber,
		CategoryId: in.CategoryId,
		MinStock:   in.MinStock,
		MaxStock:   in.MaxStock,
		UnitPrice:  in.UnitPrice,
		Location:   in.Location,
		Supplier:   in.Supplier,
	}
	if in.MachineModels != nil {
		machineModels, err := machineModelsJSON(*in.MachineModels)
		if err != nil {
			return err
		}
		upd.MachineModels = &machineModels
	}

	part, err := h.ledger.UpdatePart(c.UserContext(), id, upd)
	if err != nil {
		return err
	}
	return c.JSON(part)
}

// DELETE /api/parts/:id?cascade=true
func (h *Handler) DeletePart(c *fiber.Ctx) error {
	id, err := pathID(c, "part")
	if err != nil {
		return err
	}
	res, err := h.ledger.DeletePart(c.UserContext(), id, c.QueryBool("cascade"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":              true,
		"dependencies_removed": res.DependenciesRemoved,
	})
}
