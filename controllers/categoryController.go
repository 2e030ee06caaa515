package controllers

import (
	"github.com/gofiber/fiber/v2"

	"inventory-backend/middlewares"
	"inventory-backend/models"
	"inventory-backend/utils"
)

type CategoryCreateDTO struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=1000"`
}

// POST /api/categories
func (h *Handler) CreateCategory(c *fiber.Ctx) error {
	var in CategoryCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	category := models.Category{Name: in.Name, Description: in.Description}
	if err := h.ledger.CreateCategory(c.UserContext(), &category); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// GET /api/categories
func (h *Handler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.ledger.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"categories": categories,
		"message":    "success",
	})
}
