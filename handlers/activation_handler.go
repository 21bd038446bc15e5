package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/umassos/openwhisk/models"
	"github.com/umassos/openwhisk/services"
)

type ActivationHandler struct {
	db *services.DBService
}

func NewActivationHandler(db *services.DBService) *ActivationHandler {
	return &ActivationHandler{db: db}
}

// GetActivation returns one activation record by activation id.
func (h *ActivationHandler) GetActivation(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "activation id is required",
		})
	}

	act, err := h.db.GetActivation(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if act == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "activation not found",
		})
	}

	return c.JSON(act)
}

// ListActivations returns recent activation records for a namespace.
func (h *ActivationHandler) ListActivations(c *fiber.Ctx) error {
	namespace := c.Query("namespace")
	if namespace == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "namespace query parameter is required",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	activations, err := h.db.ListActivations(c.Context(), namespace, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if activations == nil {
		activations = []models.Activation{}
	}

	return c.JSON(activations)
}
