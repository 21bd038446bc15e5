package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/umassos/openwhisk/services"
)

type BlacklistHandler struct {
	blacklist *services.BlacklistService
}

func NewBlacklistHandler(blacklist *services.BlacklistService) *BlacklistHandler {
	return &BlacklistHandler{blacklist: blacklist}
}

type blockRequest struct {
	Reason string `json:"reason"`
}

// ListBlacklist returns the namespaces currently denied admission.
func (h *BlacklistHandler) ListBlacklist(c *fiber.Ctx) error {
	namespaces := h.blacklist.List()
	if namespaces == nil {
		namespaces = []string{}
	}
	return c.JSON(fiber.Map{"namespaces": namespaces})
}

// BlockNamespace adds a namespace to the blacklist.
func (h *BlacklistHandler) BlockNamespace(c *fiber.Ctx) error {
	namespace := c.Params("namespace")
	if namespace == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "namespace is required",
		})
	}

	var req blockRequest
	// Body is optional; a missing reason is fine.
	_ = c.BodyParser(&req)

	if err := h.blacklist.Block(c.Context(), namespace, req.Reason); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"namespace": namespace, "blocked": true})
}

// UnblockNamespace removes a namespace from the blacklist.
func (h *BlacklistHandler) UnblockNamespace(c *fiber.Ctx) error {
	namespace := c.Params("namespace")
	if namespace == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "namespace is required",
		})
	}

	if err := h.blacklist.Unblock(c.Context(), namespace); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
