package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/latestcomment/educhat/internal/models"
	"github.com/latestcomment/educhat/internal/services"
)

func (h *Handler) AdminLogin(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.Gate.Authenticate(sess, req.Password); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"granted": true})
}

// RequireAdmin lets the request through only for sessions holding an admin
// grant.
func (h *Handler) RequireAdmin(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	if !h.Gate.Granted(sess) {
		return writeError(c, services.ErrAdminRequired)
	}
	c.Locals("session", sess)
	return c.Next()
}

func (h *Handler) AdminView(c *fiber.Ctx) error {
	sess := c.Locals("session").(*models.Session)
	view, err := h.Manager.AdminView(sess)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(view)
}

func (h *Handler) AdminSessions(c *fiber.Ctx) error {
	ids, err := h.Manager.StoredSessions()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": ids})
}

func (h *Handler) SetDefaultModel(c *fiber.Ctx) error {
	var req defaultModelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.Manager.SetDefaultModel(req.Model); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"default": h.Manager.DefaultModel()})
}
