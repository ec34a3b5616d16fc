package entitlement

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the admin entitlement CRUD over HTTP.
type Handler struct {
	repo Repository
}

// NewHandler builds the entitlement handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

type grantRequest struct {
	UserID int64 `json:"user_id"`
}

// Grant adds a user to the allow-list.
func (h *Handler) Grant(c *fiber.Ctx) error {
	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.UserID <= 0 {
		return fiber.NewError(http.StatusBadRequest, "user_id must be positive")
	}
	if err := h.repo.Grant(c.UserContext(), req.UserID); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "granted", "user_id": req.UserID})
}

// Revoke removes a user from the allow-list.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return fiber.NewError(http.StatusBadRequest, "user_id must be a positive integer")
	}
	if err := h.repo.Revoke(c.UserContext(), userID); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "revoked", "user_id": userID})
}

// List returns every entitled user.
func (h *Handler) List(c *fiber.Ctx) error {
	grants, err := h.repo.List(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	type entry struct {
		UserID    int64  `json:"user_id"`
		GrantedAt string `json:"granted_at"`
	}
	out := make([]entry, 0, len(grants))
	for _, g := range grants {
		out = append(out, entry{UserID: g.UserID, GrantedAt: g.GrantedAt.Format("2006-01-02T15:04:05Z07:00")})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"entitled": out})
}
