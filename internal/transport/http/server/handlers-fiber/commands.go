package handlers_fiber

import (
	"net/http"

	"github.com/Tubbz-alt/skara/internal/mapper"
	"github.com/Tubbz-alt/skara/internal/transport/http/api"
	"github.com/gofiber/fiber/v2"
)

// PostIntegrate runs /integrate on a pull request.
func (h *Handler) PostIntegrate(c *fiber.Ctx) error {
	var body api.PostIntegrateJSONRequestBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(http.StatusBadRequest).JSON(errorResponse(api.INVALIDARGUMENT, "invalid body"))
	}

	res, err := h.uc.Dispatch(c.UserContext(), mapper.FromAPIIntegrate(body))
	if err != nil {
		h.log.Infow("integrate rejected", "error", err)
		return writeError(c, err)
	}
	return writeResult(c, res)
}

// PostBackport runs /backport on a commit.
func (h *Handler) PostBackport(c *fiber.Ctx) error {
	var body api.PostBackportJSONRequestBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(http.StatusBadRequest).JSON(errorResponse(api.INVALIDARGUMENT, "invalid body"))
	}

	res, err := h.uc.Dispatch(c.UserContext(), mapper.FromAPIBackport(body))
	if err != nil {
		h.log.Infow("backport rejected", "error", err)
		return writeError(c, err)
	}
	return writeResult(c, res)
}
