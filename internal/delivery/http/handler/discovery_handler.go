package handler

import (
	"jobmatch/internal/delivery/http/dto"
	"jobmatch/internal/delivery/http/middleware"
	"jobmatch/internal/pkg/response"
	"jobmatch/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type DiscoveryHandler struct {
	uc usecase.DiscoveryUsecase
}

func NewDiscoveryHandler(uc usecase.DiscoveryUsecase) *DiscoveryHandler {
	return &DiscoveryHandler{uc: uc}
}

func (h *DiscoveryHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Post("/discovery", h.Discover)
}

// Discover runs a discovery for the posted search and returns the admitted jobs.
func (h *DiscoveryHandler) Discover(c fiber.Ctx) error {
	var req dto.DiscoveryRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid request body", nil, err)
	}

	res, err := h.uc.Discover(c.Context(), req.ToRequest())
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewDiscoveryResponse(res.Batch, res.Cached, res.Stored))
}
