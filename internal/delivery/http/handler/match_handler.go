package handler

import (
	"strconv"

	"jobmatch/internal/delivery/http/dto"
	"jobmatch/internal/delivery/http/middleware"
	"jobmatch/internal/pkg/response"
	"jobmatch/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type MatchHandler struct {
	uc usecase.MatchingUsecase
}

func NewMatchHandler(uc usecase.MatchingUsecase) *MatchHandler {
	return &MatchHandler{uc: uc}
}

func (h *MatchHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Post("/matches/:resume_id/:job_id", h.CalculateMatch)
	r.Get("/matches/:resume_id", h.ListMatches)
	r.Get("/resumes/:resume_id/similar-jobs", h.SimilarJobs)
	r.Post("/jobs/:job_id/index", h.IndexJob)
}

func (h *MatchHandler) CalculateMatch(c fiber.Ctx) error {
	resumeID, err := parseUUIDParam(c, "resume_id")
	if err != nil {
		return err
	}
	jobID, err := parseUUIDParam(c, "job_id")
	if err != nil {
		return err
	}

	m, err := h.uc.CalculateMatch(c.Context(), resumeID, jobID)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewMatchResponse(m))
}

func (h *MatchHandler) ListMatches(c fiber.Ctx) error {
	resumeID, err := parseUUIDParam(c, "resume_id")
	if err != nil {
		return err
	}
	minScore, err := parseQueryFloat(c, "min_score", 0)
	if err != nil {
		return err
	}
	limit, err := parseQueryIntStrict(c, "limit", 0)
	if err != nil {
		return err
	}

	items, err := h.uc.ListMatches(c.Context(), resumeID, minScore, limit)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewMatchListResponse(items))
}

func (h *MatchHandler) SimilarJobs(c fiber.Ctx) error {
	resumeID, err := parseUUIDParam(c, "resume_id")
	if err != nil {
		return err
	}
	limit, err := parseQueryIntStrict(c, "limit", 0)
	if err != nil {
		return err
	}

	items, err := h.uc.SimilarJobs(c.Context(), resumeID, limit)
	if err != nil {
		return err
	}
	out := make([]dto.SimilarJobResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.SimilarJobResponse{JobID: it.JobID, Score: it.Score})
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, out)
}

func (h *MatchHandler) IndexJob(c fiber.Ctx) error {
	jobID, err := parseUUIDParam(c, "job_id")
	if err != nil {
		return err
	}
	if err := h.uc.IndexJob(c.Context(), jobID); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.IndexJobResponse{JobID: jobID, Indexed: true})
}

func parseUUIDParam(c fiber.Ctx, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(key))
	if err != nil {
		return uuid.Nil, middleware.NewAppError(fiber.StatusBadRequest, "Invalid "+key, nil, err)
	}
	return id, nil
}

func parseQueryIntStrict(c fiber.Ctx, key string, defaultVal int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, middleware.NewAppError(fiber.StatusBadRequest, "Invalid "+key, nil, err)
	}
	return v, nil
}

func parseQueryFloat(c fiber.Ctx, key string, defaultVal float64) (float64, error) {
	s := c.Query(key)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, middleware.NewAppError(fiber.StatusBadRequest, "Invalid "+key, nil, err)
	}
	return v, nil
}
