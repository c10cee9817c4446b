package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/andresuchdata/autopar/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type ParHandler struct {
	service *service.ParService
}

func NewParHandler(service *service.ParService) *ParHandler {
	return &ParHandler{service: service}
}

type scopeRequest struct {
	RestaurantID string `json:"restaurant_id"`
	ListID       string `json:"list_id"`
	GuideID      string `json:"guide_id"`
}

func (r scopeRequest) scope() domain.Scope {
	return domain.Scope{
		RestaurantID: strings.TrimSpace(r.RestaurantID),
		ListID:       strings.TrimSpace(r.ListID),
		GuideID:      strings.TrimSpace(r.GuideID),
	}
}

type generateRequest struct {
	scopeRequest
	LeadTimeDays float64 `json:"lead_time_days"`
	Filter       string  `json:"filter"`
}

type applyRequest struct {
	scopeRequest
	RunID       string              `json:"run_id"`
	ItemKeys    []string            `json:"item_keys"`
	Suggestions []domain.Suggestion `json:"suggestions"`
}

// Generate handles POST /api/v1/par/suggestions
func (h *ParHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if req.LeadTimeDays < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lead_time_days must not be negative"})
		return
	}

	filter, ok := domain.ParseFilter(req.Filter)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown filter", "details": req.Filter})
		return
	}

	run, err := h.service.Generate(c.Request.Context(), service.GenerateParams{
		Scope:        req.scope(),
		LeadTimeDays: req.LeadTimeDays,
	})
	if err != nil {
		respondError(c, "failed to generate suggestions", err)
		return
	}

	c.JSON(http.StatusOK, h.service.View(run, filter))
}

// GetRun handles GET /api/v1/par/runs/:id?filter=
func (h *ParHandler) GetRun(c *gin.Context) {
	filter, ok := domain.ParseFilter(c.Query("filter"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown filter", "details": c.Query("filter")})
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		respondError(c, "failed to fetch run", err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// Apply handles POST /api/v1/par/apply
func (h *ParHandler) Apply(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	outcome, err := h.service.Apply(c.Request.Context(), service.ApplyParams{
		RunID:       strings.TrimSpace(req.RunID),
		ItemKeys:    req.ItemKeys,
		Scope:       req.scope(),
		Suggestions: req.Suggestions,
	})
	if err != nil {
		respondError(c, "failed to apply suggestions", err)
		return
	}

	status := http.StatusOK
	if len(outcome.Result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, outcome)
}

// Notify handles POST /api/v1/par/notify
func (h *ParHandler) Notify(c *gin.Context) {
	var req scopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	res, err := h.service.Notify(c.Request.Context(), req.scope())
	if err != nil {
		respondError(c, "failed to evaluate notification", err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func respondError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInsufficientHistory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case domain.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
