package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pricematch/backend/internal/domain"
	"github.com/pricematch/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	matchService *usecase.MatchService
}

// NewHandler creates a new HTTP handler
func NewHandler(matchService *usecase.MatchService) *Handler {
	return &Handler{matchService: matchService}
}

// matchRequest carries the two catalogs to compare
type matchRequest struct {
	Source []domain.Product `json:"source"`
	Target []domain.Product `json:"target"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricematch-backend",
		"version": "1.0.0",
	})
}

// MatchCatalogs handles catalog matching requests
func (h *Handler) MatchCatalogs(c *gin.Context) {
	if h.matchService == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "Matching service not configured",
		})
		return
	}

	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	report, err := h.matchService.MatchCatalogs(c.Request.Context(), req.Source, req.Target)
	if err != nil {
		h.writeMatchError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// HouseBrandMatches handles cross-brand equivalence requests
func (h *Handler) HouseBrandMatches(c *gin.Context) {
	if h.matchService == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "Matching service not configured",
		})
		return
	}

	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	report, err := h.matchService.HouseBrandMatches(c.Request.Context(), req.Source, req.Target)
	if err != nil {
		h.writeMatchError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// writeMatchError maps pipeline errors to HTTP responses
func (h *Handler) writeMatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyCatalog):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Both catalogs need at least one valid product",
		})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Matching failed",
		})
	}
}
