package handlers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/settlement_center/backend/internal/db"
	"github.com/settlement_center/backend/internal/settlement"
)

const dateLayout = "2006-01-02"

// Computer is the settlement engine surface the API needs.
type Computer interface {
	Compute(ctx context.Context, req settlement.Request) (settlement.Result, error)
}

type Handler struct {
	Store       *db.Store
	Engine      Computer
	Validator   *validator.Validate
	Logger      zerolog.Logger
	AdminKey    string
	ArtifactDir string
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary List tenants
// @Tags tenants
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/tenants [get]
func (h *Handler) TenantsList(c *gin.Context) {
	registry, err := h.Store.ListTenants(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list tenants", err.Error())
		return
	}
	labels := make([]string, 0, len(registry))
	for label := range registry {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	c.JSON(http.StatusOK, gin.H{"items": labels})
}

type SettlementRequest struct {
	Tenant    string  `json:"tenant" validate:"required"`
	StartDate string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Discount  float64 `json:"discount"`
	UseCache  *bool   `json:"use_cache"`
}

// @Summary Compute settlement
// @Description Compute (or serve from cache) the settlement report for one tenant or the "total" wildcard
// @Tags settlement
// @Accept json
// @Produce json
// @Param request body SettlementRequest true "settlement request"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/settlement [post]
func (h *Handler) ComputeSettlement(c *gin.Context) {
	var req SettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	start, _ := time.Parse(dateLayout, req.StartDate)
	end, _ := time.Parse(dateLayout, req.EndDate)
	useCache := true
	if req.UseCache != nil {
		useCache = *req.UseCache
	}

	result, err := h.Engine.Compute(c.Request.Context(), settlement.Request{
		Tenant:    req.Tenant,
		StartDate: start,
		EndDate:   end,
		Discount:  req.Discount,
		UseCache:  useCache,
	})
	if err != nil {
		if errors.Is(err, settlement.ErrInvalidRange) {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Start date must not be after end date", nil)
			return
		}
		h.Logger.Error().Err(err).Str("tenant", req.Tenant).Msg("settlement failed")
		writeError(c, http.StatusInternalServerError, "SETTLEMENT_ERROR", "Settlement computation failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":    result.Summary,
		"artifact":   filepath.Base(result.ArtifactPath),
		"from_cache": result.FromCache,
	})
}

// @Summary Download settlement workbook
// @Tags settlement
// @Produce application/octet-stream
// @Param name path string true "artifact file name"
// @Success 200 {file} binary
// @Router /api/settlement/artifacts/{name} [get]
func (h *Handler) DownloadArtifact(c *gin.Context) {
	name := c.Param("name")
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".xlsx") {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid artifact name", nil)
		return
	}
	path := filepath.Join(h.ArtifactDir, name)
	c.FileAttachment(path, name)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
