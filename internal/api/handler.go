package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"surecrm-network/internal/referral"
	"surecrm-network/internal/store"
	"surecrm-network/pkg/models"
)

// NetworkService операции аналитики, доступные по HTTP
type NetworkService interface {
	GetTopInfluencers(ctx context.Context, tenantID string, limit int, period models.Period) ([]models.InfluencerDisplayData, error)
	GetNetworkAnalysis(ctx context.Context, tenantID string) (*models.NetworkAnalysisDisplayData, error)
	GetLatestSnapshot(ctx context.Context, tenantID string) (*models.NetworkAnalysisSnapshot, error)
	GetGratitudeHistory(ctx context.Context, tenantID string, limit int) ([]models.GratitudeHistoryItem, error)
	CreateGratitude(ctx context.Context, tenantID string, form models.GratitudeForm) models.GratitudeResult
	UpdateGratitudeStatus(ctx context.Context, tenantID, gratitudeID string, status models.GratitudeStatus) (*models.GratitudeRecord, error)
}

// Handler HTTP обработчики реферальной аналитики
type Handler struct {
	service NetworkService
	logger  *zap.Logger
}

// NewHandler создает обработчики
func NewHandler(service NetworkService, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type statusRequest struct {
	Status models.GratitudeStatus `json:"status" binding:"required"`
}

// TopInfluencers GET /tenants/:tenantID/influencers?limit&period
func (h *Handler) TopInfluencers(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	period := models.Period(c.DefaultQuery("period", string(models.PeriodAll)))

	result, err := h.service.GetTopInfluencers(c.Request.Context(), c.Param("tenantID"), limit, period)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"influencers": result})
}

// NetworkAnalysis GET /tenants/:tenantID/network-analysis
func (h *Handler) NetworkAnalysis(c *gin.Context) {
	result, err := h.service.GetNetworkAnalysis(c.Request.Context(), c.Param("tenantID"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// LatestSnapshot GET /tenants/:tenantID/network-analysis/latest
func (h *Handler) LatestSnapshot(c *gin.Context) {
	snapshot, err := h.service.GetLatestSnapshot(c.Request.Context(), c.Param("tenantID"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GratitudeHistory GET /tenants/:tenantID/gratitude?limit
func (h *Handler) GratitudeHistory(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	items, err := h.service.GetGratitudeHistory(c.Request.Context(), c.Param("tenantID"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"gratitude": items})
}

// CreateGratitude POST /tenants/:tenantID/gratitude
func (h *Handler) CreateGratitude(c *gin.Context) {
	var form models.GratitudeForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, models.GratitudeResult{
			Success: false,
			Error:   models.GratitudeErrorValidation,
			Message: "некорректное тело запроса",
		})
		return
	}

	result := h.service.CreateGratitude(c.Request.Context(), c.Param("tenantID"), form)

	status := http.StatusCreated
	if !result.Success {
		switch result.Error {
		case models.GratitudeErrorValidation:
			status = http.StatusBadRequest
		case models.GratitudeErrorNotFound:
			status = http.StatusNotFound
		default:
			status = http.StatusInternalServerError
		}
	}

	c.JSON(status, result)
}

// UpdateGratitudeStatus PATCH /tenants/:tenantID/gratitude/:id/status
func (h *Handler) UpdateGratitudeStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "поле status обязательно"})
		return
	}
	if !req.Status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неизвестный статус благодарности"})
		return
	}

	record, err := h.service.UpdateGratitudeStatus(c.Request.Context(), c.Param("tenantID"), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// respondError переводит доменные ошибки в HTTP статусы
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidStatusTransition):
		status = http.StatusConflict
	case errors.Is(err, referral.ErrRankingUnavailable),
		errors.Is(err, referral.ErrAnalysisUnavailable),
		errors.Is(err, referral.ErrHistoryUnavailable),
		errors.Is(err, referral.ErrGratitudeUnavailable):
		status = http.StatusServiceUnavailable
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("ошибка обработки запроса",
			zap.String("path", c.FullPath()),
			zap.String("tenant_id", c.Param("tenantID")),
			zap.Error(err))
		// текст неизвестной ошибки клиенту не отдаем
		message = internalErrorMessage
	}

	c.JSON(status, gin.H{"error": message})
}

// MaxLimit верхняя граница параметра limit
const MaxLimit = 100

const internalErrorMessage = "внутренняя ошибка сервера"

// queryLimit читает limit; отсутствие дает 0, а сервис подставит значение по умолчанию.
// Значения больше MaxLimit урезаются.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit должен быть числом"})
		return 0, false
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit, true
}
