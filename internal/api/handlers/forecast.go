package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/helios-bi/foresight-go/internal/cache"
	"github.com/helios-bi/foresight-go/internal/config"
	"github.com/helios-bi/foresight-go/internal/models"
)

// Forecaster runs the forecast pipeline. Satisfied by services.Engine.
type Forecaster interface {
	Forecast(ctx context.Context, req models.ForecastRequest) *models.ForecastResponse
}

type ForecastHandler struct {
	engine         Forecaster
	cache          *cache.ForecastCache
	defaultHorizon int
	maxHorizon     int
	logger         *logrus.Logger
}

func NewForecastHandler(engine Forecaster, forecastCache *cache.ForecastCache, cfg *config.ForecastConfig, logger *logrus.Logger) *ForecastHandler {
	defaultHorizon := cfg.DefaultHorizon
	if defaultHorizon <= 0 {
		defaultHorizon = 30
	}
	maxHorizon := cfg.MaxHorizon
	if maxHorizon <= 0 {
		maxHorizon = 90
	}

	return &ForecastHandler{
		engine:         engine,
		cache:          forecastCache,
		defaultHorizon: defaultHorizon,
		maxHorizon:     maxHorizon,
		logger:         logger,
	}
}

// CreateForecast handles POST /api/v1/forecast.
func (h *ForecastHandler) CreateForecast(c *gin.Context) {
	var req models.ForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if !req.Domain.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain must be one of: inventory, budget, resource, sales"})
		return
	}
	req.EntityID = strings.TrimSpace(req.EntityID)
	if req.EntityID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entity_id cannot be empty"})
		return
	}
	if req.TimeHorizon == 0 {
		req.TimeHorizon = h.defaultHorizon
	}
	if req.TimeHorizon < 1 || req.TimeHorizon > h.maxHorizon {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time_horizon must be between 1 and 90"})
		return
	}

	if h.cache != nil {
		if cached, ok := h.cache.Get(c.Request.Context(), req.Domain, req.EntityID, req.TimeHorizon); ok {
			h.logger.WithFields(logrus.Fields{
				"domain":    req.Domain,
				"entity_id": req.EntityID,
			}).Debug("Returning cached forecast")
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, cached)
			return
		}
		c.Header("X-Cache", "MISS")
	}

	resp := h.engine.Forecast(c.Request.Context(), req)

	// Fallback responses are not cached so a recovered upstream is picked
	// up on the next request.
	if h.cache != nil && resp.Metadata.ModelUsed != models.ModelFallback {
		h.cache.Set(c.Request.Context(), resp)
	}

	c.JSON(http.StatusOK, resp)
}

// DomainCatalogResponse lists the supported forecasting domains.
type DomainCatalogResponse struct {
	Domains   []models.DomainInfo `json:"domains"`
	Timestamp time.Time           `json:"timestamp"`
}

// ListDomains handles GET /api/v1/forecast/domains.
func (h *ForecastHandler) ListDomains(c *gin.Context) {
	c.JSON(http.StatusOK, DomainCatalogResponse{
		Domains: []models.DomainInfo{
			{
				Domain:      models.DomainInventory,
				Name:        "Inventory Forecasting",
				Description: "Predict product demand and inventory needs",
				Entities:    []string{"SKU001", "SKU002", "SKU003", "SKU004", "SKU005"},
			},
			{
				Domain:      models.DomainBudget,
				Name:        "Budget Analysis",
				Description: "Forecast department spending and budget variance",
				Entities:    []string{"Marketing", "Engineering", "Operations", "HR"},
			},
			{
				Domain:      models.DomainResource,
				Name:        "Resource Planning",
				Description: "Predict team utilization and capacity needs",
				Entities:    []string{"Engineering", "Sales", "Marketing", "Operations"},
			},
			{
				Domain:      models.DomainSales,
				Name:        "Sales Forecasting",
				Description: "Forecast revenue and sales trends",
				Entities:    []string{"overall"},
			},
		},
		Timestamp: time.Now().UTC(),
	})
}
