package models

import (
	"fmt"
	"time"
)

// Domain identifies a forecasting domain. It determines the target column,
// the feature engineering rules, and the insight templates used for a
// request.
type Domain string

const (
	DomainInventory Domain = "inventory"
	DomainBudget    Domain = "budget"
	DomainResource  Domain = "resource"
	DomainSales     Domain = "sales"
)

// AllDomains lists every supported forecasting domain.
var AllDomains = []Domain{DomainInventory, DomainBudget, DomainResource, DomainSales}

// Valid reports whether d is a supported domain.
func (d Domain) Valid() bool {
	switch d {
	case DomainInventory, DomainBudget, DomainResource, DomainSales:
		return true
	}
	return false
}

// String returns the domain identifier.
func (d Domain) String() string {
	return string(d)
}

// ParseDomain converts a string into a Domain, rejecting unknown values.
func ParseDomain(s string) (Domain, error) {
	d := Domain(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown domain %q", s)
	}
	return d, nil
}

// ForecastRequest is the input to the forecast pipeline. Domain and EntityID
// are validated at the API boundary before the core runs.
type ForecastRequest struct {
	Domain      Domain                 `json:"domain" binding:"required"`
	EntityID    string                 `json:"entity_id" binding:"required"`
	TimeHorizon int                    `json:"time_horizon"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// PredictionPoint is a single dated prediction with its confidence score.
type PredictionPoint struct {
	Date           time.Time `json:"date"`
	PredictedValue float64   `json:"predicted_value"`
	Confidence     float64   `json:"confidence"`
}

// PredictionMetadata describes how a forecast was produced.
type PredictionMetadata struct {
	ModelUsed     string    `json:"model_used"`
	DataPoints    int       `json:"data_points"`
	LastUpdated   time.Time `json:"last_updated"`
	ConfidenceAvg float64   `json:"confidence_avg"`
	RequestID     string    `json:"request_id,omitempty"`
}

// ForecastResponse is the complete output of a forecast run. It is always
// structurally valid: the orchestrator substitutes a low-confidence fallback
// payload rather than surfacing an error.
type ForecastResponse struct {
	Domain      Domain             `json:"domain"`
	EntityID    string             `json:"entity_id"`
	TimeHorizon int                `json:"time_horizon"`
	Predictions []PredictionPoint  `json:"predictions"`
	Insights    []string           `json:"insights"`
	Metadata    PredictionMetadata `json:"metadata"`
}

// Model identifiers reported in PredictionMetadata.ModelUsed.
const (
	ModelLinearRegression = "linear_regression"
	ModelLinearTrend      = "linear_trend"
	ModelFallback         = "fallback"
)

// DomainInfo describes a forecasting domain for the catalog endpoint.
type DomainInfo struct {
	Domain      Domain   `json:"domain"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Entities    []string `json:"entities"`
}
