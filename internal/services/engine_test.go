package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-bi/foresight-go/internal/config"
	"github.com/helios-bi/foresight-go/internal/erp"
	"github.com/helios-bi/foresight-go/internal/models"
	"github.com/helios-bi/foresight-go/internal/utils"
)

type stubFetcher struct {
	raw *erp.RawData
	err error
}

func (s *stubFetcher) FetchHistory(ctx context.Context, domain models.Domain, entityID string) (*erp.RawData, error) {
	return s.raw, s.err
}

type stubAugmenter struct {
	enabled  bool
	insights []string
	err      error
	called   bool
}

func (s *stubAugmenter) Enabled() bool { return s.enabled }

func (s *stubAugmenter) GenerateInsights(ctx context.Context, domain models.Domain, entityID string, predictions []models.PredictionPoint) ([]string, error) {
	s.called = true
	return s.insights, s.err
}

func testForecastConfig() *config.ForecastConfig {
	return &config.ForecastConfig{
		DefaultHorizon:  30,
		MaxHorizon:      90,
		MinDataPoints:   5,
		BaseConfidence:  0.8,
		ConfidenceDecay: 0.01,
	}
}

func risingInventory(days int) *erp.RawData {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	wiggle := []float64{0, 3, -2, 5, 1}
	raw := &erp.RawData{}
	for i := 0; i < days; i++ {
		raw.History = append(raw.History, erp.InventoryRecord{
			Date:     erp.Date{Time: base.AddDate(0, 0, i)},
			Quantity: 100 + 2*float64(i) + wiggle[i%len(wiggle)],
		})
	}
	return raw
}

func weeklyGrowthInventory(days int) *erp.RawData {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := &erp.RawData{}
	for i := 0; i < days; i++ {
		raw.History = append(raw.History, erp.InventoryRecord{
			Date:     erp.Date{Time: base.AddDate(0, 0, i)},
			Quantity: 100 * math.Pow(1.05, float64(i)/7),
		})
	}
	return raw
}

type failingModel struct{}

func (failingModel) Train(x [][]float64, y []float64) (float64, error) {
	return 0, utils.NewModelFailureError("train", "design matrix collapsed")
}

func (failingModel) Predict(x [][]float64) []float64 { return nil }

func inventoryRequest(horizon int) models.ForecastRequest {
	return models.ForecastRequest{
		Domain:      models.DomainInventory,
		EntityID:    "SKU001",
		TimeHorizon: horizon,
	}
}

func assertStructurallyValid(t *testing.T, resp *models.ForecastResponse, horizon int) {
	t.Helper()

	require.Len(t, resp.Predictions, horizon)
	for i, p := range resp.Predictions {
		assert.GreaterOrEqual(t, p.PredictedValue, 0.0, "step %d", i)
		assert.GreaterOrEqual(t, p.Confidence, MinConfidence, "step %d", i)
		assert.LessOrEqual(t, p.Confidence, MaxConfidence, "step %d", i)
		if i > 0 {
			gap := p.Date.Sub(resp.Predictions[i-1].Date)
			assert.Equal(t, 24*time.Hour, gap, "dates must advance one day at step %d", i)
		}
	}
	assert.NotEmpty(t, resp.Insights)
	assert.LessOrEqual(t, len(resp.Insights), MaxInsights)
	assert.NotEmpty(t, resp.Metadata.RequestID)
	assert.False(t, resp.Metadata.LastUpdated.IsZero())
}

func TestForecastHappyPath(t *testing.T) {
	engine := NewEngine(&stubFetcher{raw: risingInventory(60)}, nil, testForecastConfig(), testLogger())

	resp := engine.Forecast(context.Background(), inventoryRequest(30))

	assertStructurallyValid(t, resp, 30)
	assert.Equal(t, models.ModelLinearRegression, resp.Metadata.ModelUsed)
	assert.Equal(t, 53, resp.Metadata.DataPoints, "first seven rows are dropped for undefined lags")
	assert.Equal(t, models.DomainInventory, resp.Domain)
	assert.Equal(t, "SKU001", resp.EntityID)

	// Predictions continue from the last historical date.
	lastHistorical := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, lastHistorical.AddDate(0, 0, 1), resp.Predictions[0].Date)
}

func TestForecastConfidenceNeverIncreases(t *testing.T) {
	engine := NewEngine(&stubFetcher{raw: risingInventory(90)}, nil, testForecastConfig(), testLogger())

	resp := engine.Forecast(context.Background(), inventoryRequest(60))

	for i := 1; i < len(resp.Predictions); i++ {
		assert.LessOrEqual(t, resp.Predictions[i].Confidence, resp.Predictions[i-1].Confidence, "step %d", i)
	}
}

func TestForecastInsufficientDataUsesTrendFallback(t *testing.T) {
	engine := NewEngine(&stubFetcher{raw: risingInventory(3)}, nil, testForecastConfig(), testLogger())

	resp := engine.Forecast(context.Background(), inventoryRequest(14))

	assertStructurallyValid(t, resp, 14)
	assert.Equal(t, models.ModelLinearTrend, resp.Metadata.ModelUsed)
	for _, p := range resp.Predictions {
		// All three rows lose their lag columns, so the flat placeholder
		// level stands in for the projected trend.
		assert.Equal(t, 100.0, p.PredictedValue)
		assert.Equal(t, 0.6, p.Confidence)
	}
}

func TestForecastTrainFailureUsesTrendFallback(t *testing.T) {
	engine := NewEngine(&stubFetcher{raw: risingInventory(60)}, nil, testForecastConfig(), testLogger())
	engine.newModel = func() regressor { return failingModel{} }

	resp := engine.Forecast(context.Background(), inventoryRequest(14))

	assertStructurallyValid(t, resp, 14)
	assert.Equal(t, models.ModelLinearTrend, resp.Metadata.ModelUsed)
	for _, p := range resp.Predictions {
		assert.Equal(t, 0.6, p.Confidence)
	}
	// The trend projection continues the rising series instead of going flat.
	assert.Greater(t, resp.Predictions[13].PredictedValue, resp.Predictions[0].PredictedValue)
}

func TestForecastSteadyGrowthInventory(t *testing.T) {
	engine := NewEngine(&stubFetcher{raw: weeklyGrowthInventory(180)}, nil, testForecastConfig(), testLogger())

	resp := engine.Forecast(context.Background(), inventoryRequest(30))

	assertStructurallyValid(t, resp, 30)
	assert.Equal(t, models.ModelLinearRegression, resp.Metadata.ModelUsed)

	// Lag and rolling columns are pinned to their last observed values in
	// future rows, so the regression holds near the last level instead of
	// extrapolating the growth curve; the trend stage reads that as stable.
	first := resp.Predictions[0].PredictedValue
	last := resp.Predictions[len(resp.Predictions)-1].PredictedValue
	assert.InDelta(t, first, last, 0.1*first)
	assert.Contains(t, resp.Insights, "Demand expected to remain stable")
}

func TestForecastFetchFailureReturnsFallbackResponse(t *testing.T) {
	fetchErr := utils.NewDataUnavailableError("erp", "connection refused")
	engine := NewEngine(&stubFetcher{err: fetchErr}, nil, testForecastConfig(), testLogger())

	resp := engine.Forecast(context.Background(), inventoryRequest(30))

	require.Len(t, resp.Predictions, 30)
	for _, p := range resp.Predictions {
		assert.Equal(t, 100.0, p.PredictedValue)
		assert.Equal(t, 0.5, p.Confidence)
	}
	assert.Equal(t, models.ModelFallback, resp.Metadata.ModelUsed)
	assert.Equal(t, 0, resp.Metadata.DataPoints)
	assert.Equal(t, 0.5, resp.Metadata.ConfidenceAvg)

	require.Len(t, resp.Insights, 2)
	assert.Contains(t, resp.Insights[0], "Unable to generate detailed insights:")
	assert.Equal(t, "Using basic trend analysis", resp.Insights[1])
}

func TestForecastEmptyHistoryReturnsFallbackResponse(t *testing.T) {
	engine := NewEngine(&stubFetcher{raw: &erp.RawData{}}, nil, testForecastConfig(), testLogger())

	resp := engine.Forecast(context.Background(), inventoryRequest(30))

	require.Len(t, resp.Predictions, 30)
	for _, p := range resp.Predictions {
		assert.Equal(t, 100.0, p.PredictedValue)
		assert.Equal(t, 0.5, p.Confidence)
	}
	assert.Equal(t, models.ModelFallback, resp.Metadata.ModelUsed)
	assert.Equal(t, 0, resp.Metadata.DataPoints)
	assert.Equal(t, 0.5, resp.Metadata.ConfidenceAvg)

	require.Len(t, resp.Insights, 2)
	assert.Contains(t, resp.Insights[0], "Unable to generate detailed insights:")
	assert.Equal(t, "Using basic trend analysis", resp.Insights[1])
}

func TestForecastAugmenterReplacesInsights(t *testing.T) {
	augmenter := &stubAugmenter{
		enabled: true,
		insights: []string{
			"Demand acceleration suggests moving reorder point earlier in the cycle",
			"Forecast spread is narrow enough to commit supplier volume discounts",
		},
	}
	engine := NewEngine(&stubFetcher{raw: risingInventory(60)}, augmenter, testForecastConfig(), testLogger())

	resp := engine.Forecast(context.Background(), inventoryRequest(30))

	assert.True(t, augmenter.called)
	assert.Equal(t, augmenter.insights, resp.Insights)
}

func TestForecastAugmenterFailureKeepsRuleBasedInsights(t *testing.T) {
	augmenter := &stubAugmenter{enabled: true, err: errors.New("service unavailable")}
	engine := NewEngine(&stubFetcher{raw: risingInventory(60)}, augmenter, testForecastConfig(), testLogger())

	resp := engine.Forecast(context.Background(), inventoryRequest(30))

	assert.True(t, augmenter.called)
	assert.NotEmpty(t, resp.Insights)
	for _, insight := range resp.Insights {
		assert.NotContains(t, insight, "service unavailable")
	}
}

func TestForecastAugmenterEmptyResultKeepsRuleBasedInsights(t *testing.T) {
	augmenter := &stubAugmenter{enabled: true}
	engine := NewEngine(&stubFetcher{raw: risingInventory(60)}, augmenter, testForecastConfig(), testLogger())

	resp := engine.Forecast(context.Background(), inventoryRequest(30))

	assert.True(t, augmenter.called)
	assert.NotEmpty(t, resp.Insights)
}

func TestForecastDisabledAugmenterNotCalled(t *testing.T) {
	augmenter := &stubAugmenter{enabled: false}
	engine := NewEngine(&stubFetcher{raw: risingInventory(60)}, augmenter, testForecastConfig(), testLogger())

	engine.Forecast(context.Background(), inventoryRequest(30))

	assert.False(t, augmenter.called)
}
