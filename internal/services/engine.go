package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/helios-bi/foresight-go/internal/config"
	"github.com/helios-bi/foresight-go/internal/erp"
	"github.com/helios-bi/foresight-go/internal/features"
	"github.com/helios-bi/foresight-go/internal/models"
	"github.com/helios-bi/foresight-go/internal/telemetry"
	"github.com/helios-bi/foresight-go/internal/utils"
)

// PipelineState tracks where a forecast run is in its lifecycle. It is
// logged and attached to trace spans, and recorded on pipeline errors.
type PipelineState string

const (
	StateFetching        PipelineState = "FETCHING"
	StateFeaturizing     PipelineState = "FEATURIZING"
	StateTraining        PipelineState = "TRAINING"
	StatePredicting      PipelineState = "PREDICTING"
	StateScoringInsights PipelineState = "SCORING_INSIGHTS"
	StateDone            PipelineState = "DONE"
	StateFallback        PipelineState = "FALLBACK"
)

// HistoryFetcher supplies historical records for a domain entity. The ERP
// client and the Postgres repository both satisfy it.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, domain models.Domain, entityID string) (*erp.RawData, error)
}

// InsightAugmenter produces narrative insights from an external service.
// Implementations must report failures as errors; the engine silently keeps
// its rule-based insights when augmentation fails.
type InsightAugmenter interface {
	Enabled() bool
	GenerateInsights(ctx context.Context, domain models.Domain, entityID string, predictions []models.PredictionPoint) ([]string, error)
}

// regressor is the trainable primary model contract.
type regressor interface {
	Train(x [][]float64, y []float64) (float64, error)
	Predict(x [][]float64) []float64
}

// Engine runs the forecast pipeline end to end. Forecast never returns an
// error: any failure downgrades the result instead of surfacing to the
// caller.
type Engine struct {
	fetcher   HistoryFetcher
	engineer  *features.Engineer
	scorer    *ConfidenceScorer
	insights  *InsightGenerator
	augmenter InsightAugmenter
	newModel  func() regressor

	minDataPoints int
	logger        *logrus.Logger
}

func NewEngine(fetcher HistoryFetcher, augmenter InsightAugmenter, cfg *config.ForecastConfig, logger *logrus.Logger) *Engine {
	minPoints := cfg.MinDataPoints
	if minPoints <= 0 {
		minPoints = 5
	}

	return &Engine{
		fetcher:       fetcher,
		engineer:      features.NewEngineer(logger),
		scorer:        NewConfidenceScorer(cfg.BaseConfidence, cfg.ConfidenceDecay),
		insights:      NewInsightGenerator(logger),
		augmenter:     augmenter,
		newModel:      func() regressor { return NewLinearModel() },
		minDataPoints: minPoints,
		logger:        logger,
	}
}

// Forecast runs the full pipeline for a validated request. The response is
// always structurally complete: horizon-length predictions, non-empty
// insights, and populated metadata.
func (e *Engine) Forecast(ctx context.Context, req models.ForecastRequest) *models.ForecastResponse {
	requestID := uuid.New().String()
	log := e.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"domain":     req.Domain,
		"entity_id":  req.EntityID,
		"horizon":    req.TimeHorizon,
	})
	log.Info("Starting forecast pipeline")

	ctx, span := telemetry.Tracer().Start(ctx, "forecast.pipeline", trace.WithAttributes(
		attribute.String("forecast.domain", req.Domain.String()),
		attribute.String("forecast.entity_id", req.EntityID),
		attribute.Int("forecast.horizon", req.TimeHorizon),
	))
	defer span.End()

	resp, err := e.run(ctx, req, requestID, log)
	if err != nil {
		log.WithError(err).Error("Forecast pipeline failed, returning fallback response")
		span.AddEvent("pipeline.fallback")
		return e.fallbackResponse(req, requestID, err)
	}

	span.SetAttributes(attribute.String("forecast.model_used", resp.Metadata.ModelUsed))
	log.WithFields(logrus.Fields{
		"model_used":  resp.Metadata.ModelUsed,
		"data_points": resp.Metadata.DataPoints,
	}).Info("Forecast pipeline complete")
	return resp
}

func (e *Engine) run(ctx context.Context, req models.ForecastRequest, requestID string, log *logrus.Entry) (*models.ForecastResponse, error) {
	span := trace.SpanFromContext(ctx)

	span.AddEvent(string(StateFetching))
	raw, err := e.fetcher.FetchHistory(ctx, req.Domain, req.EntityID)
	if err != nil {
		return nil, &utils.PipelineError{State: string(StateFetching), Err: err}
	}

	span.AddEvent(string(StateFeaturizing))
	if raw == nil || raw.RecordCount(req.Domain) == 0 {
		return nil, &utils.PipelineError{
			State: string(StateFeaturizing),
			Err:   &utils.InsufficientDataError{Rows: 0, Required: e.minDataPoints},
		}
	}
	frame, err := e.engineer.PrepareFeatures(raw, req.Domain)
	if err != nil {
		return nil, &utils.PipelineError{State: string(StateFeaturizing), Err: err}
	}

	predictions, modelUsed := e.createPredictions(ctx, frame, req, log)

	span.AddEvent(string(StateScoringInsights))
	insights := e.generateInsights(ctx, req, predictions, frame)

	span.AddEvent(string(StateDone))
	return &models.ForecastResponse{
		Domain:      req.Domain,
		EntityID:    req.EntityID,
		TimeHorizon: req.TimeHorizon,
		Predictions: predictions,
		Insights:    insights,
		Metadata:    buildMetadata(modelUsed, frame.Len(), requestID, predictions),
	}, nil
}

// createPredictions trains the regression model and predicts over the
// horizon, degrading to the simple fallback models when the data or the
// model cannot support a regression.
func (e *Engine) createPredictions(ctx context.Context, frame *features.FeatureFrame, req models.ForecastRequest, log *logrus.Entry) ([]models.PredictionPoint, string) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(string(StateTraining))

	targetCol := features.TargetColumn(req.Domain)
	featureCols := e.engineer.FeatureColumns(frame, req.Domain)

	if frame.Len() < e.minDataPoints {
		log.WithError(&utils.InsufficientDataError{
			Rows:     frame.Len(),
			Required: e.minDataPoints,
		}).Warn("Insufficient data points, using trend fallback")
		return e.trendPredictions(frame, targetCol, req.TimeHorizon), models.ModelLinearTrend
	}
	if len(featureCols) == 0 || !frame.HasColumn(targetCol) {
		log.WithError(&utils.FeatureMismatchError{Column: targetCol}).
			Warn("Missing features or target column, using trend fallback")
		return e.trendPredictions(frame, targetCol, req.TimeHorizon), models.ModelLinearTrend
	}

	x := frame.Matrix(featureCols)
	y, _ := frame.Column(targetCol)

	model := e.newModel()
	fitScore, err := model.Train(x, y)
	if err != nil {
		log.WithError(err).Warn("Model training failed, using trend fallback")
		return e.trendPredictions(frame, targetCol, req.TimeHorizon), models.ModelLinearTrend
	}

	span.AddEvent(string(StatePredicting))
	lastDate := frame.LastDate()
	futureDates := make([]time.Time, req.TimeHorizon)
	for i := range futureDates {
		futureDates[i] = lastDate.AddDate(0, 0, i+1)
	}

	futureX := e.engineer.CreateFutureFeatures(frame, futureDates, featureCols)
	if len(futureX) == 0 {
		log.Warn("No future feature rows, using trend fallback")
		return e.trendPredictions(frame, targetCol, req.TimeHorizon), models.ModelLinearTrend
	}

	values := model.Predict(futureX)
	predictions := make([]models.PredictionPoint, len(values))
	for i, v := range values {
		predictions[i] = models.PredictionPoint{
			Date:           futureDates[i],
			PredictedValue: round2(v),
			Confidence:     round2(e.scorer.Score(i, fitScore)),
		}
	}
	return predictions, models.ModelLinearRegression
}

// trendPredictions projects the target column with the linear trend model.
// The dates start from tomorrow because the frame may be empty. A frame with
// no target values skips the model so the flat placeholder applies.
func (e *Engine) trendPredictions(frame *features.FeatureFrame, targetCol string, horizon int) []models.PredictionPoint {
	values := targetValues(frame, targetCol)
	if len(values) == 0 {
		return degradedPoints(nil, horizon)
	}
	projected := NewLinearTrend().Predict(values, horizon)
	return degradedPoints(projected, horizon)
}

func targetValues(frame *features.FeatureFrame, targetCol string) []float64 {
	if frame == nil {
		return nil
	}
	values, ok := frame.Column(targetCol)
	if !ok {
		return nil
	}
	return values
}

// degradedPoints wraps fallback model output in prediction points with a
// flat reduced confidence.
func degradedPoints(projected []float64, horizon int) []models.PredictionPoint {
	base := time.Now()
	points := make([]models.PredictionPoint, horizon)
	for i := 0; i < horizon; i++ {
		value := 100.0
		if i < len(projected) {
			value = projected[i]
		}
		points[i] = models.PredictionPoint{
			Date:           base.AddDate(0, 0, i+1),
			PredictedValue: round2(value),
			Confidence:     0.6,
		}
	}
	return points
}

// generateInsights runs the rule-based generator, replacing its output with
// augmented insights when the external service returns any.
func (e *Engine) generateInsights(ctx context.Context, req models.ForecastRequest, predictions []models.PredictionPoint, frame *features.FeatureFrame) []string {
	insights := e.insights.Generate(predictions, req.Domain, frame)

	if e.augmenter == nil || !e.augmenter.Enabled() {
		return insights
	}

	augmented, err := e.augmenter.GenerateInsights(ctx, req.Domain, req.EntityID, predictions)
	if err != nil {
		e.logger.WithError(err).Warn("Insight augmentation failed, keeping rule-based insights")
		return insights
	}
	if len(augmented) == 0 {
		return insights
	}
	if len(augmented) > MaxInsights {
		augmented = augmented[:MaxInsights]
	}
	return augmented
}

// fallbackResponse is the last resort when the pipeline cannot produce any
// data-driven forecast. It is structurally identical to a real response.
func (e *Engine) fallbackResponse(req models.ForecastRequest, requestID string, cause error) *models.ForecastResponse {
	base := time.Now()
	predictions := make([]models.PredictionPoint, req.TimeHorizon)
	for i := range predictions {
		predictions[i] = models.PredictionPoint{
			Date:           base.AddDate(0, 0, i+1),
			PredictedValue: 100.0,
			Confidence:     0.5,
		}
	}

	return &models.ForecastResponse{
		Domain:      req.Domain,
		EntityID:    req.EntityID,
		TimeHorizon: req.TimeHorizon,
		Predictions: predictions,
		Insights: []string{
			"Unable to generate detailed insights: " + cause.Error(),
			"Using basic trend analysis",
		},
		Metadata: models.PredictionMetadata{
			ModelUsed:     models.ModelFallback,
			DataPoints:    0,
			LastUpdated:   time.Now().UTC(),
			ConfidenceAvg: 0.5,
			RequestID:     requestID,
		},
	}
}

func buildMetadata(modelUsed string, dataPoints int, requestID string, predictions []models.PredictionPoint) models.PredictionMetadata {
	var avg float64
	if len(predictions) > 0 {
		for _, p := range predictions {
			avg += p.Confidence
		}
		avg /= float64(len(predictions))
	}

	return models.PredictionMetadata{
		ModelUsed:     modelUsed,
		DataPoints:    dataPoints,
		LastUpdated:   time.Now().UTC(),
		ConfidenceAvg: round2(avg),
		RequestID:     requestID,
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
