package services

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"

	"github.com/helios-bi/foresight-go/internal/features"
	"github.com/helios-bi/foresight-go/internal/models"
)

// MaxInsights caps the number of insights carried on a response.
const MaxInsights = 6

// trendSpec holds the per-domain trend threshold and phrasing. Thresholds
// are percentages: budget tolerates wider swings before commenting.
type trendSpec struct {
	threshold float64
	increase  func(pct float64) []string
	decrease  func(pct float64) []string
	stable    []string
}

var trendSpecs = map[models.Domain]trendSpec{
	models.DomainInventory: {
		threshold: 10,
		increase: func(pct float64) []string {
			return []string{
				fmt.Sprintf("Expected %.1f%% increase in demand over forecast period", pct),
				"Consider increasing inventory levels to meet growing demand",
			}
		},
		decrease: func(pct float64) []string {
			return []string{
				fmt.Sprintf("Expected %.1f%% decrease in demand", pct),
				"Consider reducing inventory to avoid overstocking",
			}
		},
		stable: []string{
			"Demand expected to remain stable",
			"Current inventory levels appear adequate",
		},
	},
	models.DomainBudget: {
		threshold: 15,
		increase: func(pct float64) []string {
			return []string{
				fmt.Sprintf("Budget spending trending %.1f%% higher", pct),
				"Review spending controls and budget allocation",
			}
		},
		decrease: func(pct float64) []string {
			return []string{
				fmt.Sprintf("Budget spending trending %.1f%% lower", pct),
				"Potential opportunity for budget reallocation",
			}
		},
		stable: []string{"Budget spending on track with historical patterns"},
	},
	models.DomainResource: {
		threshold: 10,
		increase: func(pct float64) []string {
			return []string{
				fmt.Sprintf("Resource utilization expected to increase by %.1f%%", pct),
				"Consider capacity planning and resource allocation",
			}
		},
		decrease: func(pct float64) []string {
			return []string{
				fmt.Sprintf("Resource utilization expected to decrease by %.1f%%", pct),
				"Potential opportunity for resource optimization",
			}
		},
		stable: []string{"Resource utilization expected to remain stable"},
	},
	models.DomainSales: {
		threshold: 10,
		increase: func(pct float64) []string {
			return []string{
				fmt.Sprintf("Sales revenue expected to grow by %.1f%%", pct),
				"Positive growth trend - consider scaling operations",
			}
		},
		decrease: func(pct float64) []string {
			return []string{
				fmt.Sprintf("Sales revenue expected to decline by %.1f%%", pct),
				"Review sales strategy and market conditions",
			}
		},
		stable: []string{"Sales revenue expected to remain steady"},
	},
}

// InsightGenerator produces ranked textual insights from predictions,
// confidence levels, historical context, and domain heuristics. It is pure
// and side-effect free, so the augmentation fallback path needs no extra
// I/O.
type InsightGenerator struct {
	logger  *logrus.Logger
	printer *message.Printer
}

// NewInsightGenerator creates an insight generator.
func NewInsightGenerator(logger *logrus.Logger) *InsightGenerator {
	return &InsightGenerator{
		logger:  logger,
		printer: message.NewPrinter(language.English),
	}
}

// Generate runs the staged rule pipeline. Each stage appends to the running
// list; the result is capped at MaxInsights.
func (g *InsightGenerator) Generate(predictions []models.PredictionPoint, domain models.Domain, frame *features.FeatureFrame) []string {
	if len(predictions) == 0 {
		return []string{"Insufficient data for insights"}
	}

	var insights []string
	insights = append(insights, g.analyzeTrend(predictions, domain)...)
	insights = append(insights, g.analyzeConfidence(predictions)...)
	if frame != nil && !frame.Empty() {
		insights = append(insights, g.analyzeHistoricalContext(predictions, frame, domain)...)
	}
	insights = append(insights, g.domainInsights(predictions, domain)...)

	if len(insights) > MaxInsights {
		insights = insights[:MaxInsights]
	}
	return insights
}

// analyzeTrend compares the first and last predicted values against the
// domain threshold. A zero first value yields no trend insight rather than a
// division error.
func (g *InsightGenerator) analyzeTrend(predictions []models.PredictionPoint, domain models.Domain) []string {
	if len(predictions) < 2 {
		return nil
	}

	first := predictions[0].PredictedValue
	last := predictions[len(predictions)-1].PredictedValue
	if first == 0 {
		return nil
	}

	spec, ok := trendSpecs[domain]
	if !ok {
		return nil
	}

	trendPct := (last - first) / first * 100
	switch {
	case trendPct > spec.threshold:
		return spec.increase(trendPct)
	case trendPct < -spec.threshold:
		return spec.decrease(-trendPct)
	default:
		return spec.stable
	}
}

// analyzeConfidence comments on the reliability of the forecast.
func (g *InsightGenerator) analyzeConfidence(predictions []models.PredictionPoint) []string {
	var insights []string

	sum := 0.0
	minConfidence := math.Inf(1)
	for _, p := range predictions {
		sum += p.Confidence
		if p.Confidence < minConfidence {
			minConfidence = p.Confidence
		}
	}
	avg := sum / float64(len(predictions))

	if avg > 0.85 {
		insights = append(insights, "High confidence predictions based on strong historical patterns")
	} else if avg < 0.7 {
		insights = append(insights, "Prediction confidence is moderate - consider additional data collection")
	}

	if minConfidence < 0.6 {
		insights = append(insights, "Long-term predictions have lower confidence - monitor closely")
	}

	return insights
}

// analyzeHistoricalContext compares the predicted series against the
// historical target column's mean and volatility.
func (g *InsightGenerator) analyzeHistoricalContext(predictions []models.PredictionPoint, frame *features.FeatureFrame, domain models.Domain) []string {
	historical, ok := frame.Column(features.TargetColumn(domain))
	if !ok || len(historical) == 0 {
		return nil
	}

	predicted := make([]float64, len(predictions))
	for i, p := range predictions {
		predicted[i] = p.PredictedValue
	}

	var insights []string

	histAvg := stat.Mean(historical, nil)
	predAvg := stat.Mean(predicted, nil)
	if predAvg > histAvg*1.2 {
		insights = append(insights, "Predicted values significantly higher than historical average")
	} else if predAvg < histAvg*0.8 {
		insights = append(insights, "Predicted values significantly lower than historical average")
	}

	histStd := stat.PopStdDev(historical, nil)
	predStd := stat.PopStdDev(predicted, nil)
	if predStd > histStd*1.5 {
		insights = append(insights, "Increased volatility expected compared to historical patterns")
	} else if predStd < histStd*0.5 {
		insights = append(insights, "Lower volatility expected - more stable period ahead")
	}

	return insights
}

// domainInsights applies per-domain heuristics over the predicted series.
func (g *InsightGenerator) domainInsights(predictions []models.PredictionPoint, domain models.Domain) []string {
	values := make([]float64, len(predictions))
	for i, p := range predictions {
		values[i] = p.PredictedValue
	}

	switch domain {
	case models.DomainInventory:
		return g.inventoryInsights(values)
	case models.DomainBudget:
		if len(values) >= 30 {
			total := sum(values)
			return []string{g.printer.Sprintf("Total predicted spending for period: $%.0f", total)}
		}
	case models.DomainSales:
		if len(values) >= 30 {
			total := sum(values)
			return []string{g.printer.Sprintf("Projected revenue for period: $%.0f", total)}
		}
	}
	return nil
}

func (g *InsightGenerator) inventoryInsights(values []float64) []string {
	var insights []string
	if len(values) == 0 {
		return nil
	}

	maxDemand, minDemand := values[0], values[0]
	for _, v := range values {
		if v > maxDemand {
			maxDemand = v
		}
		if v < minDemand {
			minDemand = v
		}
	}
	if maxDemand > minDemand*2 {
		insights = append(insights, "High demand variability - consider flexible inventory strategy")
	}

	if len(values) >= 14 {
		firstWeek := stat.Mean(values[:7], nil)
		secondWeek := stat.Mean(values[7:14], nil)
		if firstWeek != 0 && math.Abs(secondWeek-firstWeek)/firstWeek > 0.2 {
			insights = append(insights, "Weekly demand patterns detected - optimize replenishment timing")
		}
	}

	return insights
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
