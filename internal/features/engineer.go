package features

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/helios-bi/foresight-go/internal/erp"
	"github.com/helios-bi/foresight-go/internal/models"
)

// Target column names per domain.
const (
	ColQuantity        = "quantity"
	ColAmount          = "amount"
	ColUtilizationRate = "utilization_rate"
	ColUtilizedHours   = "utilized_hours"
	ColAvailableHours  = "available_hours"
	ColTotalAmount     = "total_amount"
)

// domainSpec is the per-domain feature engineering strategy: which raw list
// feeds the frame, which column is the regression target, which frame
// columns are excluded from the feature matrix, and how the frame is built.
type domainSpec struct {
	target   string
	excluded map[string]bool
	build    func(raw *erp.RawData) *FeatureFrame
}

var domainSpecs = map[models.Domain]domainSpec{
	models.DomainInventory: {
		target:   ColQuantity,
		excluded: map[string]bool{ColQuantity: true},
		build:    buildInventoryFrame,
	},
	models.DomainBudget: {
		target:   ColAmount,
		excluded: map[string]bool{ColAmount: true},
		build:    buildBudgetFrame,
	},
	models.DomainResource: {
		target: ColUtilizationRate,
		excluded: map[string]bool{
			ColUtilizationRate: true,
			ColUtilizedHours:   true,
			ColAvailableHours:  true,
		},
		build: buildResourceFrame,
	},
	models.DomainSales: {
		target:   ColTotalAmount,
		excluded: map[string]bool{ColTotalAmount: true},
		build:    buildSalesFrame,
	},
}

// TargetColumn returns the regression target column for a domain.
func TargetColumn(domain models.Domain) string {
	return domainSpecs[domain].target
}

// Engineer converts raw per-domain records into feature frames and future
// feature matrices. It is stateless; a single instance serves concurrent
// requests.
type Engineer struct {
	logger *logrus.Logger
}

// NewEngineer creates a feature engineer.
func NewEngineer(logger *logrus.Logger) *Engineer {
	return &Engineer{logger: logger}
}

// PrepareFeatures builds the domain-specific feature frame from raw
// historical data. Missing or empty record lists yield an empty frame, not
// an error.
func (e *Engineer) PrepareFeatures(raw *erp.RawData, domain models.Domain) (*FeatureFrame, error) {
	spec, ok := domainSpecs[domain]
	if !ok {
		return nil, fmt.Errorf("unknown domain %q", domain)
	}

	if raw == nil || raw.RecordCount(domain) == 0 {
		return NewFeatureFrame(nil), nil
	}

	frame := spec.build(raw)

	e.logger.WithFields(logrus.Fields{
		"domain":  domain,
		"rows":    frame.Len(),
		"columns": len(frame.Columns()),
	}).Debug("Prepared feature frame")

	return frame, nil
}

// FeatureColumns returns the frame columns used as regression features for
// the domain: everything except the target and its raw companions, in frame
// column order.
func (e *Engineer) FeatureColumns(frame *FeatureFrame, domain models.Domain) []string {
	spec := domainSpecs[domain]
	var cols []string
	for _, name := range frame.Columns() {
		if spec.excluded[name] {
			continue
		}
		cols = append(cols, name)
	}
	return cols
}

// CreateFutureFeatures builds one feature row per future date, in the same
// column order used for training. Calendar columns are computed directly
// from the date; lag, moving-average, deviation and trend columns carry the
// frame's last observed value; everything else carries the column mean.
// An empty frame or empty horizon yields nil, which callers must treat as a
// trigger for fallback prediction.
func (e *Engineer) CreateFutureFeatures(frame *FeatureFrame, futureDates []time.Time, featureCols []string) [][]float64 {
	if frame.Empty() || len(futureDates) == 0 {
		return nil
	}

	rows := make([][]float64, len(futureDates))
	for i, date := range futureDates {
		row := make([]float64, len(featureCols))
		for j, name := range featureCols {
			if v, ok := calendarValue(name, date); ok {
				row[j] = v
				continue
			}
			if !frame.HasColumn(name) {
				row[j] = 0
				continue
			}
			if isHistoryDerived(name) {
				row[j] = frame.LastValue(name)
			} else {
				row[j] = frame.Mean(name)
			}
		}
		rows[i] = row
	}
	return rows
}

// isHistoryDerived reports whether a column's future value is pinned to the
// last observation rather than the column mean. This is a known modeling
// approximation, preserved from the original pipeline.
func isHistoryDerived(name string) bool {
	for _, keyword := range []string{"lag", "ma", "std", "trend"} {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}

func buildInventoryFrame(raw *erp.RawData) *FeatureFrame {
	records := make([]erp.InventoryRecord, len(raw.History))
	copy(records, raw.History)
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date.Time)
	})

	dates := make([]time.Time, len(records))
	quantity := make([]float64, len(records))
	for i, r := range records {
		dates[i] = dateOnly(r.Date.Time)
		quantity[i] = r.Quantity
	}

	frame := NewFeatureFrame(dates)
	frame.AddColumn(ColQuantity, quantity)
	addCalendarColumns(frame, ColDayOfYear, ColMonth, ColWeekOfYear, ColDayOfWeek)
	frame.AddColumn("quantity_lag_1", lag(quantity, 1))
	frame.AddColumn("quantity_lag_7", lag(quantity, 7))
	frame.AddColumn("quantity_ma_7", rollingMean(quantity, 7))
	frame.AddColumn("quantity_ma_30", rollingMean(quantity, 30))
	frame.AddColumn("quantity_std_7", rollingStd(quantity, 7))
	frame.AddColumn("quantity_trend", diff(quantity))

	// Leading rows with undefined lags carry no usable signal at daily grain.
	frame.DropNaNRows()
	return frame
}

func buildBudgetFrame(raw *erp.RawData) *FeatureFrame {
	dates, amounts := sumByDay(len(raw.Expenses), func(i int) (time.Time, float64) {
		return raw.Expenses[i].Date.Time, raw.Expenses[i].Amount
	})

	frame := NewFeatureFrame(dates)
	frame.AddColumn(ColAmount, amounts)
	addCalendarColumns(frame, ColDayOfMonth, ColMonth, ColQuarter, ColDayOfWeek)
	frame.AddColumn("amount_ma_7", rollingMean(amounts, 7))
	frame.AddColumn("amount_ma_30", rollingMean(amounts, 30))
	frame.AddColumn("amount_lag_1", lag(amounts, 1))
	frame.AddColumn("amount_lag_7", lag(amounts, 7))

	// Zero-fill keeps short expense series usable.
	frame.FillNaN(0)
	return frame
}

func buildResourceFrame(raw *erp.RawData) *FeatureFrame {
	records := make([]erp.UtilizationRecord, len(raw.UtilizationData))
	copy(records, raw.UtilizationData)
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date.Time)
	})

	dates := make([]time.Time, len(records))
	utilized := make([]float64, len(records))
	available := make([]float64, len(records))
	rate := make([]float64, len(records))
	for i, r := range records {
		dates[i] = dateOnly(r.Date.Time)
		utilized[i] = r.UtilizedHours
		available[i] = r.AvailableHours

		hours := r.AvailableHours
		if hours < 1 {
			hours = 1
		}
		u := r.UtilizedHours / hours
		if u < 0 {
			u = 0
		} else if u > 1 {
			u = 1
		}
		rate[i] = u
	}

	frame := NewFeatureFrame(dates)
	frame.AddColumn(ColUtilizedHours, utilized)
	frame.AddColumn(ColAvailableHours, available)
	frame.AddColumn(ColUtilizationRate, rate)
	addCalendarColumns(frame, ColDayOfWeek, ColMonth, ColQuarter)
	frame.AddColumn("util_ma_7", rollingMean(rate, 7))
	frame.AddColumn("util_ma_30", rollingMean(rate, 30))

	frame.FillNaN(0)
	return frame
}

func buildSalesFrame(raw *erp.RawData) *FeatureFrame {
	dates, totals := sumByDay(len(raw.Orders), func(i int) (time.Time, float64) {
		return raw.Orders[i].Date.Time, raw.Orders[i].TotalAmount
	})

	frame := NewFeatureFrame(dates)
	frame.AddColumn(ColTotalAmount, totals)
	addCalendarColumns(frame, ColDayOfWeek, ColMonth, ColQuarter, ColDayOfMonth)
	frame.AddColumn("sales_ma_7", rollingMean(totals, 7))
	frame.AddColumn("sales_ma_30", rollingMean(totals, 30))
	frame.AddColumn("sales_lag_1", lag(totals, 1))
	frame.AddColumn("sales_lag_7", lag(totals, 7))

	frame.FillNaN(0)
	return frame
}

// sumByDay aggregates irregular intra-day records into one summed value per
// calendar day, ascending by date.
func sumByDay(n int, at func(i int) (time.Time, float64)) ([]time.Time, []float64) {
	byDay := make(map[time.Time]float64, n)
	for i := 0; i < n; i++ {
		date, value := at(i)
		byDay[dateOnly(date)] += value
	}

	dates := make([]time.Time, 0, len(byDay))
	for date := range byDay {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	values := make([]float64, len(dates))
	for i, date := range dates {
		values[i] = byDay[date]
	}
	return dates, values
}

// addCalendarColumns derives the named calendar columns from the frame dates.
func addCalendarColumns(frame *FeatureFrame, names ...string) {
	for _, name := range names {
		col := make([]float64, frame.Len())
		for i, date := range frame.Dates() {
			col[i], _ = calendarValue(name, date)
		}
		frame.AddColumn(name, col)
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
