package features

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-bi/foresight-go/internal/erp"
	"github.com/helios-bi/foresight-go/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func inventoryHistory(days int) *erp.RawData {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := &erp.RawData{}
	for i := 0; i < days; i++ {
		raw.History = append(raw.History, erp.InventoryRecord{
			Date:     erp.Date{Time: base.AddDate(0, 0, i)},
			Quantity: 100 + float64(i),
		})
	}
	return raw
}

func TestPrepareFeaturesEmptyData(t *testing.T) {
	engineer := NewEngineer(testLogger())

	for _, raw := range []*erp.RawData{nil, {}} {
		frame, err := engineer.PrepareFeatures(raw, models.DomainInventory)
		require.NoError(t, err)
		assert.True(t, frame.Empty())
	}
}

func TestPrepareFeaturesUnknownDomain(t *testing.T) {
	engineer := NewEngineer(testLogger())

	_, err := engineer.PrepareFeatures(&erp.RawData{}, models.Domain("weather"))
	assert.Error(t, err)
}

func TestPrepareInventoryFeatures(t *testing.T) {
	engineer := NewEngineer(testLogger())

	frame, err := engineer.PrepareFeatures(inventoryHistory(10), models.DomainInventory)
	require.NoError(t, err)

	// The first seven rows have undefined seven-day lags and get dropped.
	assert.Equal(t, 3, frame.Len())
	for _, col := range []string{ColQuantity, "quantity_lag_1", "quantity_lag_7", "quantity_ma_7", "quantity_ma_30", "quantity_std_7", "quantity_trend"} {
		assert.True(t, frame.HasColumn(col), "missing column %s", col)
	}

	quantity, _ := frame.Column(ColQuantity)
	assert.Equal(t, []float64{107, 108, 109}, quantity)
	lag7, _ := frame.Column("quantity_lag_7")
	assert.Equal(t, []float64{100, 101, 102}, lag7)
	trend, _ := frame.Column("quantity_trend")
	assert.Equal(t, []float64{1, 1, 1}, trend)
}

func TestPrepareInventoryFeaturesSortsRecords(t *testing.T) {
	engineer := NewEngineer(testLogger())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	raw := &erp.RawData{}
	for i := 9; i >= 0; i-- {
		raw.History = append(raw.History, erp.InventoryRecord{
			Date:     erp.Date{Time: base.AddDate(0, 0, i)},
			Quantity: float64(10 * i),
		})
	}

	frame, err := engineer.PrepareFeatures(raw, models.DomainInventory)
	require.NoError(t, err)
	assert.Equal(t, base.AddDate(0, 0, 9), frame.LastDate())
	assert.Equal(t, 90.0, frame.LastValue(ColQuantity))
}

func TestPrepareBudgetFeaturesSumsByDay(t *testing.T) {
	engineer := NewEngineer(testLogger())
	day := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

	raw := &erp.RawData{
		Expenses: []erp.ExpenseRecord{
			{Date: erp.Date{Time: day.Add(9 * time.Hour)}, Amount: 100},
			{Date: erp.Date{Time: day.Add(15 * time.Hour)}, Amount: 50},
			{Date: erp.Date{Time: day.AddDate(0, 0, 1)}, Amount: 70},
		},
	}

	frame, err := engineer.PrepareFeatures(raw, models.DomainBudget)
	require.NoError(t, err)

	// Intra-day entries collapse to one summed row and nothing is dropped.
	require.Equal(t, 2, frame.Len())
	amounts, _ := frame.Column(ColAmount)
	assert.Equal(t, []float64{150, 70}, amounts)

	// Zero fill instead of dropping keeps both rows despite undefined lags.
	lag1, _ := frame.Column("amount_lag_1")
	assert.Equal(t, []float64{0, 150}, lag1)
}

func TestPrepareResourceFeaturesClampsRate(t *testing.T) {
	engineer := NewEngineer(testLogger())
	base := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

	raw := &erp.RawData{
		UtilizationData: []erp.UtilizationRecord{
			{Date: erp.Date{Time: base}, UtilizedHours: 30, AvailableHours: 40},
			{Date: erp.Date{Time: base.AddDate(0, 0, 1)}, UtilizedHours: 50, AvailableHours: 40},
			{Date: erp.Date{Time: base.AddDate(0, 0, 2)}, UtilizedHours: 10, AvailableHours: 0},
		},
	}

	frame, err := engineer.PrepareFeatures(raw, models.DomainResource)
	require.NoError(t, err)

	rate, _ := frame.Column(ColUtilizationRate)
	require.Len(t, rate, 3)
	assert.InDelta(t, 0.75, rate[0], 1e-9)
	assert.Equal(t, 1.0, rate[1], "over-allocation clamps to 1")
	assert.Equal(t, 1.0, rate[2], "zero available hours uses floor of 1 then clamps")
}

func TestFeatureColumnsExcludeTargets(t *testing.T) {
	engineer := NewEngineer(testLogger())

	frame, err := engineer.PrepareFeatures(inventoryHistory(10), models.DomainInventory)
	require.NoError(t, err)

	cols := engineer.FeatureColumns(frame, models.DomainInventory)
	assert.NotContains(t, cols, ColQuantity)
	assert.Contains(t, cols, ColDayOfWeek)
	assert.Contains(t, cols, "quantity_ma_7")

	resourceFrame, err := engineer.PrepareFeatures(&erp.RawData{
		UtilizationData: []erp.UtilizationRecord{
			{Date: erp.Date{Time: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)}, UtilizedHours: 8, AvailableHours: 8},
		},
	}, models.DomainResource)
	require.NoError(t, err)

	resourceCols := engineer.FeatureColumns(resourceFrame, models.DomainResource)
	assert.NotContains(t, resourceCols, ColUtilizationRate)
	assert.NotContains(t, resourceCols, ColUtilizedHours)
	assert.NotContains(t, resourceCols, ColAvailableHours)
}

func TestCreateFutureFeatures(t *testing.T) {
	engineer := NewEngineer(testLogger())

	frame, err := engineer.PrepareFeatures(inventoryHistory(10), models.DomainInventory)
	require.NoError(t, err)
	cols := engineer.FeatureColumns(frame, models.DomainInventory)

	future := []time.Time{
		frame.LastDate().AddDate(0, 0, 1),
		frame.LastDate().AddDate(0, 0, 2),
	}
	rows := engineer.CreateFutureFeatures(frame, future, cols)

	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Len(t, row, len(cols))
	}

	// Calendar columns come from the future date itself.
	for j, name := range cols {
		if name == ColDayOfWeek {
			want, _ := calendarValue(ColDayOfWeek, future[0])
			assert.Equal(t, want, rows[0][j])
		}
		// History-derived columns are pinned to the last observation.
		if name == "quantity_ma_7" {
			assert.Equal(t, frame.LastValue("quantity_ma_7"), rows[0][j])
			assert.Equal(t, frame.LastValue("quantity_ma_7"), rows[1][j])
		}
	}
}

func TestCreateFutureFeaturesEmptyInputs(t *testing.T) {
	engineer := NewEngineer(testLogger())

	empty := NewFeatureFrame(nil)
	assert.Nil(t, engineer.CreateFutureFeatures(empty, []time.Time{time.Now()}, []string{ColMonth}))

	frame, err := engineer.PrepareFeatures(inventoryHistory(10), models.DomainInventory)
	require.NoError(t, err)
	assert.Nil(t, engineer.CreateFutureFeatures(frame, nil, []string{ColMonth}))
}
