package features

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Calendar feature column names shared across domains.
const (
	ColDayOfYear  = "day_of_year"
	ColMonth      = "month"
	ColWeekOfYear = "week_of_year"
	ColDayOfWeek  = "day_of_week"
	ColDayOfMonth = "day_of_month"
	ColQuarter    = "quarter"
)

// FeatureFrame is an ordered feature table with one row per historical date.
// Rows are chronological ascending. Undefined values (leading lags, first
// differences) are NaN until the domain policy drops or zero-fills them.
// Frames are built fresh per request and never shared between requests.
type FeatureFrame struct {
	dates   []time.Time
	columns []string
	data    map[string][]float64
}

// NewFeatureFrame creates an empty frame for the given dates.
func NewFeatureFrame(dates []time.Time) *FeatureFrame {
	return &FeatureFrame{
		dates: dates,
		data:  make(map[string][]float64),
	}
}

// AddColumn appends a named column. The values slice must match the frame
// length; shorter slices are NaN-padded so a malformed builder cannot
// produce ragged rows.
func (f *FeatureFrame) AddColumn(name string, values []float64) {
	if len(values) < len(f.dates) {
		padded := make([]float64, len(f.dates))
		copy(padded, values)
		for i := len(values); i < len(padded); i++ {
			padded[i] = math.NaN()
		}
		values = padded
	}
	if _, exists := f.data[name]; !exists {
		f.columns = append(f.columns, name)
	}
	f.data[name] = values[:len(f.dates)]
}

// Len returns the number of rows.
func (f *FeatureFrame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.dates)
}

// Empty reports whether the frame has no rows.
func (f *FeatureFrame) Empty() bool {
	return f.Len() == 0
}

// Columns returns the column names in insertion order.
func (f *FeatureFrame) Columns() []string {
	return f.columns
}

// HasColumn reports whether the named column exists.
func (f *FeatureFrame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Column returns the named column's values.
func (f *FeatureFrame) Column(name string) ([]float64, bool) {
	values, ok := f.data[name]
	return values, ok
}

// Dates returns the row dates in chronological order.
func (f *FeatureFrame) Dates() []time.Time {
	return f.dates
}

// LastDate returns the date of the final row.
func (f *FeatureFrame) LastDate() time.Time {
	if f.Empty() {
		return time.Time{}
	}
	return f.dates[len(f.dates)-1]
}

// LastValue returns the final value of the named column, or 0 if the column
// is missing or the frame is empty.
func (f *FeatureFrame) LastValue(name string) float64 {
	values, ok := f.data[name]
	if !ok || len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

// Mean returns the mean of the named column ignoring NaN entries, or 0 for a
// missing or all-NaN column.
func (f *FeatureFrame) Mean(name string) float64 {
	values, ok := f.data[name]
	if !ok {
		return 0
	}
	defined := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) == 0 {
		return 0
	}
	return stat.Mean(defined, nil)
}

// DropNaNRows removes every row containing at least one NaN value. Used by
// domains whose leading lag and difference rows are undefined.
func (f *FeatureFrame) DropNaNRows() {
	keep := make([]int, 0, len(f.dates))
rows:
	for i := range f.dates {
		for _, name := range f.columns {
			if math.IsNaN(f.data[name][i]) {
				continue rows
			}
		}
		keep = append(keep, i)
	}
	if len(keep) == len(f.dates) {
		return
	}

	dates := make([]time.Time, len(keep))
	for j, i := range keep {
		dates[j] = f.dates[i]
	}
	for _, name := range f.columns {
		col := make([]float64, len(keep))
		for j, i := range keep {
			col[j] = f.data[name][i]
		}
		f.data[name] = col
	}
	f.dates = dates
}

// FillNaN replaces every NaN entry with the given value. Used by domains
// that keep short series intact instead of dropping leading rows.
func (f *FeatureFrame) FillNaN(value float64) {
	for _, name := range f.columns {
		col := f.data[name]
		for i, v := range col {
			if math.IsNaN(v) {
				col[i] = value
			}
		}
	}
}

// Matrix assembles the named columns into a row-major feature matrix with
// NaN entries zero-filled; the row order matches the frame.
func (f *FeatureFrame) Matrix(columnNames []string) [][]float64 {
	rows := make([][]float64, f.Len())
	for i := range rows {
		row := make([]float64, len(columnNames))
		for j, name := range columnNames {
			if values, ok := f.data[name]; ok {
				v := values[i]
				if math.IsNaN(v) {
					v = 0
				}
				row[j] = v
			}
		}
		rows[i] = row
	}
	return rows
}

// calendarValue computes a calendar feature directly from a date, with
// day-of-week numbered from Monday=0.
func calendarValue(name string, date time.Time) (float64, bool) {
	switch name {
	case ColDayOfYear:
		return float64(date.YearDay()), true
	case ColMonth:
		return float64(int(date.Month())), true
	case ColWeekOfYear:
		_, week := date.ISOWeek()
		return float64(week), true
	case ColDayOfWeek:
		return float64((int(date.Weekday()) + 6) % 7), true
	case ColDayOfMonth:
		return float64(date.Day()), true
	case ColQuarter:
		return float64((int(date.Month())-1)/3 + 1), true
	}
	return 0, false
}
