package erp

import (
	"fmt"
	"strings"
	"time"

	"github.com/helios-bi/foresight-go/internal/models"
)

// Date wraps time.Time to accept both RFC 3339 timestamps and plain
// calendar dates from the ERP API.
type Date struct {
	time.Time
}

// UnmarshalJSON parses a JSON date string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognized date format %q", s)
}

// MarshalJSON renders the date as a plain calendar date.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// InventoryRecord is a daily stock movement observation.
type InventoryRecord struct {
	Date     Date    `json:"date"`
	Quantity float64 `json:"quantity"`
}

// ExpenseRecord is a single expense entry; several may share a day.
type ExpenseRecord struct {
	Date     Date    `json:"date"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category,omitempty"`
}

// UtilizationRecord reports team hours for one day.
type UtilizationRecord struct {
	Date           Date    `json:"date"`
	UtilizedHours  float64 `json:"utilized_hours"`
	AvailableHours float64 `json:"available_hours"`
}

// OrderRecord is a single sales order; several may share a day.
type OrderRecord struct {
	Date        Date    `json:"date"`
	TotalAmount float64 `json:"total_amount"`
}

// RawData is the per-domain historical payload returned by the data source.
// Exactly one list is populated per request, keyed by the domain.
type RawData struct {
	History         []InventoryRecord   `json:"history,omitempty"`
	Expenses        []ExpenseRecord     `json:"expenses,omitempty"`
	UtilizationData []UtilizationRecord `json:"utilization_data,omitempty"`
	Orders          []OrderRecord       `json:"orders,omitempty"`
}

// RecordCount returns the number of raw records available for the domain.
func (r *RawData) RecordCount(domain models.Domain) int {
	if r == nil {
		return 0
	}
	switch domain {
	case models.DomainInventory:
		return len(r.History)
	case models.DomainBudget:
		return len(r.Expenses)
	case models.DomainResource:
		return len(r.UtilizationData)
	case models.DomainSales:
		return len(r.Orders)
	}
	return 0
}
