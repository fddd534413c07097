package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/helios-bi/foresight-go/internal/erp"
	"github.com/helios-bi/foresight-go/internal/models"
	"github.com/helios-bi/foresight-go/internal/utils"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// HistoryRepository reads historical records straight from the transactional
// store. It is a drop-in alternative to the ERP HTTP client for deployments
// where this service shares a database with the ERP system.
type HistoryRepository struct {
	pool        DatabasePool
	historyDays int
	logger      *logrus.Logger
}

func NewHistoryRepository(pool DatabasePool, historyDays int, logger *logrus.Logger) *HistoryRepository {
	if historyDays <= 0 {
		historyDays = 180
	}
	return &HistoryRepository{
		pool:        pool,
		historyDays: historyDays,
		logger:      logger,
	}
}

// FetchHistory loads the history window for a domain entity.
func (r *HistoryRepository) FetchHistory(ctx context.Context, domain models.Domain, entityID string) (*erp.RawData, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -r.historyDays)

	var (
		raw *erp.RawData
		err error
	)
	switch domain {
	case models.DomainInventory:
		raw, err = r.fetchInventory(ctx, entityID, cutoff)
	case models.DomainBudget:
		raw, err = r.fetchExpenses(ctx, entityID, cutoff)
	case models.DomainResource:
		raw, err = r.fetchUtilization(ctx, entityID, cutoff)
	case models.DomainSales:
		raw, err = r.fetchOrders(ctx, cutoff)
	default:
		return nil, utils.NewDataUnavailableError("database", "unsupported domain %q", domain)
	}
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"domain":    domain,
		"entity_id": entityID,
		"records":   raw.RecordCount(domain),
	}).Debug("Fetched history from database")
	return raw, nil
}

func (r *HistoryRepository) fetchInventory(ctx context.Context, itemID string, cutoff time.Time) (*erp.RawData, error) {
	query := `
		SELECT recorded_on, quantity
		FROM inventory_history
		WHERE item_id = $1 AND recorded_on >= $2
		ORDER BY recorded_on ASC`

	rows, err := r.pool.Query(ctx, query, itemID, cutoff)
	if err != nil {
		return nil, utils.NewDataUnavailableError("database", "inventory query failed: %v", err)
	}
	defer rows.Close()

	raw := &erp.RawData{}
	for rows.Next() {
		var (
			date     time.Time
			quantity float64
		)
		if err := rows.Scan(&date, &quantity); err != nil {
			return nil, utils.NewDataUnavailableError("database", "failed to scan inventory row: %v", err)
		}
		raw.History = append(raw.History, erp.InventoryRecord{
			Date:     erp.Date{Time: date},
			Quantity: quantity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewDataUnavailableError("database", "inventory rows failed: %v", err)
	}
	return raw, nil
}

func (r *HistoryRepository) fetchExpenses(ctx context.Context, category string, cutoff time.Time) (*erp.RawData, error) {
	query := `
		SELECT spent_on, amount, category
		FROM expenses
		WHERE category = $1 AND spent_on >= $2
		ORDER BY spent_on ASC`

	rows, err := r.pool.Query(ctx, query, category, cutoff)
	if err != nil {
		return nil, utils.NewDataUnavailableError("database", "expenses query failed: %v", err)
	}
	defer rows.Close()

	raw := &erp.RawData{}
	for rows.Next() {
		var rec erp.ExpenseRecord
		var date time.Time
		if err := rows.Scan(&date, &rec.Amount, &rec.Category); err != nil {
			return nil, utils.NewDataUnavailableError("database", "failed to scan expense row: %v", err)
		}
		rec.Date = erp.Date{Time: date}
		raw.Expenses = append(raw.Expenses, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewDataUnavailableError("database", "expenses rows failed: %v", err)
	}
	return raw, nil
}

func (r *HistoryRepository) fetchUtilization(ctx context.Context, department string, cutoff time.Time) (*erp.RawData, error) {
	query := `
		SELECT worked_on, utilized_hours, available_hours
		FROM department_utilization
		WHERE department = $1 AND worked_on >= $2
		ORDER BY worked_on ASC`

	rows, err := r.pool.Query(ctx, query, department, cutoff)
	if err != nil {
		return nil, utils.NewDataUnavailableError("database", "utilization query failed: %v", err)
	}
	defer rows.Close()

	raw := &erp.RawData{}
	for rows.Next() {
		var rec erp.UtilizationRecord
		var date time.Time
		if err := rows.Scan(&date, &rec.UtilizedHours, &rec.AvailableHours); err != nil {
			return nil, utils.NewDataUnavailableError("database", "failed to scan utilization row: %v", err)
		}
		rec.Date = erp.Date{Time: date}
		raw.UtilizationData = append(raw.UtilizationData, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewDataUnavailableError("database", "utilization rows failed: %v", err)
	}
	return raw, nil
}

func (r *HistoryRepository) fetchOrders(ctx context.Context, cutoff time.Time) (*erp.RawData, error) {
	query := `
		SELECT ordered_on, total_amount
		FROM orders
		WHERE ordered_on >= $1
		ORDER BY ordered_on ASC`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, utils.NewDataUnavailableError("database", "orders query failed: %v", err)
	}
	defer rows.Close()

	raw := &erp.RawData{}
	for rows.Next() {
		var rec erp.OrderRecord
		var date time.Time
		if err := rows.Scan(&date, &rec.TotalAmount); err != nil {
			return nil, utils.NewDataUnavailableError("database", "failed to scan order row: %v", err)
		}
		rec.Date = erp.Date{Time: date}
		raw.Orders = append(raw.Orders, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewDataUnavailableError("database", "orders rows failed: %v", err)
	}
	return raw, nil
}

// HealthCheck verifies the pool answers a trivial query.
func (r *HistoryRepository) HealthCheck(ctx context.Context) error {
	var one int
	return r.pool.QueryRow(ctx, "SELECT 1").Scan(&one)
}
