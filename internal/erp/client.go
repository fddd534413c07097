package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/helios-bi/foresight-go/internal/config"
	"github.com/helios-bi/foresight-go/internal/models"
	"github.com/helios-bi/foresight-go/internal/utils"
)

// Client fetches historical records from the ERP HTTP API.
type Client struct {
	HTTPClient  *http.Client
	baseURL     string
	historyDays int
	logger      *logrus.Logger
}

// NewClient creates a new ERP client instance.
//
// Parameters:
//
//	cfg: ERP configuration.
//	logger: Application logger.
//
// Returns:
//
//	*Client: Initialized client.
func NewClient(cfg *config.ERPConfig, logger *logrus.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	historyDays := cfg.HistoryDays
	if historyDays <= 0 {
		historyDays = 180
	}

	return &Client{
		HTTPClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimSuffix(cfg.ServiceURL, "/"),
		historyDays: historyDays,
		logger:      logger,
	}
}

// FetchHistory retrieves the historical record list for an entity. An empty
// list is valid data; connectivity and parse failures are reported as a
// DataUnavailableError so the orchestrator can distinguish them.
//
// Parameters:
//
//	ctx: Context.
//	domain: Forecasting domain.
//	entityID: Entity identifier (SKU, department, category).
//
// Returns:
//
//	*RawData: Historical records keyed by the domain's list field.
//	error: DataUnavailableError if the fetch fails.
func (c *Client) FetchHistory(ctx context.Context, domain models.Domain, entityID string) (*RawData, error) {
	path, err := c.buildPath(domain, entityID)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"domain": domain,
		"entity": entityID,
		"path":   path,
	}).Debug("Fetching historical data")

	var data RawData
	if err := c.makeRequest(ctx, path, &data); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"domain":  domain,
		"entity":  entityID,
		"records": data.RecordCount(domain),
	}).Info("Fetched historical data")

	return &data, nil
}

// HealthCheck checks whether the ERP service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	healthURL := strings.TrimSuffix(c.baseURL, "/api/v1") + "/health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("ERP service unreachable: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("Error closing response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ERP service returned status %d", resp.StatusCode)
	}
	return nil
}

// buildPath constructs the domain-specific history endpoint path.
func (c *Client) buildPath(domain models.Domain, entityID string) (string, error) {
	days := strconv.Itoa(c.historyDays)
	switch domain {
	case models.DomainInventory:
		return fmt.Sprintf("/inventory/%s/history?days=%s", url.PathEscape(entityID), days), nil
	case models.DomainBudget:
		return fmt.Sprintf("/finance/expenses?category=%s&days=%s", url.QueryEscape(entityID), days), nil
	case models.DomainResource:
		return fmt.Sprintf("/hr/utilization?department=%s&days=%s", url.QueryEscape(entityID), days), nil
	case models.DomainSales:
		return fmt.Sprintf("/sales/orders?days=%s", days), nil
	default:
		return "", utils.NewDataUnavailableError("erp", "unknown domain %q", domain)
	}
}

// makeRequest is a helper method to make GET requests against the ERP API.
func (c *Client) makeRequest(ctx context.Context, path string, result interface{}) error {
	reqURL := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return utils.NewDataUnavailableError("erp", "failed to create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Foresight-Go/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return utils.NewDataUnavailableError("erp", "request failed: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("Error closing response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return utils.NewDataUnavailableError("erp", "failed to read response body: %v", err)
	}

	if resp.StatusCode >= 400 {
		return utils.NewDataUnavailableError("erp", "service error (%d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return utils.NewDataUnavailableError("erp", "failed to unmarshal response: %v", err)
	}

	return nil
}
