package erp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-bi/foresight-go/internal/config"
	"github.com/helios-bi/foresight-go/internal/models"
	"github.com/helios-bi/foresight-go/internal/utils"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestClient(serverURL string) *Client {
	return NewClient(&config.ERPConfig{
		ServiceURL:  serverURL,
		Timeout:     5,
		HistoryDays: 180,
	}, testLogger())
}

func TestFetchHistoryPaths(t *testing.T) {
	tests := []struct {
		name         string
		domain       models.Domain
		entityID     string
		expectedPath string
		expectedRaw  string
		payload      string
		records      int
	}{
		{
			name:         "inventory",
			domain:       models.DomainInventory,
			entityID:     "SKU001",
			expectedPath: "/inventory/SKU001/history",
			expectedRaw:  "days=180",
			payload:      `{"history":[{"date":"2024-01-01","quantity":120},{"date":"2024-01-02T00:00:00","quantity":140}]}`,
			records:      2,
		},
		{
			name:         "budget",
			domain:       models.DomainBudget,
			entityID:     "Marketing",
			expectedPath: "/finance/expenses",
			expectedRaw:  "category=Marketing&days=180",
			payload:      `{"expenses":[{"date":"2024-01-01","amount":99.5,"category":"Marketing"}]}`,
			records:      1,
		},
		{
			name:         "resource",
			domain:       models.DomainResource,
			entityID:     "Engineering",
			expectedPath: "/hr/utilization",
			expectedRaw:  "department=Engineering&days=180",
			payload:      `{"utilization_data":[{"date":"2024-01-01","utilized_hours":30,"available_hours":40}]}`,
			records:      1,
		},
		{
			name:         "sales",
			domain:       models.DomainSales,
			entityID:     "overall",
			expectedPath: "/sales/orders",
			expectedRaw:  "days=180",
			payload:      `{"orders":[{"date":"2024-01-01T10:30:00Z","total_amount":2500}]}`,
			records:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.expectedPath, r.URL.Path)
				assert.Equal(t, tt.expectedRaw, r.URL.RawQuery)
				assert.Equal(t, "application/json", r.Header.Get("Accept"))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.payload))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			raw, err := client.FetchHistory(context.Background(), tt.domain, tt.entityID)
			require.NoError(t, err)
			assert.Equal(t, tt.records, raw.RecordCount(tt.domain))
		})
	}
}

func TestFetchHistoryServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchHistory(context.Background(), models.DomainInventory, "SKU001")
	require.Error(t, err)

	var dataErr *utils.DataUnavailableError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "erp", dataErr.Source)
}

func TestFetchHistoryMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchHistory(context.Background(), models.DomainSales, "overall")
	assert.Error(t, err)
}

func TestFetchHistoryUnreachable(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	_, err := client.FetchHistory(context.Background(), models.DomainInventory, "SKU001")
	assert.Error(t, err)
}

func TestFetchHistoryUnknownDomain(t *testing.T) {
	client := newTestClient("http://localhost")
	_, err := client.FetchHistory(context.Background(), models.Domain("weather"), "x")
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	assert.NoError(t, newTestClient(healthy.URL).HealthCheck(context.Background()))

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()

	assert.Error(t, newTestClient(unhealthy.URL).HealthCheck(context.Background()))
}

func TestHealthCheckStripsAPIPrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL + "/api/v1")
	assert.NoError(t, client.HealthCheck(context.Background()))
}
