package insightai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/helios-bi/foresight-go/internal/config"
	"github.com/helios-bi/foresight-go/internal/models"
	"github.com/helios-bi/foresight-go/internal/utils"
)

// maxAugmentedInsights caps how many lines we accept from the remote
// service regardless of how verbose its completion is.
const maxAugmentedInsights = 5

// Client talks to the insight augmentation service. It authenticates with a
// short-lived user token, sends a completion request describing the forecast,
// and parses the response into individual insight lines. All failures are
// reported as errors so the caller can fall back to rule-based insights.
type Client struct {
	HTTPClient *http.Client

	authURL    string
	serviceURL string
	apiKey     string
	customerID string
	userID     string
	enabled    bool

	logger  *logrus.Logger
	breaker *breaker

	mu    sync.Mutex
	token string
}

func NewClient(cfg *config.InsightAIConfig, logger *logrus.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		authURL:    strings.TrimSuffix(cfg.AuthURL, "/"),
		serviceURL: strings.TrimSuffix(cfg.ServiceURL, "/"),
		apiKey:     cfg.APIKey,
		customerID: cfg.CustomerID,
		userID:     cfg.UserID,
		enabled:    cfg.Enabled,
		logger:     logger,
		breaker:    newBreaker(3, time.Minute, logger),
	}
}

// Enabled reports whether augmentation is configured and switched on.
func (c *Client) Enabled() bool {
	return c.enabled && c.serviceURL != ""
}

// GenerateInsights asks the remote service for narrative insights about the
// predictions. A disabled client returns an empty slice without making any
// network call.
func (c *Client) GenerateInsights(ctx context.Context, domain models.Domain, entityID string, predictions []models.PredictionPoint) ([]string, error) {
	if !c.Enabled() {
		return nil, nil
	}
	if len(predictions) == 0 {
		return nil, nil
	}

	var insights []string
	err := c.breaker.execute(ctx, func(ctx context.Context) error {
		parsed, reqErr := c.requestInsights(ctx, domain, entityID, predictions)
		if reqErr != nil {
			return reqErr
		}
		insights = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return insights, nil
}

func (c *Client) requestInsights(ctx context.Context, domain models.Domain, entityID string, predictions []models.PredictionPoint) ([]string, error) {
	token, err := c.userToken(ctx)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(domain, entityID, predictions)
	payload := completionRequest{
		SessionUUID:     "forecast-" + uuid.New().String(),
		CompletionIndex: 0,
	}
	payload.GPTCompletionPayload.Messages = []completionMessage{
		{Role: "user", Content: prompt},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, utils.NewInsightServiceError("failed to encode completion request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL+"/gpt_completion", bytes.NewReader(body))
	if err != nil {
		return nil, utils.NewInsightServiceError("failed to create completion request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, utils.NewInsightServiceError("completion request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.NewInsightServiceError("failed to read completion response: %v", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// Token expired server-side; drop the cached one so the next
		// attempt re-authenticates.
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return nil, utils.NewInsightServiceError("completion request unauthorized")
	}
	if resp.StatusCode >= 400 {
		return nil, utils.NewInsightServiceError("completion request returned status %d", resp.StatusCode)
	}

	var parsed completionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, utils.NewInsightServiceError("failed to decode completion response: %v", err)
	}
	if len(parsed.Completion.Choices) == 0 {
		return nil, utils.NewInsightServiceError("completion response contained no choices")
	}

	insights := parseInsightLines(parsed.Completion.Choices[0].Message.Content)
	if len(insights) == 0 {
		return nil, utils.NewInsightServiceError("completion response contained no usable insights")
	}

	c.logger.WithFields(logrus.Fields{
		"domain":   domain,
		"insights": len(insights),
	}).Debug("Received augmented insights")
	return insights, nil
}

// userToken returns a cached service token, authenticating on first use.
func (c *Client) userToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	url := fmt.Sprintf("%s/user_token/%s/%s", c.authURL, c.customerID, c.userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", utils.NewInsightServiceError("failed to create auth request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", utils.NewInsightServiceError("auth request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", utils.NewInsightServiceError("failed to read auth response: %v", err)
	}
	if resp.StatusCode >= 400 {
		return "", utils.NewInsightServiceError("auth request returned status %d", resp.StatusCode)
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", utils.NewInsightServiceError("failed to decode auth response: %v", err)
	}
	if parsed.Token == "" {
		return "", utils.NewInsightServiceError("auth response contained no token")
	}

	c.token = parsed.Token
	return c.token, nil
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	GPTCompletionPayload struct {
		Messages []completionMessage `json:"messages"`
	} `json:"gpt_completion_payload"`
	SessionUUID     string `json:"session_uuid"`
	CompletionIndex int    `json:"completion_index"`
}

type completionResponse struct {
	Completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"completion"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// buildPrompt summarizes the forecast into a short analysis request.
func buildPrompt(domain models.Domain, entityID string, predictions []models.PredictionPoint) string {
	first := predictions[0].PredictedValue
	last := predictions[len(predictions)-1].PredictedValue
	var sum, minVal, maxVal float64
	minVal = first
	maxVal = first
	for _, p := range predictions {
		sum += p.PredictedValue
		if p.PredictedValue < minVal {
			minVal = p.PredictedValue
		}
		if p.PredictedValue > maxVal {
			maxVal = p.PredictedValue
		}
	}
	avg := sum / float64(len(predictions))

	trend := "stable"
	if first > 0 {
		change := (last - first) / first * 100
		if change > 5 {
			trend = fmt.Sprintf("increasing by %.1f%%", change)
		} else if change < -5 {
			trend = fmt.Sprintf("decreasing by %.1f%%", -change)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a business analyst. Analyze this %s forecast", domain)
	if entityID != "" {
		fmt.Fprintf(&b, " for %q", entityID)
	}
	fmt.Fprintf(&b, " covering the next %d days.\n\n", len(predictions))
	fmt.Fprintf(&b, "Average predicted value: %.2f\n", avg)
	fmt.Fprintf(&b, "Range: %.2f to %.2f\n", minVal, maxVal)
	fmt.Fprintf(&b, "Trend: %s\n\n", trend)
	b.WriteString("Provide 3-5 concise, actionable business insights. Write one insight per line with no preamble.")
	return b.String()
}

// parseInsightLines splits completion text into individual insights,
// stripping list markers and discarding headers and fragments.
func parseInsightLines(content string) []string {
	var insights []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = stripListMarker(line)
		if len(line) < 20 || strings.HasSuffix(line, ":") {
			continue
		}
		insights = append(insights, line)
		if len(insights) >= maxAugmentedInsights {
			break
		}
	}
	return insights
}

func stripListMarker(line string) string {
	for _, prefix := range []string{"- ", "• ", "* "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	// Numbered lists like "1. " or "12) ".
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}
