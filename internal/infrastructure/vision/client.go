package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pricematch/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Client calls the external visual-similarity provider. A failed comparison
// is reported as an error; callers treat it as "image attribute absent",
// never as a zero score.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
}

// NewClient creates a visual-similarity client. ratePerHour bounds outbound
// requests; zero applies the provider default of 1000/hour.
func NewClient(apiKey, baseURL string, ratePerHour int) *Client {
	if ratePerHour <= 0 {
		ratePerHour = 1000
	}
	limiter := rate.NewLimiter(rate.Limit(float64(ratePerHour)/3600), 10)

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: limiter,
	}
}

// maxAttempts bounds retries for one comparison.
const maxAttempts = 3

type compareRequest struct {
	ImageA string `json:"image_a"`
	ImageB string `json:"image_b"`
}

type compareResponse struct {
	Score float64 `json:"score"`
}

// Compare returns a pairwise image similarity in [0,100].
func (c *Client) Compare(ctx context.Context, refA, refB string) (float64, error) {
	if refA == "" || refB == "" {
		return 0, fmt.Errorf("%w: empty image reference", domain.ErrInvalidRequest)
	}

	payload, err := json.Marshal(compareRequest{ImageA: refA, ImageB: refB})
	if err != nil {
		return 0, fmt.Errorf("failed to encode request: %w", err)
	}
	reqURL := fmt.Sprintf("%s/v1/similarity", c.baseURL)

	// Retry up to maxAttempts times for transient failures. No sleep after
	// the final attempt; the caller gets the error immediately.
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL, payload)
		if err != nil {
			log.Printf("[VISION] Request error (attempt %d): %v", attempt, err)
			lastErr = err
			if attempt < maxAttempts {
				time.Sleep(exponentialBackoff(attempt))
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			log.Printf("[VISION] API error (attempt %d) - Status: %d, Body: %s", attempt, resp.StatusCode, string(body))
			lastErr = fmt.Errorf("%w: status %d", domain.ErrVisionAPIFailure, resp.StatusCode)
			if attempt < maxAttempts {
				time.Sleep(exponentialBackoff(attempt))
			}
			continue
		}

		var compareResp compareResponse
		if err := json.Unmarshal(body, &compareResp); err != nil {
			return 0, fmt.Errorf("failed to decode response: %w", err)
		}

		score := compareResp.Score
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		return score, nil
	}

	log.Printf("[VISION] All retries failed for pair %s / %s", refA, refB)
	return 0, lastErr
}

// doRequest executes an HTTP POST request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "PriceMatch/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVisionAPIFailure, err)
	}

	return resp, nil
}

// exponentialBackoff doubles the wait per attempt: 500ms, 1s, 2s.
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500<<(attempt-1)) * time.Millisecond
}
