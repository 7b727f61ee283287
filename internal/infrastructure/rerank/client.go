package rerank

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

// Client calls the external re-ranking provider with a source product and
// its shortlisted candidates. The provider answers with a single verdict;
// any transport failure is surfaced as an error so the caller can fall back
// to weighted ranking.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
}

// NewClient creates a re-ranking client. ratePerHour bounds outbound
// requests; zero applies the provider default of 500/hour.
func NewClient(apiKey, baseURL string, ratePerHour int) *Client {
	if ratePerHour <= 0 {
		ratePerHour = 500
	}
	limiter := rate.NewLimiter(rate.Limit(float64(ratePerHour)/3600), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: limiter,
	}
}

type rerankProduct struct {
	Name     string                 `json:"name"`
	Brand    string                 `json:"brand,omitempty"`
	Category string                 `json:"category,omitempty"`
	Price    float64                `json:"price"`
	Specs    map[string]domain.Spec `json:"specs,omitempty"`
}

type rerankCandidate struct {
	Index   int           `json:"index"`
	Score   float64       `json:"score"`
	Product rerankProduct `json:"product"`
}

type rerankRequest struct {
	Source     rerankProduct     `json:"source"`
	Candidates []rerankCandidate `json:"candidates"`
}

type rerankResponse struct {
	MatchIndex *int    `json:"match_index"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// ReRank submits the shortlist and returns the provider's verdict. A nil
// MatchIndex in the verdict is the provider's explicit "none of these"
// answer, not an error.
func (c *Client) ReRank(ctx context.Context, source domain.NormalizedProduct, shortlist []domain.RankedCandidate) (*domain.ReRankVerdict, error) {
	if len(shortlist) == 0 {
		return nil, fmt.Errorf("%w: empty shortlist", domain.ErrInvalidRequest)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	payload, err := json.Marshal(buildRequest(source, shortlist))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1/rerank", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "PriceMatch/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReRankAPIFailure, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("[RERANK] API error - Status: %d, Body: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: status %d", domain.ErrReRankAPIFailure, resp.StatusCode)
	}

	var rerankResp rerankResponse
	if err := json.Unmarshal(body, &rerankResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if rerankResp.MatchIndex != nil && (*rerankResp.MatchIndex < 0 || *rerankResp.MatchIndex >= len(shortlist)) {
		return nil, fmt.Errorf("%w: index %d of %d candidates", domain.ErrInvalidVerdict, *rerankResp.MatchIndex, len(shortlist))
	}

	return &domain.ReRankVerdict{
		MatchIndex: rerankResp.MatchIndex,
		Confidence: rerankResp.Confidence,
		Reason:     rerankResp.Reason,
	}, nil
}

func buildRequest(source domain.NormalizedProduct, shortlist []domain.RankedCandidate) rerankRequest {
	req := rerankRequest{
		Source:     toRerankProduct(source),
		Candidates: make([]rerankCandidate, len(shortlist)),
	}
	for i, c := range shortlist {
		req.Candidates[i] = rerankCandidate{
			Index:   c.Index,
			Score:   c.Score,
			Product: toRerankProduct(c.Product),
		}
	}
	return req
}

func toRerankProduct(p domain.NormalizedProduct) rerankProduct {
	return rerankProduct{
		Name:     p.Name,
		Brand:    p.Brand,
		Category: p.Category,
		Price:    p.Product.Price,
		Specs:    p.Specs,
	}
}
