package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/stepgate/stepgate/pkg/api"
)

// HTTPConverter fetches conversion rates from an exchange-rate endpoint.
//
// Every successful fetch caches the observed rate, so CachedRate serves the
// synchronous estimate path without network I/O. Requests are rate limited
// to stay inside typical free-tier quotas.
type HTTPConverter struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter

	mu    sync.RWMutex
	rates map[string]float64
}

var _ api.Converter = (*HTTPConverter)(nil)

// NewHTTPConverter creates an HTTPConverter against the given endpoint. The
// endpoint receives GET requests with from, to and amount query parameters
// and must answer with JSON {"rate": <float>, "convertedAmount": <int>}.
func NewHTTPConverter(endpoint string, client *http.Client) *HTTPConverter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPConverter{
		endpoint: endpoint,
		client:   client,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 5),
		rates:    make(map[string]float64),
	}
}

func (c *HTTPConverter) CachedRate(from, to string) (float64, bool) {
	if from == to {
		return 1, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rates[from+"/"+to]
	return r, ok
}

type conversionResponse struct {
	Rate            float64 `json:"rate"`
	ConvertedAmount int64   `json:"convertedAmount"`
}

func (c *HTTPConverter) Convert(ctx context.Context, amountMinor int64, from, to string) (int64, error) {
	if from == to {
		return amountMinor, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("conversion rate limit: %w", err)
	}

	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	q.Set("amount", fmt.Sprintf("%d", amountMinor))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("conversion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("conversion request: unexpected status %d", resp.StatusCode)
	}

	var body conversionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("conversion response: %w", err)
	}
	if body.Rate <= 0 {
		return 0, fmt.Errorf("conversion response: invalid rate %v", body.Rate)
	}

	c.mu.Lock()
	c.rates[from+"/"+to] = body.Rate
	c.mu.Unlock()

	if body.ConvertedAmount != 0 {
		return body.ConvertedAmount, nil
	}
	return int64(math.Round(float64(amountMinor) * body.Rate)), nil
}
