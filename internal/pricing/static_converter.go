package pricing

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/stepgate/stepgate/pkg/api"
)

// StaticConverter converts with a fixed rate table. Useful for tests and for
// deployments that ship rates out of band.
type StaticConverter struct {
	mu    sync.RWMutex
	rates map[string]float64
}

var _ api.Converter = (*StaticConverter)(nil)

// NewStaticConverter creates a StaticConverter. Keys are "FROM/TO" pairs,
// e.g. "USD/EUR".
func NewStaticConverter(rates map[string]float64) *StaticConverter {
	copied := make(map[string]float64, len(rates))
	for k, v := range rates {
		copied[k] = v
	}
	return &StaticConverter{rates: copied}
}

// SetRate installs or replaces the rate for a pair.
func (c *StaticConverter) SetRate(from, to string, rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[from+"/"+to] = rate
}

func (c *StaticConverter) CachedRate(from, to string) (float64, bool) {
	if from == to {
		return 1, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	rate, ok := c.rates[from+"/"+to]
	return rate, ok
}

func (c *StaticConverter) Convert(ctx context.Context, amountMinor int64, from, to string) (int64, error) {
	rate, ok := c.CachedRate(from, to)
	if !ok {
		return 0, fmt.Errorf("no rate for %s/%s", from, to)
	}
	return int64(math.Round(float64(amountMinor) * rate)), nil
}
