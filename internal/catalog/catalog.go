// Package catalog provides catalog-service implementations and price
// aggregation over the read-only catalog contract.
package catalog

import (
	"context"
	"sync"

	"github.com/stepgate/stepgate/pkg/api"
)

// StaticService is a CatalogService backed by fixed slices. It is used in
// tests and for catalogs loaded once at startup.
type StaticService struct {
	mu      sync.RWMutex
	items   []api.Item
	options []api.Option
}

// Ensure StaticService implements api.CatalogService.
var _ api.CatalogService = (*StaticService)(nil)

// NewStaticService creates a StaticService over the given entries.
func NewStaticService(items []api.Item, options []api.Option) *StaticService {
	return &StaticService{
		items:   append([]api.Item(nil), items...),
		options: append([]api.Option(nil), options...),
	}
}

func (s *StaticService) Items(ctx context.Context) ([]api.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Item(nil), s.items...), nil
}

func (s *StaticService) Options(ctx context.Context) ([]api.Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Option(nil), s.options...), nil
}

// Replace swaps the catalog contents, for catalogs refreshed in background.
func (s *StaticService) Replace(items []api.Item, options []api.Option) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]api.Item(nil), items...)
	s.options = append([]api.Option(nil), options...)
}

// Total computes the total price in minor units for the given state: the
// base price of every selected item plus the additional price of every
// chosen option on its documents.
func Total(ctx context.Context, svc api.CatalogService, fs api.FormState) (int64, error) {
	items, err := svc.Items(ctx)
	if err != nil {
		return 0, err
	}
	options, err := svc.Options(ctx)
	if err != nil {
		return 0, err
	}

	prices := make(map[string]int64, len(items))
	for _, it := range items {
		prices[it.ID] = it.BasePriceMinor
	}
	optionPrices := make(map[string]int64, len(options))
	for _, op := range options {
		optionPrices[op.ID] = op.AdditionalPriceMinor
	}

	var total int64
	for _, id := range fs.Selection {
		total += prices[id]
		for _, doc := range fs.Documents[id] {
			for _, optID := range doc.ChosenOptionIDs {
				total += optionPrices[optID]
			}
		}
	}
	return total, nil
}
