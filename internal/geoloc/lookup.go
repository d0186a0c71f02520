// Package geoloc resolves free-text addresses and coordinates to structured
// address and time-zone data. Lookups are best-effort: the wizard treats
// every failure here as "fill it in by hand".
package geoloc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/stepgate/stepgate/pkg/api"
)

// ErrNoMatch is returned when the service answers but finds nothing.
var ErrNoMatch = errors.New("no address match")

// DefaultTimeout bounds a single lookup. Address auto-fill runs on the
// contact step's critical path, so slow answers are worse than none.
const DefaultTimeout = 3 * time.Second

// HTTPLookup is an AddressLookup backed by a geocoding HTTP endpoint.
//
// The endpoint receives GET requests with either a q parameter (free text)
// or lat/lon parameters, and answers with a JSON array of candidates. The
// first candidate wins.
type HTTPLookup struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

var _ api.AddressLookup = (*HTTPLookup)(nil)

// NewHTTPLookup creates an HTTPLookup. A nil client gets a default with
// DefaultTimeout.
func NewHTTPLookup(endpoint string, client *http.Client) *HTTPLookup {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPLookup{endpoint: endpoint, client: client, timeout: DefaultTimeout}
}

type candidate struct {
	FormattedAddress string  `json:"formattedAddress"`
	City             string  `json:"city"`
	PostalCode       string  `json:"postalCode"`
	Country          string  `json:"country"`
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	TimeZoneID       string  `json:"timeZoneId"`
}

func (l *HTTPLookup) Resolve(ctx context.Context, q api.AddressQuery) (*api.AddressResult, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	params := url.Values{}
	if q.HasCoords {
		params.Set("lat", strconv.FormatFloat(q.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(q.Long, 'f', -1, 64))
	} else {
		if q.FreeText == "" {
			return nil, ErrNoMatch
		}
		params.Set("q", q.FreeText)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("address lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("address lookup: unexpected status %d", resp.StatusCode)
	}

	var candidates []candidate
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return nil, fmt.Errorf("address lookup: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoMatch
	}

	c := candidates[0]
	return &api.AddressResult{
		FormattedAddress: c.FormattedAddress,
		City:             c.City,
		PostalCode:       c.PostalCode,
		Country:          c.Country,
		Lat:              c.Lat,
		Long:             c.Lon,
		TimeZoneID:       c.TimeZoneID,
	}, nil
}
