// Package geo resolves free-text locations to coordinates.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

var ErrNoResult = errors.New("geo: location not found")

type Geocoder interface {
	Geocode(ctx context.Context, query string) (lat, lon float64, err error)
}

// Disabled never finds anything.
type Disabled struct{}

func (Disabled) Geocode(ctx context.Context, query string) (float64, float64, error) {
	return 0, 0, ErrNoResult
}

const userAgent = "crowdsourcing-geocoder/1.0"

// Nominatim queries an OpenStreetMap Nominatim compatible search endpoint.
type Nominatim struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewNominatim builds a client. perSecond caps the request rate; public
// Nominatim servers allow one request per second.
func NewNominatim(endpoint string, timeout time.Duration, perSecond float64) *Nominatim {
	return &Nominatim{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (n *Nominatim) Geocode(ctx context.Context, query string) (lat, lon float64, err error) {
	err = n.limiter.Wait(ctx)
	if err != nil {
		return
	}

	u, err := url.Parse(n.endpoint)
	if err != nil {
		return
	}
	params := u.Query()
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return
	}
	req.Header.Set("user-agent", userAgent)
	req.Header.Set("accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("geo: unexpected status %d", resp.StatusCode)
		return
	}

	var places []place
	err = json.NewDecoder(resp.Body).Decode(&places)
	if err != nil {
		return
	}
	if len(places) == 0 {
		err = ErrNoResult
		return
	}

	lat, err = strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return
	}
	lon, err = strconv.ParseFloat(places[0].Lon, 64)
	return
}
