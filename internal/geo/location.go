package geo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"afaq.com/stylist-gateway/internal/metrics"
	"afaq.com/stylist-gateway/internal/utils"
)

var (
	// ErrIncomplete means a provider answered without city, latitude or longitude.
	ErrIncomplete = errors.New("incomplete location record")
	// ErrProviderReported means a provider answered with an explicit error flag.
	ErrProviderReported = errors.New("provider reported an error")
)

// Location is the normalized answer of a geolocation provider.
type Location struct {
	City string  `json:"city"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Provider looks up the location of a network address.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, addr string) (Location, error)
}

// Resolver cascades over providers in fixed order.
type Resolver struct {
	providers []Provider
	timeout   time.Duration
}

// NewResolver returns a Resolver trying providers in the given order, each
// bounded by timeout.
func NewResolver(timeout time.Duration, providers ...Provider) *Resolver {
	return &Resolver{providers: providers, timeout: timeout}
}

// NewDefaultResolver wires ipapi.co first and ipwho.is second.
func NewDefaultResolver(timeout time.Duration) *Resolver {
	client := &http.Client{Timeout: timeout}
	return NewResolver(timeout,
		&IPAPIProvider{BaseURL: "https://ipapi.co", Client: client},
		&IPWhoProvider{BaseURL: "https://ipwho.is", Client: client},
	)
}

// Resolve returns the first complete location, or false when every provider failed.
func (r *Resolver) Resolve(ctx context.Context, addr string) (Location, bool) {
	attempts := make([]utils.Attempt[Location], 0, len(r.providers))
	for _, p := range r.providers {
		p := p
		attempts = append(attempts, utils.Attempt[Location]{
			Name: p.Name(),
			Run: func(ctx context.Context) (Location, error) {
				loc, err := p.Resolve(ctx, addr)
				if err != nil {
					metrics.UpstreamCalls.WithLabelValues("geo", p.Name(), metrics.OutcomeFailed).Inc()
					return Location{}, err
				}
				metrics.UpstreamCalls.WithLabelValues("geo", p.Name(), metrics.OutcomeOK).Inc()
				return loc, nil
			},
		})
	}

	loc, _, err := utils.FirstSuccess(ctx, r.timeout, attempts...)
	if err != nil {
		log.Printf("Location unavailable for %s: %v", addr, err)
		return Location{}, false
	}
	return loc, true
}

// complete validates the fields every provider must return.
func complete(city string, lat, lon *float64) (Location, error) {
	city = strings.TrimSpace(city)
	if city == "" || lat == nil || lon == nil {
		return Location{}, ErrIncomplete
	}
	return Location{City: city, Lat: *lat, Lon: *lon}, nil
}

// IPAPIProvider queries ipapi.co.
type IPAPIProvider struct {
	BaseURL string
	Client  *http.Client
}

type ipapiResponse struct {
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
	City      string   `json:"city"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (p *IPAPIProvider) Name() string { return "ipapi" }

func (p *IPAPIProvider) Resolve(ctx context.Context, addr string) (Location, error) {
	var body ipapiResponse
	endpoint := fmt.Sprintf("%s/%s/json/", strings.TrimRight(p.BaseURL, "/"), url.PathEscape(addr))
	if err := utils.GetJSON(ctx, p.Client, endpoint, &body); err != nil {
		return Location{}, err
	}
	if body.Error {
		return Location{}, fmt.Errorf("%w: %s", ErrProviderReported, body.Reason)
	}
	return complete(body.City, body.Latitude, body.Longitude)
}

// IPWhoProvider queries ipwho.is.
type IPWhoProvider struct {
	BaseURL string
	Client  *http.Client
}

type ipwhoResponse struct {
	Success   *bool    `json:"success"`
	Message   string   `json:"message"`
	City      string   `json:"city"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (p *IPWhoProvider) Name() string { return "ipwho" }

func (p *IPWhoProvider) Resolve(ctx context.Context, addr string) (Location, error) {
	var body ipwhoResponse
	endpoint := fmt.Sprintf("%s/%s", strings.TrimRight(p.BaseURL, "/"), url.PathEscape(addr))
	if err := utils.GetJSON(ctx, p.Client, endpoint, &body); err != nil {
		return Location{}, err
	}
	if body.Success != nil && !*body.Success {
		return Location{}, fmt.Errorf("%w: %s", ErrProviderReported, body.Message)
	}
	return complete(body.City, body.Latitude, body.Longitude)
}
