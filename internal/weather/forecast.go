// Package weather fetches daily forecasts and turns them into outfit hints.
package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"afaq.com/stylist-gateway/internal/metrics"
	"afaq.com/stylist-gateway/internal/utils"
)

// MaxHorizon is the longest forecast the provider serves, today included.
const MaxHorizon = 14

// ErrMalformed means the provider answered with a payload we cannot use.
var ErrMalformed = errors.New("malformed forecast payload")

const dateLayout = "2006-01-02"

// DailyReading is one raw day as reported by a provider.
type DailyReading struct {
	Date          string
	TempMax       *float64
	TempMin       *float64
	Precipitation *float64
}

// ForecastDay is the reduced daily summary handed to the prompt.
type ForecastDay struct {
	Date          time.Time `json:"date"`
	MeanTemp      float64   `json:"mean_temp"`
	Precipitation float64   `json:"precipitation"`
	Outfit        Outfit    `json:"outfit_hint"`
}

// Provider returns up to days daily readings for a coordinate.
type Provider interface {
	Name() string
	Forecast(ctx context.Context, lat, lon float64, days int) ([]DailyReading, error)
}

type Forecaster struct {
	providers []Provider
	days      int
	timeout   time.Duration
}

// NewForecaster returns a Forecaster asking for days (clamped to MaxHorizon)
// from providers in order.
func NewForecaster(days int, timeout time.Duration, providers ...Provider) *Forecaster {
	if days <= 0 || days > MaxHorizon {
		days = MaxHorizon
	}
	return &Forecaster{providers: providers, days: days, timeout: timeout}
}

// NewDefaultForecaster uses Open-Meteo.
func NewDefaultForecaster(days int, timeout time.Duration) *Forecaster {
	return NewForecaster(days, timeout, &OpenMeteoProvider{
		BaseURL: "https://api.open-meteo.com",
		Client:  &http.Client{Timeout: timeout},
	})
}

// Forecast returns the daily summaries for (lat, lon), day 0 being today in the
// location's time zone. A failed or unusable forecast yields false.
func (f *Forecaster) Forecast(ctx context.Context, lat, lon float64) ([]ForecastDay, bool) {
	attempts := make([]utils.Attempt[[]ForecastDay], 0, len(f.providers))
	for _, p := range f.providers {
		p := p
		attempts = append(attempts, utils.Attempt[[]ForecastDay]{
			Name: p.Name(),
			Run: func(ctx context.Context) ([]ForecastDay, error) {
				readings, err := p.Forecast(ctx, lat, lon, f.days)
				if err == nil {
					var days []ForecastDay
					days, err = Summarize(readings, f.days)
					if err == nil {
						metrics.UpstreamCalls.WithLabelValues("weather", p.Name(), metrics.OutcomeOK).Inc()
						return days, nil
					}
				}
				metrics.UpstreamCalls.WithLabelValues("weather", p.Name(), metrics.OutcomeFailed).Inc()
				return nil, err
			},
		})
	}

	days, _, err := utils.FirstSuccess(ctx, f.timeout, attempts...)
	if err != nil {
		log.Printf("Weather unavailable for (%.4f, %.4f): %v", lat, lon, err)
		return nil, false
	}
	return days, true
}

// Summarize reduces raw readings to at most limit days, ordered by date.
// The sequence stops at the first day without both temperatures so that it
// stays contiguous from today.
func Summarize(readings []DailyReading, limit int) ([]ForecastDay, error) {
	if limit <= 0 || limit > MaxHorizon {
		limit = MaxHorizon
	}

	days := make([]ForecastDay, 0, len(readings))
	for _, r := range readings {
		date, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: bad date %q", ErrMalformed, r.Date)
		}
		if r.TempMax == nil || r.TempMin == nil {
			break
		}
		precip := 0.0
		if r.Precipitation != nil {
			precip = *r.Precipitation
		}
		mean := roundTo(((*r.TempMax)+(*r.TempMin))/2, 1)
		days = append(days, ForecastDay{
			Date:          date,
			MeanTemp:      mean,
			Precipitation: precip,
			Outfit:        Advise(mean, precip),
		})
	}

	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	if len(days) > limit {
		days = days[:limit]
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: no usable days", ErrMalformed)
	}
	return days, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// OpenMeteoProvider queries the Open-Meteo forecast API (no key required).
type OpenMeteoProvider struct {
	BaseURL string
	Client  *http.Client
}

type openMeteoResponse struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
	Daily  *struct {
		Time             []string   `json:"time"`
		TemperatureMax   []*float64 `json:"temperature_2m_max"`
		TemperatureMin   []*float64 `json:"temperature_2m_min"`
		PrecipitationSum []*float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

func (p *OpenMeteoProvider) Name() string { return "open-meteo" }

func (p *OpenMeteoProvider) Forecast(ctx context.Context, lat, lon float64, days int) ([]DailyReading, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum")
	q.Set("timezone", "auto")
	q.Set("forecast_days", strconv.Itoa(days))
	endpoint := strings.TrimRight(p.BaseURL, "/") + "/v1/forecast?" + q.Encode()

	var body openMeteoResponse
	if err := utils.GetJSON(ctx, p.Client, endpoint, &body); err != nil {
		return nil, err
	}
	if body.Error {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, body.Reason)
	}
	d := body.Daily
	if d == nil || len(d.Time) == 0 {
		return nil, fmt.Errorf("%w: missing daily block", ErrMalformed)
	}
	if len(d.TemperatureMax) != len(d.Time) || len(d.TemperatureMin) != len(d.Time) {
		return nil, fmt.Errorf("%w: daily series lengths differ", ErrMalformed)
	}

	readings := make([]DailyReading, len(d.Time))
	for i, date := range d.Time {
		readings[i] = DailyReading{
			Date:    date,
			TempMax: d.TemperatureMax[i],
			TempMin: d.TemperatureMin[i],
		}
		if i < len(d.PrecipitationSum) {
			readings[i].Precipitation = d.PrecipitationSum[i]
		}
	}
	return readings, nil
}
