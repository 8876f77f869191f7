package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func openMeteoServer(t *testing.T, status int, body string, gotQuery *string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotQuery != nil {
			*gotQuery = r.URL.RawQuery
		}
		if r.URL.Path != "/v1/forecast" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestForecaster(server *httptest.Server, days int) *Forecaster {
	return NewForecaster(days, 2*time.Second, &OpenMeteoProvider{BaseURL: server.URL, Client: server.Client()})
}

func TestForecaster_ReducesDays(t *testing.T) {
	var query string
	server := openMeteoServer(t, http.StatusOK, `{
		"daily": {
			"time": ["2026-10-19", "2026-10-20", "2026-10-21"],
			"temperature_2m_max": [24.0, 18.4, 35.0],
			"temperature_2m_min": [15.0, 11.0, 31.0],
			"precipitation_sum": [0.0, 5.2, null]
		}
	}`, &query)

	days, ok := newTestForecaster(server, 14).Forecast(context.Background(), 30.0444, 31.2357)
	if !ok {
		t.Fatal("expected a forecast")
	}
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}

	want := []struct {
		date   string
		mean   float64
		precip float64
		outfit Outfit
	}{
		{"2026-10-19", 19.5, 0, OutfitMild},
		{"2026-10-20", 14.7, 5.2, OutfitRain},
		{"2026-10-21", 33, 0, OutfitHot},
	}
	for i, w := range want {
		d := days[i]
		if d.Date.Format("2006-01-02") != w.date || d.MeanTemp != w.mean || d.Precipitation != w.precip || d.Outfit != w.outfit {
			t.Errorf("day %d = %+v, want %+v", i, d, w)
		}
	}

	for _, part := range []string{"forecast_days=14", "timezone=auto", "precipitation_sum", "latitude=30.0444"} {
		if !strings.Contains(query, part) {
			t.Errorf("query %q missing %q", query, part)
		}
	}
}

func TestForecaster_BoundedToHorizon(t *testing.T) {
	var times, maxes, mins []string
	start := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 16; i++ {
		times = append(times, `"`+start.AddDate(0, 0, i).Format("2006-01-02")+`"`)
		maxes = append(maxes, "20")
		mins = append(mins, "10")
	}
	body := fmt.Sprintf(`{"daily":{"time":[%s],"temperature_2m_max":[%s],"temperature_2m_min":[%s]}}`,
		strings.Join(times, ","), strings.Join(maxes, ","), strings.Join(mins, ","))
	server := openMeteoServer(t, http.StatusOK, body, nil)

	days, ok := newTestForecaster(server, 99).Forecast(context.Background(), 1, 2)
	if !ok {
		t.Fatal("expected a forecast")
	}
	if len(days) != MaxHorizon {
		t.Errorf("expected %d days, got %d", MaxHorizon, len(days))
	}
	for i := 1; i < len(days); i++ {
		if !days[i-1].Date.Before(days[i].Date) {
			t.Fatalf("days not ascending at %d", i)
		}
	}
}

func TestForecaster_FailuresYieldAbsence(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"transport status", http.StatusInternalServerError, `oops`},
		{"not json", http.StatusOK, `<html>`},
		{"missing daily", http.StatusOK, `{}`},
		{"provider error", http.StatusBadRequest, `{"error":true,"reason":"Latitude must be in range"}`},
		{"length mismatch", http.StatusOK, `{"daily":{"time":["2026-10-19"],"temperature_2m_max":[],"temperature_2m_min":[1]}}`},
		{"today without temperatures", http.StatusOK, `{"daily":{"time":["2026-10-19"],"temperature_2m_max":[null],"temperature_2m_min":[null]}}`},
		{"bad date", http.StatusOK, `{"daily":{"time":["19/10/2026"],"temperature_2m_max":[1],"temperature_2m_min":[1]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := openMeteoServer(t, tt.status, tt.body, nil)
			if days, ok := newTestForecaster(server, 14).Forecast(context.Background(), 1, 2); ok {
				t.Errorf("expected absence, got %+v", days)
			}
		})
	}
}

func TestSummarize_StopsAtMissingDay(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	readings := []DailyReading{
		{Date: "2026-10-19", TempMax: f(20), TempMin: f(10)},
		{Date: "2026-10-20", TempMax: nil, TempMin: f(10)},
		{Date: "2026-10-21", TempMax: f(20), TempMin: f(10)},
	}
	days, err := Summarize(readings, 14)
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if len(days) != 1 {
		t.Errorf("expected 1 contiguous day, got %d", len(days))
	}

	if _, err := Summarize(nil, 14); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for empty readings, got %v", err)
	}
}
