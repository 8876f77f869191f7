package core

import (
	"context"
	"sync"

	"afaq.com/stylist-gateway/internal/geo"
	"afaq.com/stylist-gateway/internal/weather"
)

type fakeLocations struct {
	mu    sync.Mutex
	loc   geo.Location
	ok    bool
	calls []string
}

func (f *fakeLocations) Resolve(_ context.Context, addr string) (geo.Location, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, addr)
	return f.loc, f.ok
}

func (f *fakeLocations) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeForecasts struct {
	mu    sync.Mutex
	days  []weather.ForecastDay
	ok    bool
	calls int
}

func (f *fakeForecasts) Forecast(_ context.Context, _, _ float64) ([]weather.ForecastDay, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.days, f.ok
}

func (f *fakeForecasts) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingAdapter captures every request and answers with reply or err.
type recordingAdapter struct {
	mu       sync.Mutex
	reply    string
	err      error
	stateful bool
	requests []GenerateRequest
}

func (a *recordingAdapter) Generate(_ context.Context, req GenerateRequest) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	if a.err != nil {
		return "", a.err
	}
	if a.reply == "" {
		return req.Prompt.Turn, nil
	}
	return a.reply, nil
}

func (a *recordingAdapter) Stateful() bool { return a.stateful }

func (a *recordingAdapter) Close() error { return nil }

func (a *recordingAdapter) Requests() []GenerateRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]GenerateRequest(nil), a.requests...)
}
