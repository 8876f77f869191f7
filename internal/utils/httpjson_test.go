package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetJSON_Decodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept header = %q", r.Header.Get("Accept"))
		}
		fmt.Fprint(w, `{"city":"Cairo"}`)
	}))
	defer server.Close()

	var out struct {
		City string `json:"city"`
	}
	if err := GetJSON(context.Background(), server.Client(), server.URL, &out); err != nil {
		t.Fatalf("GetJSON error: %v", err)
	}
	if out.City != "Cairo" {
		t.Errorf("city = %q, want Cairo", out.City)
	}
}

func TestGetJSON_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "slow down")
	}))
	defer server.Close()

	var out map[string]any
	err := GetJSON(context.Background(), server.Client(), server.URL, &out)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusTooManyRequests || statusErr.Body != "slow down" {
		t.Errorf("unexpected status error: %+v", statusErr)
	}
}

func TestGetJSON_Malformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"city":`)
	}))
	defer server.Close()

	var out map[string]any
	if err := GetJSON(context.Background(), server.Client(), server.URL, &out); err == nil {
		t.Fatal("expected decode error")
	}
}
