package core

import (
	"context"
	"errors"
	"log"
	"net/netip"
	"time"

	"afaq.com/stylist-gateway/internal/geo"
	"afaq.com/stylist-gateway/internal/metrics"
	"afaq.com/stylist-gateway/internal/store"
	"afaq.com/stylist-gateway/internal/weather"
)

// ApologyReply is returned in place of a reply whenever the model call fails.
const ApologyReply = "ثواني بس وأرجعلك…"

// ErrEmptyRequest rejects a turn with neither text nor image.
var ErrEmptyRequest = errors.New("message or image is required")

// LocationResolver finds where an address is; false means unknown.
type LocationResolver interface {
	Resolve(ctx context.Context, addr string) (geo.Location, bool)
}

// ForecastSource returns daily summaries for a coordinate; false means unavailable.
type ForecastSource interface {
	Forecast(ctx context.Context, lat, lon float64) ([]weather.ForecastDay, bool)
}

// ChatInput is one validated turn from a caller.
type ChatInput struct {
	Address string
	Message string
	Image   *Image
}

type ChatResult struct {
	Reply    string
	City     string
	HasImage bool
	// ModelFailed is set when Reply is the apology rather than model output.
	ModelFailed bool
}

type ChatOptions struct {
	PromptTurns    int
	RequestTimeout time.Duration
	ModelTimeout   time.Duration
	Debug          bool
	Backend        string // metrics label
}

type ChatService struct {
	locations LocationResolver
	forecasts ForecastSource
	composer  *Composer
	adapter   Adapter
	memory    store.Store
	opts      ChatOptions
}

func NewChatService(locations LocationResolver, forecasts ForecastSource, composer *Composer, adapter Adapter, memory store.Store, opts ChatOptions) *ChatService {
	if opts.Backend == "" {
		opts.Backend = "model"
	}
	return &ChatService{
		locations: locations,
		forecasts: forecasts,
		composer:  composer,
		adapter:   adapter,
		memory:    memory,
		opts:      opts,
	}
}

// Reply runs one turn: resolve context, compose, call the model and, only if
// the model answered, record the exchange. Missing location or weather is not
// an error; the prompt simply goes without it.
func (s *ChatService) Reply(ctx context.Context, in ChatInput) (*ChatResult, error) {
	if in.Message == "" && in.Image == nil {
		return nil, ErrEmptyRequest
	}
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	result := &ChatResult{HasImage: in.Image != nil}
	loc, days := s.resolveContext(ctx, in.Address)
	if loc != nil {
		result.City = loc.City
	}

	history, err := s.memory.Recent(ctx, in.Address, s.opts.PromptTurns)
	if err != nil {
		log.Printf("Error reading history for %s: %v. Proceeding without history.", in.Address, err)
		history = nil
	}

	input := PromptInput{
		Location: loc,
		Forecast: days,
		Message:  in.Message,
		HasImage: in.Image != nil,
	}
	if !s.adapter.Stateful() {
		input.History = history
	}
	prompt := s.composer.Compose(input)
	if s.opts.Debug {
		log.Printf("Composed prompt for %s: %d bytes, %d history turns, city=%q", in.Address, len(prompt.String()), len(history), result.City)
	}

	reply, err := s.generate(ctx, GenerateRequest{Prompt: prompt, Image: in.Image, PriorTurns: history})
	if err != nil {
		metrics.ModelCalls.WithLabelValues(s.opts.Backend, metrics.OutcomeFailed).Inc()
		log.Printf("Error generating model response for %s: %v", in.Address, err)
		result.Reply = ApologyReply
		result.ModelFailed = true
		return result, nil
	}
	metrics.ModelCalls.WithLabelValues(s.opts.Backend, metrics.OutcomeOK).Inc()
	result.Reply = reply

	userText := in.Message
	if userText == "" {
		userText = ImagePlaceholder
	}
	// The request deadline may already be spent; the exchange is still recorded.
	if err := s.memory.Append(context.WithoutCancel(ctx), in.Address,
		store.Turn{Role: store.RoleUser, Text: userText},
		store.Turn{Role: store.RoleAssistant, Text: reply},
	); err != nil {
		log.Printf("Failed to store exchange for %s: %v", in.Address, err)
	}
	return result, nil
}

func (s *ChatService) generate(ctx context.Context, req GenerateRequest) (string, error) {
	if s.opts.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ModelTimeout)
		defer cancel()
	}
	start := time.Now()
	defer func() {
		metrics.ModelLatency.WithLabelValues(s.opts.Backend).Observe(time.Since(start).Seconds())
	}()
	return s.adapter.Generate(ctx, req)
}

// resolveContext looks up location then forecast. Non-public addresses are
// never sent to the geolocation providers.
func (s *ChatService) resolveContext(ctx context.Context, addr string) (*geo.Location, []weather.ForecastDay) {
	ip, err := netip.ParseAddr(addr)
	if err != nil || !geo.IsPublic(ip) {
		log.Printf("Skipping location lookup for non-public address %s", addr)
		return nil, nil
	}

	loc, ok := s.locations.Resolve(ctx, addr)
	if !ok {
		return nil, nil
	}
	days, ok := s.forecasts.Forecast(ctx, loc.Lat, loc.Lon)
	if !ok {
		return &loc, nil
	}
	return &loc, days
}
