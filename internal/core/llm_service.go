package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"afaq.com/stylist-gateway/internal/store"
)

var (
	// ErrEmptyResponse means the backend answered without usable text.
	ErrEmptyResponse = errors.New("model returned no usable content")
	// ErrBlocked means the backend refused the prompt or its reply.
	ErrBlocked = errors.New("model response was blocked")
	// ErrTransport wraps failures reaching the backend at all.
	ErrTransport = errors.New("model backend unreachable")
)

// Image is an attached picture forwarded to a multimodal backend.
type Image struct {
	Format string // png, jpeg or webp
	Data   []byte
}

// GenerateRequest is one model call. PriorTurns is only read by session adapters;
// stateless adapters send Prompt.String() with the transcript already inlined.
type GenerateRequest struct {
	Prompt     Prompt
	Image      *Image
	PriorTurns []store.Turn
}

// Adapter is a generative model backend.
type Adapter interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	// Stateful reports whether prior turns travel as session history instead of prompt text.
	Stateful() bool
	Close() error
}

// GenerationSettings are the sampling knobs shared by every backend.
type GenerationSettings struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// GeminiAdapter calls Google's Gemini through the genai SDK.
type GeminiAdapter struct {
	client   *genai.Client
	settings GenerationSettings
	session  bool
}

func NewGeminiAdapter(ctx context.Context, apiKey string, settings GenerationSettings, session bool) (*GeminiAdapter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiAdapter{client: client, settings: settings, session: session}, nil
}

func (a *GeminiAdapter) Stateful() bool { return a.session }

func (a *GeminiAdapter) Close() error {
	if a.client == nil {
		return nil
	}
	if err := a.client.Close(); err != nil {
		return fmt.Errorf("error closing GenAI client: %w", err)
	}
	log.Println("GenAI client closed.")
	return nil
}

// permissiveSafety disables blocking for every adjustable harm category.
var permissiveSafety = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
}

func (a *GeminiAdapter) model() *genai.GenerativeModel {
	model := a.client.GenerativeModel(a.settings.Model)
	model.SetTemperature(float32(a.settings.Temperature))
	model.SetMaxOutputTokens(int32(a.settings.MaxTokens))
	model.SafetySettings = permissiveSafety
	return model
}

func (a *GeminiAdapter) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	model := a.model()

	var (
		resp *genai.GenerateContentResponse
		err  error
	)
	if a.session {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.Prompt.Instructions)},
		}
		chatSession := model.StartChat()
		chatSession.History = geminiHistory(req.PriorTurns)
		resp, err = chatSession.SendMessage(ctx, geminiParts(req.Prompt.Turn, req.Image)...)
	} else {
		resp, err = model.GenerateContent(ctx, geminiParts(req.Prompt.String(), req.Image)...)
	}
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", fmt.Errorf("%w: %v", ErrBlocked, blocked)
		}
		return "", fmt.Errorf("%w: gemini request failed: %v", ErrTransport, err)
	}
	return geminiText(resp)
}

func geminiParts(text string, img *Image) []genai.Part {
	parts := []genai.Part{genai.Text(text)}
	if img != nil {
		parts = append(parts, genai.ImageData(img.Format, img.Data))
	}
	return parts
}

// geminiHistory maps stored turns onto the SDK's user/model roles. Gemini
// requires history to open with a user turn, so leading replies are dropped.
func geminiHistory(turns []store.Turn) []*genai.Content {
	for len(turns) > 0 && turns[0].Role == store.RoleAssistant {
		turns = turns[1:]
	}
	history := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == store.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Text)},
		})
	}
	return history
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("%w: prompt feedback %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}

	reply := strings.TrimSpace(responseText.String())
	if reply == "" {
		return "", ErrEmptyResponse
	}
	return reply, nil
}
