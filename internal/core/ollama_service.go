package core

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"afaq.com/stylist-gateway/internal/store"
)

// OllamaAdapter talks to a local Ollama server through /api/chat.
// Images are only understood by multimodal models such as llava.
type OllamaAdapter struct {
	BaseURL  string
	Client   *http.Client
	settings GenerationSettings
	session  bool
}

func NewOllamaAdapter(baseURL string, client *http.Client, settings GenerationSettings, session bool) *OllamaAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &OllamaAdapter{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Client:   client,
		settings: settings,
		session:  session,
	}
}

type ollamaChatReq struct {
	Model    string        `json:"model"`
	Messages []ollamaMsg   `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaMsg struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResp struct {
	Message ollamaMsg `json:"message"`
	Error   string    `json:"error,omitempty"`
}

func (a *OllamaAdapter) Stateful() bool { return a.session }

func (a *OllamaAdapter) Close() error { return nil }

func (a *OllamaAdapter) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	body, err := json.Marshal(ollamaChatReq{
		Model:    a.settings.Model,
		Messages: a.messages(req),
		Stream:   false,
		Options:  ollamaOptions{Temperature: a.settings.Temperature, NumPredict: a.settings.MaxTokens},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: calling ollama: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: ollama status %d: %s", ErrTransport, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded ollamaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding ollama response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("ollama: %s", decoded.Error)
	}
	reply := strings.TrimSpace(decoded.Message.Content)
	if reply == "" {
		return "", ErrEmptyResponse
	}
	return reply, nil
}

// messages lays out the chat. In session mode the instructions become the
// system message and prior turns are replayed before the current one.
func (a *OllamaAdapter) messages(req GenerateRequest) []ollamaMsg {
	current := ollamaMsg{Role: "user", Content: req.Prompt.String()}
	if req.Image != nil {
		current.Images = []string{base64.StdEncoding.EncodeToString(req.Image.Data)}
	}
	if !a.session {
		return []ollamaMsg{current}
	}

	out := make([]ollamaMsg, 0, len(req.PriorTurns)+2)
	out = append(out, ollamaMsg{Role: "system", Content: req.Prompt.Instructions})
	for _, t := range req.PriorTurns {
		role := "user"
		if t.Role == store.RoleAssistant {
			role = "assistant"
		}
		out = append(out, ollamaMsg{Role: role, Content: t.Text})
	}
	current.Content = req.Prompt.Turn
	return append(out, current)
}
