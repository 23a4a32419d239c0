package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMissingText reports a response body without the adapter's text field.
var ErrMissingText = errors.New("generated text field missing")

// Adapter captures everything that differs between backend families.
type Adapter interface {
	Name() string
	// GeneratePath is appended to a base URL that carries no path of its own.
	GeneratePath() string
	HealthPath() string
	DefaultBody(model, prompt string) map[string]any
	ExtractText(body []byte) (string, error)
}

var adapters = map[string]Adapter{
	"ollama":   ollamaAdapter{},
	"koboldai": koboldAdapter{},
	"openai":   openAIAdapter{},
}

var adapterAliases = map[string]string{
	"kobold":    "koboldai",
	"koboldcpp": "koboldai",
	"chat":      "openai",
}

// LookupAdapter returns the adapter registered for kind.
func LookupAdapter(kind string) (Adapter, error) {
	key := strings.ToLower(strings.TrimSpace(kind))
	if alias, ok := adapterAliases[key]; ok {
		key = alias
	}
	adapter, ok := adapters[key]
	if !ok {
		return nil, fmt.Errorf("unknown backend kind %q (supported: %s)", kind, strings.Join(Kinds(), ", "))
	}
	return adapter, nil
}

// Kinds lists the canonical adapter names in sorted order.
func Kinds() []string {
	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExtractText pulls generated text out of a raw response body for the named backend kind.
func ExtractText(kind string, body []byte) (string, error) {
	adapter, err := LookupAdapter(kind)
	if err != nil {
		return "", err
	}
	return adapter.ExtractText(body)
}

type ollamaAdapter struct{}

func (ollamaAdapter) Name() string         { return "ollama" }
func (ollamaAdapter) GeneratePath() string { return "/api/generate" }
func (ollamaAdapter) HealthPath() string   { return "/api/tags" }

func (ollamaAdapter) DefaultBody(model, prompt string) map[string]any {
	return map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	}
}

func (ollamaAdapter) ExtractText(body []byte) (string, error) {
	var payload struct {
		Response *string `json:"response"`
		Error    string  `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if msg := strings.TrimSpace(payload.Error); msg != "" {
		return "", fmt.Errorf("ollama error: %s", msg)
	}
	if payload.Response == nil {
		return "", fmt.Errorf("ollama response: %w", ErrMissingText)
	}
	return *payload.Response, nil
}

type koboldAdapter struct{}

func (koboldAdapter) Name() string         { return "koboldai" }
func (koboldAdapter) GeneratePath() string { return "/api/v1/generate" }
func (koboldAdapter) HealthPath() string   { return "/api/v1/model" }

func (koboldAdapter) DefaultBody(model, prompt string) map[string]any {
	body := map[string]any{
		"max_context_length": 512,
		"max_length":         100,
		"prompt":             strings.TrimSpace(prompt),
		"quiet":              false,
		"rep_pen":            1.1,
		"rep_pen_range":      256,
		"rep_pen_slope":      1,
		"temperature":        0.5,
	}
	if model != "" {
		body["model"] = model
	}
	return body
}

func (koboldAdapter) ExtractText(body []byte) (string, error) {
	var payload struct {
		Results []struct {
			Text *string `json:"text"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode koboldai response: %w", err)
	}
	var (
		builder strings.Builder
		found   bool
	)
	for _, result := range payload.Results {
		if result.Text == nil {
			continue
		}
		found = true
		builder.WriteString(*result.Text)
	}
	if !found {
		return "", fmt.Errorf("koboldai response: %w", ErrMissingText)
	}
	return builder.String(), nil
}

type openAIAdapter struct{}

func (openAIAdapter) Name() string         { return "openai" }
func (openAIAdapter) GeneratePath() string { return "/v1/chat/completions" }
func (openAIAdapter) HealthPath() string   { return "/v1/models" }

func (openAIAdapter) DefaultBody(model, prompt string) map[string]any {
	return map[string]any{
		"model": model,
		"messages": []any{
			map[string]any{"role": "user", "content": prompt},
		},
		"stream": false,
	}
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
		// Some providers return the streaming schema (delta) even when
		// stream=false, so tolerate it as a fallback.
		Delta chatCompletionMessage `json:"delta"`
		// Legacy completion-style responses.
		Text         *string `json:"text"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatCompletionMessage struct {
	Content *string `json:"content"`
	Refusal string  `json:"refusal"`
}

func (openAIAdapter) ExtractText(body []byte) (string, error) {
	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("decode chat completion: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("chat completion error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices: %w", ErrMissingText)
	}
	var refusal string
	for _, choice := range completion.Choices {
		for _, candidate := range []*string{choice.Message.Content, choice.Delta.Content, choice.Text} {
			if candidate != nil && strings.TrimSpace(*candidate) != "" {
				return *candidate, nil
			}
		}
		if refusal == "" {
			refusal = firstNonEmpty(choice.Message.Refusal, choice.Delta.Refusal)
		}
	}
	if refusal != "" {
		return "", fmt.Errorf("chat completion refused: %s", refusal)
	}
	for _, choice := range completion.Choices {
		if choice.Message.Content != nil {
			return *choice.Message.Content, nil
		}
	}
	return "", fmt.Errorf("chat completion: %w", ErrMissingText)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
