package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/Paranoid-AF/saycmd"
	defaults "github.com/Paranoid-AF/saycmd/default"
	"github.com/Paranoid-AF/saycmd/logging"
)

// Generator asks an Ollama or OpenAI-compatible chat API for a JSON command.
type Generator struct {
	baseURL      string
	apiKey       string
	model        string
	apiType      string // "ollama" or "chat_completions"
	maxTokens    int
	temperature  float64
	systemPrompt string
	client       *http.Client
}

// NewGenerator creates a generator. An empty systemPrompt uses the built-in one.
func NewGenerator(baseURL, apiKey, model, apiType string, maxTokens int, temperature float64, timeout time.Duration, systemPrompt string) *Generator {
	if systemPrompt == "" {
		systemPrompt = BuildSystemPrompt("")
	}
	return &Generator{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		model:        model,
		apiType:      apiType,
		maxTokens:    maxTokens,
		temperature:  temperature,
		systemPrompt: systemPrompt,
		client:       &http.Client{Timeout: timeout},
	}
}

// NewGeneratorFromConfig creates a generator from config, honoring env
// overrides and a custom prompt file.
func NewGeneratorFromConfig(cfg *saycmd.Config) *Generator {
	return NewGenerator(
		saycmd.ResolveInferenceBaseURL(cfg),
		saycmd.ResolveInferenceAPIKey(cfg),
		saycmd.ResolveInferenceModel(cfg),
		cfg.Inference.APIType,
		cfg.Inference.MaxTokens,
		cfg.Inference.Temperature,
		cfg.InferenceTimeout(),
		BuildSystemPrompt(loadCustomPrompt()),
	)
}

// loadCustomPrompt loads a custom prompt template.
// Returns empty string if no custom prompt exists.
func loadCustomPrompt() string {
	promptPath := saycmd.PromptPath()
	data, err := os.ReadFile(promptPath)
	if err != nil {
		return ""
	}
	logger := logging.GetLogger("parse")
	logger.Info().Str("path", promptPath).Msg("loaded custom prompt")
	return string(data)
}

// PromptData holds the data passed to the prompt template.
type PromptData struct {
	Actions []string
}

var promptFuncs = template.FuncMap{
	"bullet": func(items []string) string {
		if len(items) == 0 {
			return ""
		}
		var sb strings.Builder
		for _, item := range items {
			sb.WriteString("- ")
			sb.WriteString(item)
			sb.WriteString("\n")
		}
		return strings.TrimSuffix(sb.String(), "\n")
	},
	"join": func(items []string, sep string) string {
		return strings.Join(items, sep)
	},
}

// BuildSystemPrompt renders the system prompt. A custom template that fails
// to parse or execute falls back to the built-in one.
func BuildSystemPrompt(custom string) string {
	logger := logging.GetLogger("parse")
	tmplSrc := custom
	if tmplSrc == "" {
		tmplSrc = defaults.DefaultPrompt
	}

	data := PromptData{}
	for _, a := range saycmd.Actions {
		data.Actions = append(data.Actions, string(a))
	}

	t, err := template.New("prompt").Funcs(promptFuncs).Parse(tmplSrc)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to parse prompt template, falling back to default")
		t, _ = template.New("prompt").Funcs(promptFuncs).Parse(defaults.DefaultPrompt)
	}

	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		logger.Warn().Err(err).Msg("failed to execute prompt template, falling back to default")
		t, _ = template.New("prompt").Funcs(promptFuncs).Parse(defaults.DefaultPrompt)
		buf.Reset()
		t.Execute(&buf, data)
	}

	return strings.TrimRight(buf.String(), " \t\n")
}

// ParseCommand asks the service to structure text. It never fails: any
// transport or decoding problem yields an empty command.
func (g *Generator) ParseCommand(ctx context.Context, text string) saycmd.Command {
	logger := logging.GetLogger("parse")

	content, err := g.Generate(ctx, g.systemPrompt, text)
	if err != nil {
		logger.Warn().Err(err).Str("api_type", g.apiType).Msg("inference request failed")
		return saycmd.Command{}
	}
	cmd, err := decodeCommand(content)
	if err != nil {
		logger.Warn().Err(err).Str("content", content).Msg("inference reply is not a command")
		return saycmd.Command{}
	}
	logger.Debug().Stringer("command", cmd).Msg("inference parsed command")
	return cmd
}

// Generate sends one system and one user message and returns the reply text.
func (g *Generator) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if g.apiType == "chat_completions" {
		return g.generateChatCompletions(ctx, systemPrompt, userMessage)
	}
	return g.generateOllama(ctx, systemPrompt, userMessage)
}

// decodeCommand reads the {action, value} object. Extra fields are ignored;
// a missing value is empty, a non-string one is an error.
func decodeCommand(content string) (saycmd.Command, error) {
	content = stripCodeFence(strings.TrimSpace(content))

	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return saycmd.Command{}, fmt.Errorf("invalid JSON: %w", err)
	}

	action, ok := raw["action"].(string)
	if !ok || strings.TrimSpace(action) == "" {
		return saycmd.Command{}, fmt.Errorf("missing or non-string action")
	}
	var value string
	if v, present := raw["value"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return saycmd.Command{}, fmt.Errorf("non-string value")
		}
		value = s
	}
	return saycmd.Command{
		Action: strings.TrimSpace(action),
		Value:  strings.TrimSpace(value),
	}, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// --- Ollama chat API ---

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Format   string        `json:"format"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

func (g *Generator) generateOllama(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	reqBody := ollamaRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		Format: "json",
		Stream: false,
		Options: ollamaOptions{
			NumPredict:  g.maxTokens,
			Temperature: g.temperature,
		},
	}

	body, err := g.post(ctx, "/api/chat", reqBody)
	if err != nil {
		return "", err
	}

	var result ollamaResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w (body: %s)", err, string(body))
	}
	if result.Error != "" {
		return "", fmt.Errorf("API error: %s", result.Error)
	}
	return result.Message.Content, nil
}

// --- Chat Completions API ---

type chatCompletionsRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionsResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

func (g *Generator) generateChatCompletions(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	reqBody := chatCompletionsRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens:      g.maxTokens,
		Temperature:    g.temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	body, err := g.post(ctx, "/chat/completions", reqBody)
	if err != nil {
		return "", err
	}

	var result chatCompletionsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w (body: %s)", err, string(body))
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return result.Choices[0].Message.Content, nil
}

func (g *Generator) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	g.setHeaders(httpReq)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// setHeaders sets common headers for API requests.
func (g *Generator) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
}
