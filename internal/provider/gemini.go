package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/MJE43/red-agent-go/internal/gamestate"
	"github.com/MJE43/red-agent-go/internal/history"
)

const geminiSystemPrompt = `You are playing Pokemon Red. You receive the
current game state and recent history, and you answer with exactly one
JSON object of the form
{"action": "...", "reasoning": "...", "goal_update": {"tier": "none"}}.
The action must be one of: up, down, left, right, a, b, start, select,
wait. To change a goal, set goal_update to
{"tier": "primary"|"secondary"|"tertiary", "text": "..."}.
Respond with the JSON object only.`

const geminiSummaryPrompt = `Summarize the following game turns in 2-3
sentences, focusing on progress made, objectives pursued, and obstacles
encountered. Reply with the summary text only.`

// GeminiConfig holds configuration for the Gemini-backed provider.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API. Required.
	APIKey string

	// Model is the model name. Defaults to "gemini-2.0-flash" if empty.
	Model string

	// Temperature controls sampling. Defaults to 0.3 if zero.
	Temperature float32

	// MaxOutputTokens bounds the response length. Defaults to 1024 if
	// zero.
	MaxOutputTokens int32
}

// Gemini is a decision provider backed by the Gemini API. It implements
// Provider and history.Summarizer.
type Gemini struct {
	cfg    GeminiConfig
	client *genai.Client
	logger zerolog.Logger
}

// NewGemini creates a Gemini provider.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger zerolog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider: gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 1024
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: create gemini client: %w", err)
	}

	return &Gemini{
		cfg:    cfg,
		client: client,
		logger: logger.With().Str("component", "provider").Str("kind", "gemini").Logger(),
	}, nil
}

// Decide requests one decision for the given snapshot and context.
func (g *Gemini) Decide(ctx context.Context, snap gamestate.Snapshot, contextText string) (Decision, error) {
	prompt := contextText + "\n" + snap.Render()

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(geminiSystemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr(g.cfg.Temperature),
			MaxOutputTokens:   g.cfg.MaxOutputTokens,
			ResponseMIMEType:  "application/json",
		})
	if err != nil {
		return Decision{}, fmt.Errorf("provider: gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Decision{}, fmt.Errorf("provider: gemini returned empty response")
	}
	return ParseDecision([]byte(text))
}

// SummarizeTurns reduces a stretch of turns to a short digest.
func (g *Gemini) SummarizeTurns(ctx context.Context, turns []history.Turn) (string, error) {
	prompt := geminiSummaryPrompt + "\n\n" + describeTurns(turns)

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(g.cfg.Temperature),
			MaxOutputTokens: 300,
		})
	if err != nil {
		return "", fmt.Errorf("provider: gemini summarize: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("provider: gemini returned empty summary")
	}
	return text, nil
}
