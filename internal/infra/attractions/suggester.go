package attractions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/yanqian/ai-travel-planner/internal/infra/llm/chatgpt"
)

const (
	maxSuggestions = 7
	systemPrompt   = "Suggest 5-7 popular, safe tourist attractions for the city. Return ONLY a JSON array of strings."
)

// FallbackList is returned when the model is unreachable or its answer has no usable array.
var FallbackList = []string{"Downtown walking area", "Main museum", "Top viewpoint", "Local market", "Popular park"}

var arrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// Config tunes the suggestion call.
type Config struct {
	Model       string
	Temperature float32
}

// Suggester asks the language model for a short list of attractions.
type Suggester struct {
	cfg    Config
	client chatClient
	logger *slog.Logger
}

// NewSuggester wires the attraction suggester.
func NewSuggester(cfg Config, client chatClient, logger *slog.Logger) *Suggester {
	return &Suggester{cfg: cfg, client: client, logger: logger.With("component", "attractions.suggester")}
}

// Suggest returns up to seven attraction names for city, or FallbackList.
func (s *Suggester) Suggest(ctx context.Context, city string) []string {
	resp, err := s.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		Messages: []chatgpt.Message{
			{Role: chatgpt.RoleSystem, Content: systemPrompt},
			{Role: chatgpt.RoleUser, Content: "City: " + city},
		},
	})
	if err != nil {
		s.logger.Warn("attraction suggestion failed", "city", city, "error", err)
		return fallback()
	}
	if len(resp.Choices) == 0 {
		return fallback()
	}
	names, ok := extractNames(resp.Choices[0].Message.Content)
	if !ok {
		s.logger.Warn("attraction suggestion unparseable", "city", city)
		return fallback()
	}
	return names
}

// extractNames pulls the outermost JSON array out of text.
func extractNames(text string) ([]string, bool) {
	match := arrayPattern.FindString(text)
	if match == "" {
		return nil, false
	}
	var raw []any
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return nil, false
	}
	names := lo.FilterMap(raw, func(v any, _ int) (string, bool) {
		var name string
		switch t := v.(type) {
		case string:
			name = t
		case nil:
			return "", false
		default:
			name = fmt.Sprint(t)
		}
		name = strings.TrimSpace(name)
		return name, name != ""
	})
	names = lo.Uniq(names)
	if len(names) > maxSuggestions {
		names = names[:maxSuggestions]
	}
	return names, true
}

func fallback() []string {
	return append([]string(nil), FallbackList...)
}
