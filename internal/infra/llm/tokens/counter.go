package tokens

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/yanqian/ai-travel-planner/internal/infra/llm/chatgpt"
)

// per-message overhead used by OpenAI chat formats.
const messageOverhead = 4

// Counter estimates prompt tokens with tiktoken, loading the encoding lazily.
type Counter struct {
	model  string
	logger *slog.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewCounter builds a counter for model.
func NewCounter(model string, logger *slog.Logger) *Counter {
	return &Counter{model: model, logger: logger.With("component", "llm.tokens")}
}

// CountMessages estimates the prompt tokens of a chat request.
func (c *Counter) CountMessages(messages []chatgpt.Message) int {
	total := 0
	for _, msg := range messages {
		total += messageOverhead + c.Count(msg.Role) + c.Count(msg.Content)
		for _, call := range msg.ToolCalls {
			total += c.Count(call.Function.Name) + c.Count(call.Function.Arguments)
		}
	}
	return total
}

// Count estimates the tokens in text. When no encoding can be loaded it falls back to
// a words-based approximation.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if enc := c.encoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return approximate(text)
}

func (c *Counter) encoding() *tiktoken.Tiktoken {
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		}
		if err != nil {
			c.logger.Warn("tiktoken encoding unavailable, using approximation", "model", c.model, "error", err)
			return
		}
		c.enc = enc
	})
	return c.enc
}

func approximate(text string) int {
	words := len(strings.Fields(text))
	return (words*4 + 2) / 3
}
