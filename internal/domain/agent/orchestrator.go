package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/ai-travel-planner/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/ai-travel-planner/pkg/errors"
	"github.com/yanqian/ai-travel-planner/pkg/metrics"
)

// ErrMaxIterations is returned when the model keeps calling tools past the limit.
var ErrMaxIterations = errors.New("agent: max iterations reached")

const defaultMaxIterations = 12

// ChatClient is the subset of the ChatGPT client the loop needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// TokenCounter estimates usage when the API does not report it.
type TokenCounter interface {
	CountMessages(messages []chatgpt.Message) int
	Count(text string) int
}

// Config tunes the orchestrator.
type Config struct {
	Model         string
	Temperature   float32
	MaxIterations int
	Timeout       time.Duration
	SystemPrompt  string
}

// ToolCallRecord captures one tool invocation for logging and diagnostics.
type ToolCallRecord struct {
	Name      string
	Arguments string
	Error     string
}

// Result is the final assistant answer of one run.
type Result struct {
	Text       string
	Usage      metrics.TokenUsage
	Iterations int
	ToolCalls  []ToolCallRecord
}

// Orchestrator drives the model through tool calls until it produces a final answer.
type Orchestrator struct {
	cfg     Config
	client  ChatClient
	tools   *Dispatcher
	counter TokenCounter
	logger  *slog.Logger
}

// NewOrchestrator builds the tool loop. counter may be nil.
func NewOrchestrator(cfg Config, client ChatClient, tools *Dispatcher, counter TokenCounter, logger *slog.Logger) *Orchestrator {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	return &Orchestrator{
		cfg:     cfg,
		client:  client,
		tools:   tools,
		counter: counter,
		logger:  logger.With("component", "agent.orchestrator"),
	}
}

// Run sends instruction to the model and executes requested tools until the model
// answers without tool calls.
func (o *Orchestrator) Run(ctx context.Context, instruction string) (Result, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	messages := make([]chatgpt.Message, 0, 8)
	if o.cfg.SystemPrompt != "" {
		messages = append(messages, chatgpt.Message{Role: chatgpt.RoleSystem, Content: o.cfg.SystemPrompt})
	}
	messages = append(messages, chatgpt.Message{Role: chatgpt.RoleUser, Content: instruction})

	definitions := o.tools.Definitions()
	var result Result
	for i := 0; i < o.cfg.MaxIterations; i++ {
		result.Iterations = i + 1
		resp, err := o.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
			Model:       o.cfg.Model,
			Messages:    messages,
			Temperature: o.cfg.Temperature,
			Tools:       definitions,
			ToolChoice:  "auto",
		})
		if err != nil {
			return result, apperrors.Wrap(apperrors.CodeAgent, "language model request failed", err)
		}
		result.Usage = result.Usage.Add(o.usage(resp, messages))
		if len(resp.Choices) == 0 {
			return result, apperrors.Wrap(apperrors.CodeAgent, "language model returned no choices", nil)
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			result.Text = strings.TrimSpace(msg.Content)
			o.logger.Debug("agent finished", "iterations", result.Iterations, "toolCalls", len(result.ToolCalls), "output", result.Text)
			return result, nil
		}

		messages = append(messages, chatgpt.Message{
			Role:      chatgpt.RoleAssistant,
			Content:   msg.Content,
			ToolCalls: msg.ToolCalls,
		})
		for _, call := range msg.ToolCalls {
			content, record, err := o.invoke(ctx, call)
			result.ToolCalls = append(result.ToolCalls, record)
			if err != nil {
				return result, err
			}
			messages = append(messages, chatgpt.Message{
				Role:       chatgpt.RoleTool,
				Content:    content,
				ToolCallID: call.ID,
			})
		}
	}
	return result, apperrors.Wrap(apperrors.CodeAgent, "agent did not finish", ErrMaxIterations)
}

// invoke runs one tool call. Policy violations abort the run; other failures are
// reported back to the model as an error object.
func (o *Orchestrator) invoke(ctx context.Context, call chatgpt.ToolCall) (string, ToolCallRecord, error) {
	record := ToolCallRecord{Name: call.Function.Name, Arguments: call.Function.Arguments}
	out, err := o.tools.Call(ctx, call.Function.Name, call.Function.Arguments)
	if err != nil {
		record.Error = err.Error()
		if apperrors.IsCode(err, apperrors.CodePolicyViolation) {
			o.logger.Warn("tool blocked by policy", "tool", record.Name, "error", err)
			return "", record, err
		}
		o.logger.Warn("tool call failed", "tool", record.Name, "error", err)
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(payload), record, nil
	}
	o.logger.Debug("tool call", "tool", record.Name, "arguments", record.Arguments, "bytes", len(out))
	return string(out), record, nil
}

func (o *Orchestrator) usage(resp chatgpt.ChatCompletionResponse, prompt []chatgpt.Message) metrics.TokenUsage {
	if resp.Usage.TotalTokens > 0 {
		return metrics.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	if o.counter == nil {
		return metrics.TokenUsage{}
	}
	promptTokens := o.counter.CountMessages(prompt)
	completion := 0
	if len(resp.Choices) > 0 {
		completion = o.counter.Count(resp.Choices[0].Message.Content)
	}
	return metrics.TokenUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completion,
		TotalTokens:      promptTokens + completion,
		Estimated:        true,
	}
}
