package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/ai-travel-planner/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/ai-travel-planner/pkg/errors"
)

func toolCallResponse(calls ...chatgpt.ToolCall) chatgpt.ChatCompletionResponse {
	return chatgpt.ChatCompletionResponse{
		Choices: []chatgpt.Choice{{Message: chatgpt.Message{Role: chatgpt.RoleAssistant, ToolCalls: calls}}},
		Usage:   chatgpt.Usage{PromptTokens: 100, CompletionTokens: 10, TotalTokens: 110},
	}
}

func finalResponse(text string) chatgpt.ChatCompletionResponse {
	return chatgpt.ChatCompletionResponse{
		Choices: []chatgpt.Choice{{Message: chatgpt.Message{Role: chatgpt.RoleAssistant, Content: text}}},
		Usage:   chatgpt.Usage{PromptTokens: 200, CompletionTokens: 50, TotalTokens: 250},
	}
}

func call(id, name, args string) chatgpt.ToolCall {
	return chatgpt.ToolCall{ID: id, Type: "function", Function: chatgpt.ToolCallDefinition{Name: name, Arguments: args}}
}

func newTestOrchestrator(client ChatClient, counter TokenCounter) *Orchestrator {
	return NewOrchestrator(Config{
		Model:         "gpt-test",
		MaxIterations: 3,
		SystemPrompt:  "You are a travel planner.",
	}, client, NewDispatcher(newFixture().toolbox), counter, discardLogger())
}

func TestOrchestratorRunsToolsThenAnswers(t *testing.T) {
	client := &stubChatClient{responses: []chatgpt.ChatCompletionResponse{
		toolCallResponse(call("c1", ToolCityLatLng, `{"city":"Toronto"}`), call("c2", ToolSuggestAttractions, `{"city":"Toronto"}`)),
		finalResponse(`  {"cities":[]}  `),
	}}
	o := newTestOrchestrator(client, nil)

	result, err := o.Run(context.Background(), "Plan Toronto")
	require.NoError(t, err)
	require.Equal(t, `{"cities":[]}`, result.Text)
	require.Equal(t, 2, result.Iterations)
	require.Len(t, result.ToolCalls, 2)
	require.Equal(t, 360, result.Usage.TotalTokens)
	require.False(t, result.Usage.Estimated)

	require.Len(t, client.requests, 2)
	first := client.requests[0]
	require.Equal(t, chatgpt.RoleSystem, first.Messages[0].Role)
	require.Equal(t, chatgpt.RoleUser, first.Messages[1].Role)
	require.Len(t, first.Tools, 5)

	second := client.requests[1].Messages
	require.Len(t, second, 5)
	require.Equal(t, chatgpt.RoleAssistant, second[2].Role)
	require.Equal(t, chatgpt.RoleTool, second[3].Role)
	require.Equal(t, "c1", second[3].ToolCallID)
	require.Contains(t, second[3].Content, `"lat":43.65`)
	require.Equal(t, "c2", second[4].ToolCallID)
}

func TestOrchestratorReportsToolErrorsToModel(t *testing.T) {
	client := &stubChatClient{responses: []chatgpt.ChatCompletionResponse{
		toolCallResponse(call("c1", "book_hotel", `{}`)),
		finalResponse("done"),
	}}
	o := newTestOrchestrator(client, nil)

	result, err := o.Run(context.Background(), "Plan Toronto")
	require.NoError(t, err)
	require.Equal(t, "done", result.Text)
	require.NotEmpty(t, result.ToolCalls[0].Error)

	toolMsg := client.requests[1].Messages[3]
	require.Contains(t, toolMsg.Content, `"error"`)
	require.Contains(t, toolMsg.Content, "tool not found")
}

func TestOrchestratorAbortsOnPolicyViolation(t *testing.T) {
	client := &stubChatClient{responses: []chatgpt.ChatCompletionResponse{
		toolCallResponse(call("c1", ToolCityLatLng, `{"city":"Pyongyang, North Korea"}`)),
		finalResponse("should not be reached"),
	}}
	o := newTestOrchestrator(client, nil)

	_, err := o.Run(context.Background(), "Plan it")
	require.True(t, apperrors.IsCode(err, apperrors.CodePolicyViolation))
	require.Len(t, client.requests, 1)
}

func TestOrchestratorMaxIterations(t *testing.T) {
	loop := toolCallResponse(call("c", ToolCityLatLng, `{"city":"Toronto"}`))
	client := &stubChatClient{responses: []chatgpt.ChatCompletionResponse{loop, loop, loop, loop}}
	o := newTestOrchestrator(client, nil)

	result, err := o.Run(context.Background(), "Plan Toronto")
	require.True(t, errors.Is(err, ErrMaxIterations))
	require.True(t, apperrors.IsCode(err, apperrors.CodeAgent))
	require.Equal(t, 3, result.Iterations)
}

func TestOrchestratorWrapsClientFailure(t *testing.T) {
	o := newTestOrchestrator(&stubChatClient{err: errors.New("connection refused")}, nil)

	_, err := o.Run(context.Background(), "Plan Toronto")
	require.True(t, apperrors.IsCode(err, apperrors.CodeAgent))
}

func TestOrchestratorEstimatesMissingUsage(t *testing.T) {
	client := &stubChatClient{responses: []chatgpt.ChatCompletionResponse{{
		Choices: []chatgpt.Choice{{Message: chatgpt.Message{Role: chatgpt.RoleAssistant, Content: "hello"}}},
	}}}
	o := newTestOrchestrator(client, fixedCounter{})

	result, err := o.Run(context.Background(), "Plan Toronto")
	require.NoError(t, err)
	require.True(t, result.Usage.Estimated)
	require.Equal(t, 20, result.Usage.PromptTokens)
	require.Equal(t, 5, result.Usage.CompletionTokens)
	require.Equal(t, 25, result.Usage.TotalTokens)
}
