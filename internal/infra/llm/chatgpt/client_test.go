package chatgpt

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateChatCompletionSendsToolsAndDecodesToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req ChatCompletionRequest
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Tools, 1)
		require.Equal(t, "city_latlng", req.Tools[0].Function.Name)
		require.Equal(t, RoleTool, req.Messages[2].Role)
		require.Equal(t, "call_1", req.Messages[2].ToolCallID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices":[{"finish_reason":"tool_calls","message":{"role":"assistant","content":null,
				"tool_calls":[{"id":"call_2","type":"function","function":{"name":"weather","arguments":"{\"lat\":1,\"lng\":2,\"target_date\":\"2026-02-01\"}"}}]}}],
			"usage":{"prompt_tokens":120,"completion_tokens":30,"total_tokens":150}
		}`))
	}))
	defer server.Close()

	client, err := NewClient("test-key", server.URL+"/v1/")
	require.NoError(t, err)

	resp, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Model: "gpt-test",
		Messages: []Message{
			{Role: RoleSystem, Content: "system"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_1", Type: "function", Function: ToolCallDefinition{Name: "city_latlng", Arguments: `{"city":"Toronto"}`}}}},
			{Role: RoleTool, ToolCallID: "call_1", Content: `{"city":"Toronto","lat":43.6,"lng":-79.3}`},
		},
		Tools: []Tool{{Type: "function", Function: ToolFunction{Name: "city_latlng"}}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	require.Equal(t, "tool_calls", resp.Choices[0].FinishReason)
	require.Equal(t, "weather", resp.Choices[0].Message.ToolCalls[0].Function.Name)
	require.Equal(t, 150, resp.Usage.TotalTokens)
}

func TestCreateChatCompletionErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient("test-key", server.URL)
	require.NoError(t, err)

	_, err = client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "gpt-test"})
	require.ErrorContains(t, err, "status=429")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(" ", "")
	require.Error(t, err)
}
