package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spark-chat-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkRecorder 把写出的分块按序记下来。
type chunkRecorder struct {
	chunks []string
}

func (r *chunkRecorder) WriteMessage(_ int, data []byte) error {
	r.chunks = append(r.chunks, string(data))
	return nil
}

func sseChunk(text string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{
				"parts": []map[string]string{{"text": text}},
			}},
		},
	})
	return fmt.Sprintf("data: %s\n", body)
}

func TestStreamChatMessages(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotBody geminiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotAPIKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("Hello"))
		fmt.Fprint(w, sseChunk(", world"))
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gemini-2.0-flash",
	})

	rec := &chunkRecorder{}
	messages := []Message{
		{Role: "user", Content: "Explain TCP"},
		{Role: "model", Content: "TCP is..."},
		{Role: "user", Content: "And UDP?"},
	}
	err := client.StreamChatMessages(context.Background(), messages, nil, rec)
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello", ", world"}, rec.chunks)
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:streamGenerateContent?alt=sse", gotPath)
	assert.Equal(t, "test-key", gotAPIKey)

	// 历史按角色交替透传
	require.Len(t, gotBody.Contents, 3)
	assert.Equal(t, "user", gotBody.Contents[0].Role)
	assert.Equal(t, "Explain TCP", gotBody.Contents[0].Parts[0].Text)
	assert.Equal(t, "model", gotBody.Contents[1].Role)
	assert.Equal(t, "user", gotBody.Contents[2].Role)
	// 默认安全配置随请求发送
	require.Len(t, gotBody.SafetySettings, 2)
	assert.Equal(t, "HARM_CATEGORY_HARASSMENT", gotBody.SafetySettings[0].Category)
	assert.Equal(t, "BLOCK_LOW_AND_ABOVE", gotBody.SafetySettings[0].Threshold)
}

func TestStreamChatMessagesGenerationParams(t *testing.T) {
	var gotBody geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "gemini-2.0-flash"})

	temp, topP, maxTokens := 0.7, 0.9, 1024
	err := client.StreamChatMessages(context.Background(), []Message{{Role: "user", Content: "hi"}},
		&GenerationParams{Temperature: &temp, TopP: &topP, MaxTokens: &maxTokens}, &chunkRecorder{})
	require.NoError(t, err)

	require.NotNil(t, gotBody.GenerationConfig)
	assert.Equal(t, 0.7, *gotBody.GenerationConfig.Temperature)
	assert.Equal(t, 0.9, *gotBody.GenerationConfig.TopP)
	assert.Equal(t, 1024, *gotBody.GenerationConfig.MaxOutputTokens)
}

func TestStreamChatMessagesConfigGenerationFallback(t *testing.T) {
	var gotBody geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{
		BaseURL: srv.URL,
		Model:   "gemini-2.0-flash",
		Generation: config.LLMGenerationConfig{
			Temperature: 0.3,
			MaxTokens:   512,
		},
	})

	err := client.StreamChatMessages(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, &chunkRecorder{})
	require.NoError(t, err)

	require.NotNil(t, gotBody.GenerationConfig)
	assert.Equal(t, 0.3, *gotBody.GenerationConfig.Temperature)
	assert.Nil(t, gotBody.GenerationConfig.TopP)
	assert.Equal(t, 512, *gotBody.GenerationConfig.MaxOutputTokens)
}

func TestStreamChatMessagesNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "gemini-2.0-flash"})

	err := client.StreamChatMessages(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, &chunkRecorder{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "non-200"))
}

func TestStreamChatMessagesSkipsMalformedChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {not json}\n")
		fmt.Fprint(w, sseChunk("ok"))
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "gemini-2.0-flash"})

	rec := &chunkRecorder{}
	err := client.StreamChatMessages(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, rec.chunks)
}
