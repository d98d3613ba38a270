package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, onRequest func(req chatRequest)) *httptest.Server {
	t.Helper()
	n := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if onRequest != nil {
			onRequest(req)
		}

		n++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": fmt.Sprintf("reply %d", n)}},
			},
		})
	}))
}

func TestThreadID(t *testing.T) {
	assert.Equal(t, "telegram-user-100500", ThreadID(100500))
}

func TestGenerate(t *testing.T) {
	var got chatRequest
	srv := completionServer(t, func(req chatRequest) { got = req })
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "key-1"}, nil)

	reply, err := c.Generate(context.Background(), ThreadID(1), "привет")
	require.NoError(t, err)
	assert.Equal(t, "reply 1", reply)

	assert.Equal(t, "deepseek-chat", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "привет", got.Messages[1].Content)
}

func TestGenerateKeepsThreadHistory(t *testing.T) {
	var last chatRequest
	srv := completionServer(t, func(req chatRequest) { last = req })
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "key-1"}, nil)

	_, err := c.Generate(context.Background(), ThreadID(1), "первый")
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), ThreadID(1), "второй")
	require.NoError(t, err)

	// system + first exchange + new user turn
	require.Len(t, last.Messages, 4)
	assert.Equal(t, "первый", last.Messages[1].Content)
	assert.Equal(t, "reply 1", last.Messages[2].Content)
	assert.Equal(t, "второй", last.Messages[3].Content)
}

func TestGenerateIsolatesThreads(t *testing.T) {
	var last chatRequest
	srv := completionServer(t, func(req chatRequest) { last = req })
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "key-1"}, nil)

	_, err := c.Generate(context.Background(), ThreadID(1), "от первого")
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), ThreadID(2), "от второго")
	require.NoError(t, err)

	require.Len(t, last.Messages, 2, "second thread must not see the first thread's history")
}

func TestGenerateBoundsHistory(t *testing.T) {
	var last chatRequest
	srv := completionServer(t, func(req chatRequest) { last = req })
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "key-1", MaxHistory: 2}, nil)

	for i := 0; i < 5; i++ {
		_, err := c.Generate(context.Background(), ThreadID(1), fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
	}

	// system + bounded history (MaxHistory*2) + current turn
	assert.Len(t, last.Messages, 1+2*2+1)
}

func TestGenerateDisabledWithoutCredentials(t *testing.T) {
	c := New(Config{}, nil)
	assert.False(t, c.Enabled())

	reply, err := c.Generate(context.Background(), ThreadID(1), "привет")
	require.NoError(t, err)
	assert.Equal(t, disabledReply, reply)
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "key-1"}, nil)
	_, err := c.Generate(context.Background(), ThreadID(1), "привет")
	assert.Error(t, err)
}
