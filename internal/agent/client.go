package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MaxAltyn/Cash-Healer/core/logger"
	"github.com/MaxAltyn/Cash-Healer/core/metrics"
)

const (
	defaultModel      = "deepseek-chat"
	defaultMaxHistory = 20

	disabledReply = "❌ Помощник временно недоступен. Попробуйте позже."
)

// systemPrompt frames the assistant for off-script conversations.
const systemPrompt = "Ты — дружелюбный помощник бота «Финансовый лекарь». " +
	"Отвечай кратко и по-русски. Помогай пользователю разобраться с услугами " +
	"«Финансовый детокс» и «Финансовое моделирование» и с оплатой заказов."

// ThreadID builds the stable per-user conversation key.
func ThreadID(telegramID int64) string {
	return fmt.Sprintf("telegram-user-%d", telegramID)
}

// Config carries the agent backend settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxHistory int
	Timeout    time.Duration
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is an OpenAI-compatible chat-completions client with per-thread memory.
type Client struct {
	cfg  Config
	http *http.Client

	mu      sync.Mutex
	history map[string][]message

	metrics *metrics.BotMetrics
}

// New constructs an agent client. Metrics may be nil.
func New(cfg Config, m *metrics.BotMetrics) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = defaultMaxHistory
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		history: make(map[string][]message),
		metrics: m,
	}
}

// Enabled reports whether the backend is configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != "" && c.cfg.BaseURL != ""
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Generate sends the prompt within the thread's conversation and returns the reply.
func (c *Client) Generate(ctx context.Context, threadID, prompt string) (string, error) {
	if !c.Enabled() {
		return disabledReply, nil
	}

	msgs := c.snapshot(threadID, prompt)

	payload, err := json.Marshal(chatRequest{Model: c.cfg.Model, Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("agent: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("agent: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent: request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("agent: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("agent: api error: %s: %s", resp.Status, logger.SanitizeLimit(string(data), 256))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("agent: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("agent: empty completion")
	}
	reply := parsed.Choices[0].Message.Content

	c.remember(threadID, prompt, reply)
	if c.metrics != nil {
		c.metrics.RecordAgentRequest(time.Since(start).Seconds())
	}
	logger.AGENT.Debug("completion",
		slog.String("event", "agent.generate"),
		slog.String("thread_id", threadID),
		slog.Int("reply_len", len(reply)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return reply, nil
}

// snapshot returns system prompt + thread history + the new user turn.
func (c *Client) snapshot(threadID, prompt string) []message {
	c.mu.Lock()
	defer c.mu.Unlock()

	hist := c.history[threadID]
	msgs := make([]message, 0, len(hist)+2)
	msgs = append(msgs, message{Role: "system", Content: systemPrompt})
	msgs = append(msgs, hist...)
	msgs = append(msgs, message{Role: "user", Content: prompt})
	return msgs
}

func (c *Client) remember(threadID, prompt, reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hist := append(c.history[threadID],
		message{Role: "user", Content: prompt},
		message{Role: "assistant", Content: reply},
	)
	if max := c.cfg.MaxHistory * 2; len(hist) > max {
		hist = hist[len(hist)-max:]
	}
	c.history[threadID] = hist
}
