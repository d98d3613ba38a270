package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/MaxAltyn/Cash-Healer/core/logger"
	"github.com/MaxAltyn/Cash-Healer/core/metrics"
)

const defaultTimeout = 15 * time.Second

// Payment is the result of a successful payment creation.
type Payment struct {
	ID  string
	URL string
}

// Status is the gateway's live view of a payment.
type Status struct {
	Paid   bool
	Status string
	Amount int
}

// Config carries gateway credentials and endpoints.
type Config struct {
	ShopID    string
	SecretKey string
	BaseURL   string
	ReturnURL string
}

// Client talks to the YooKassa v3 REST API.
type Client struct {
	cfg     Config
	http    *http.Client
	metrics *metrics.BotMetrics
}

// New constructs a gateway client. Metrics may be nil.
func New(cfg Config, m *metrics.BotMetrics) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: defaultTimeout},
		metrics: m,
	}
}

type amountBody struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmationBody struct {
	Type      string `json:"type"`
	ReturnURL string `json:"return_url,omitempty"`
	// ConfirmationURL is present only in responses.
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type createRequest struct {
	Amount       amountBody       `json:"amount"`
	Confirmation confirmationBody `json:"confirmation"`
	Capture      bool             `json:"capture"`
	Description  string           `json:"description"`
}

type paymentResponse struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Paid         bool              `json:"paid"`
	Amount       *amountBody       `json:"amount"`
	Confirmation *confirmationBody `json:"confirmation"`
}

// CreatePayment registers a redirect payment for the given whole-ruble amount.
func (c *Client) CreatePayment(ctx context.Context, amount int, description string) (*Payment, error) {
	body := createRequest{
		Amount: amountBody{
			Value:    fmt.Sprintf("%d.00", amount),
			Currency: "RUB",
		},
		Confirmation: confirmationBody{
			Type:      "redirect",
			ReturnURL: c.cfg.ReturnURL,
		},
		Capture:     true,
		Description: description,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("yookassa: marshal payment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("yookassa: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.NewString())
	req.SetBasicAuth(c.cfg.ShopID, c.cfg.SecretKey)

	start := time.Now()
	var resp paymentResponse
	if err := c.do(req, &resp); err != nil {
		c.observe("create", "error", start)
		return nil, err
	}

	if resp.ID == "" || resp.Confirmation == nil || resp.Confirmation.ConfirmationURL == "" {
		c.observe("create", "error", start)
		return nil, fmt.Errorf("yookassa: create payment: incomplete response (id=%q)", resp.ID)
	}
	c.observe("create", "ok", start)

	logger.GW.Info("payment created",
		slog.String("event", "gw.payment.create"),
		slog.String("payment_id", resp.ID),
		slog.String("status", resp.Status),
		slog.Int("amount", amount),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return &Payment{ID: resp.ID, URL: resp.Confirmation.ConfirmationURL}, nil
}

// GetPayment reads the live status of a payment.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/payments/"+paymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("yookassa: build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ShopID, c.cfg.SecretKey)

	start := time.Now()
	var resp paymentResponse
	if err := c.do(req, &resp); err != nil {
		c.observe("status", "error", start)
		return nil, err
	}
	c.observe("status", "ok", start)

	amount := 0
	if resp.Amount != nil {
		if v, err := strconv.ParseFloat(resp.Amount.Value, 64); err == nil {
			amount = int(v)
		}
	}

	logger.GW.Debug("payment status",
		slog.String("event", "gw.payment.status"),
		slog.String("payment_id", paymentID),
		slog.String("status", resp.Status),
		slog.Bool("paid", resp.Paid),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return &Status{Paid: resp.Paid, Status: resp.Status, Amount: amount}, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("yookassa: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("yookassa: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("yookassa: api error: %s: %s", resp.Status, string(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("yookassa: decode response: %w", err)
	}
	return nil
}

func (c *Client) observe(operation, outcome string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordGatewayRequest(operation, outcome, time.Since(start).Seconds())
}
