package yookassa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	return New(Config{
		ShopID:    "shop-1",
		SecretKey: "secret-1",
		BaseURL:   srv.URL,
		ReturnURL: "https://t.me/test_bot",
	}, nil)
}

func TestCreatePayment(t *testing.T) {
	var got createRequest
	var gotIdemKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/payments", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "shop-1", user)
		assert.Equal(t, "secret-1", pass)

		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotIdemKey = r.Header.Get("Idempotence-Key")

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "2f1c8a9b-000f-5000-9000-1db9d6dd52ac",
			"status": "pending",
			"confirmation": map[string]string{
				"type":             "redirect",
				"confirmation_url": "https://yoomoney.ru/checkout/payments/v2?orderId=xyz",
			},
		})
	}))
	defer srv.Close()

	p, err := newTestClient(srv).CreatePayment(context.Background(), 450, "Оплата: Финансовый детокс")
	require.NoError(t, err)

	assert.Equal(t, "2f1c8a9b-000f-5000-9000-1db9d6dd52ac", p.ID)
	assert.Equal(t, "https://yoomoney.ru/checkout/payments/v2?orderId=xyz", p.URL)

	assert.NotEmpty(t, gotIdemKey)
	assert.Equal(t, "450.00", got.Amount.Value)
	assert.Equal(t, "RUB", got.Amount.Currency)
	assert.Equal(t, "redirect", got.Confirmation.Type)
	assert.Equal(t, "https://t.me/test_bot", got.Confirmation.ReturnURL)
	assert.True(t, got.Capture)
	assert.Equal(t, "Оплата: Финансовый детокс", got.Description)
}

func TestCreatePaymentIncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "abc", "status": "pending"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CreatePayment(context.Background(), 350, "x")
	assert.ErrorContains(t, err, "incomplete response")
}

func TestCreatePaymentAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"error","code":"invalid_credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CreatePayment(context.Background(), 350, "x")
	assert.ErrorContains(t, err, "invalid_credentials")
}

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/payments/pay-42", r.URL.Path)
		_, _, ok := r.BasicAuth()
		require.True(t, ok)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "pay-42",
			"status": "succeeded",
			"paid":   true,
			"amount": map[string]string{"value": "450.00", "currency": "RUB"},
		})
	}))
	defer srv.Close()

	st, err := newTestClient(srv).GetPayment(context.Background(), "pay-42")
	require.NoError(t, err)

	assert.True(t, st.Paid)
	assert.Equal(t, "succeeded", st.Status)
	assert.Equal(t, 450, st.Amount)
}

func TestGetPaymentPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "pay-43",
			"status": "pending",
			"paid":   false,
		})
	}))
	defer srv.Close()

	st, err := newTestClient(srv).GetPayment(context.Background(), "pay-43")
	require.NoError(t, err)
	assert.False(t, st.Paid)
	assert.Equal(t, "pending", st.Status)
}
