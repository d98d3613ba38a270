package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxAltyn/Cash-Healer/internal/model"
	"github.com/MaxAltyn/Cash-Healer/internal/storage"
)

type stubStore struct {
	storage.Store

	upsertedTelegramID int64
	upsertErr          error

	savedModel model.FinancialModel
	saveErr    error
}

func (s *stubStore) UpsertUser(_ context.Context, telegramID int64, _ storage.UserProfile) (model.User, error) {
	s.upsertedTelegramID = telegramID
	if s.upsertErr != nil {
		return model.User{}, s.upsertErr
	}
	return model.User{ID: 5, TelegramID: telegramID}, nil
}

func (s *stubStore) SaveFinancialModel(_ context.Context, fm model.FinancialModel) (model.FinancialModel, error) {
	s.savedModel = fm
	if s.saveErr != nil {
		return model.FinancialModel{}, s.saveErr
	}
	fm.ID = 1
	return fm, nil
}

func TestHealth(t *testing.T) {
	srv := New(&stubStore{}, ":0")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv := New(&stubStore{}, ":0")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestModelingSave(t *testing.T) {
	store := &stubStore{}
	srv := New(store, ":0")

	body := `{
		"userId": "100500",
		"orderId": 7,
		"currentBalance": 50000,
		"nextIncome": 80000,
		"nextIncomeDate": "2026-09-10",
		"expenses": [{"name": "аренда", "amount": 30000}],
		"wishes": [{"name": "наушники", "price": 15000, "priority": "low"}],
		"totalExpenses": 30000
	}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/financial-modeling/save", strings.NewReader(body))
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), "Базовый анализ бюджета")

	assert.Equal(t, int64(100500), store.upsertedTelegramID)
	assert.Equal(t, int64(5), store.savedModel.UserID)
	require.True(t, store.savedModel.OrderID.Valid)
	assert.Equal(t, int64(7), store.savedModel.OrderID.Int64)
	assert.Equal(t, 50000, store.savedModel.CurrentBalance)
	assert.Equal(t, 30000, store.savedModel.TotalExpenses)
	assert.Contains(t, store.savedModel.Expenses, "аренда")
	assert.Contains(t, store.savedModel.Wishes, "наушники")
}

func TestModelingSaveMissingUserID(t *testing.T) {
	srv := New(&stubStore{}, ":0")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/financial-modeling/save", strings.NewReader(`{"currentBalance": 100}`))
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing userId")
}

func TestModelingSaveBadJSON(t *testing.T) {
	srv := New(&stubStore{}, ":0")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/financial-modeling/save", strings.NewReader("{"))
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, daysUntil("", now), "missing date stays at the one-day floor")
	assert.Equal(t, 1, daysUntil("2026-08-20", now), "past date clamps to one day")
	assert.Equal(t, 9, daysUntil("2026-09-10", now))
}

func TestBudgetAnalysisMath(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	got := budgetAnalysis(modelingSaveRequest{
		CurrentBalance: 50000,
		TotalExpenses:  30000,
		NextIncomeDate: "2026-09-11",
	}, now)

	// (50000-30000)/10 days
	assert.Contains(t, got, "2000 ₽/день")

	overdrawn := budgetAnalysis(modelingSaveRequest{
		CurrentBalance: 1000,
		TotalExpenses:  5000,
	}, now)
	assert.Contains(t, overdrawn, "0 ₽/день", "negative leftover clamps to zero")
}
