package web

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/MaxAltyn/Cash-Healer/core/logger"
	tghelpers "github.com/MaxAltyn/Cash-Healer/core/telegram/helpers"
	"github.com/MaxAltyn/Cash-Healer/internal/model"
	"github.com/MaxAltyn/Cash-Healer/internal/storage"
)

// flexID accepts both `"123"` and `123`, since the mini app reads the id
// from a query string and may send either form.
type flexID int64

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", data)
	}
	*f = flexID(v)
	return nil
}

type expenseItem struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type wishItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Priority string  `json:"priority"`
}

type modelingSaveRequest struct {
	UserID         flexID        `json:"userId"`
	OrderID        flexID        `json:"orderId"`
	CurrentBalance float64       `json:"currentBalance"`
	NextIncome     float64       `json:"nextIncome"`
	NextIncomeDate string        `json:"nextIncomeDate"`
	Expenses       []expenseItem `json:"expenses"`
	Wishes         []wishItem    `json:"wishes"`
	TotalExpenses  float64       `json:"totalExpenses"`
}

type modelingSaveResponse struct {
	Success  bool   `json:"success"`
	Analysis string `json:"analysis,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleModelingSave(w http.ResponseWriter, r *http.Request) {
	var req modelingSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, modelingSaveResponse{Error: "invalid JSON body"})
		return
	}
	if req.UserID == 0 {
		writeJSON(w, http.StatusBadRequest, modelingSaveResponse{Error: "Missing userId"})
		return
	}

	ctx := r.Context()
	telegramID := int64(req.UserID)

	user, err := s.store.UpsertUser(ctx, telegramID, storage.UserProfile{
		Username:  fmt.Sprintf("user%d", telegramID),
		FirstName: "User",
	})
	if err != nil {
		logger.WEB.Error("modeling save: user upsert failed",
			slog.String("event", "web.modeling_save"),
			slog.Int64("telegram_id", telegramID),
			slog.String("err", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, modelingSaveResponse{Error: "storage unavailable"})
		return
	}

	expensesJSON, _ := json.Marshal(req.Expenses)
	wishesJSON, _ := json.Marshal(req.Wishes)

	fm := model.FinancialModel{
		UserID:         user.ID,
		CurrentBalance: int(math.Round(req.CurrentBalance)),
		NextIncome:     int(math.Round(req.NextIncome)),
		Expenses:       string(expensesJSON),
		Wishes:         string(wishesJSON),
		TotalExpenses:  int(math.Round(req.TotalExpenses)),
	}
	if req.OrderID != 0 {
		fm.OrderID = sql.NullInt64{Int64: int64(req.OrderID), Valid: true}
	}
	if req.NextIncomeDate != "" {
		fm.NextIncomeDate = sql.NullString{String: req.NextIncomeDate, Valid: true}
	}

	saved, err := s.store.SaveFinancialModel(ctx, fm)
	if err != nil {
		logger.WEB.Error("modeling save: model write failed",
			slog.String("event", "web.modeling_save"),
			slog.Int64("user_id", user.ID),
			slog.String("err", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, modelingSaveResponse{Error: "storage unavailable"})
		return
	}

	analysis := budgetAnalysis(req, time.Now())

	logger.WEB.Info("financial model saved",
		slog.String("event", "web.modeling_save"),
		slog.Int64("model_id", saved.ID),
		slog.Int64("user_id", user.ID),
	)
	writeJSON(w, http.StatusOK, modelingSaveResponse{Success: true, Analysis: analysis})
}

// daysUntil counts calendar days from now to the next income, never below one
// so the daily budget division stays defined.
func daysUntil(nextIncomeDate string, now time.Time) int {
	target := now
	if nextIncomeDate != "" {
		if t, err := time.Parse(time.RFC3339, nextIncomeDate); err == nil {
			target = t
		} else if t, ok := tghelpers.ParseFlexibleDate(nextIncomeDate); ok {
			target = t
		}
	}
	days := int(math.Ceil(target.Sub(now).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days
}

func budgetAnalysis(req modelingSaveRequest, now time.Time) string {
	days := daysUntil(req.NextIncomeDate, now)
	afterExpenses := req.CurrentBalance - req.TotalExpenses
	dailyBudget := math.Max(0, afterExpenses) / float64(days)

	verdict := "💡 Есть куда расти"
	if dailyBudget > 5000 {
		verdict = "✅ Отличный дневной бюджет!"
	} else if dailyBudget > 2000 {
		verdict = "📊 Хороший дневной бюджет"
	}

	var b strings.Builder
	b.WriteString("## 📊 Базовый анализ бюджета\n\n")
	fmt.Fprintf(&b, "**Текущий баланс:** %.0f ₽\n", req.CurrentBalance)
	fmt.Fprintf(&b, "**До следующего дохода:** %d дней\n", days)
	fmt.Fprintf(&b, "**Ежедневный бюджет:** %.0f ₽/день\n\n", dailyBudget)
	b.WriteString("### 💡 Основные выводы:\n")
	b.WriteString(verdict + "\n\n")
	b.WriteString("### 🎯 Рекомендации:\n")
	b.WriteString("1. **Отложите 10%** от остатка на непредвиденные расходы\n")
	b.WriteString("2. **Приоритетные расходы:** оплата ЖКХ, кредиты, продукты\n")
	b.WriteString("3. **Отложите покупки** с низким приоритетом\n")
	fmt.Fprintf(&b, "4. **Используйте ежедневный лимит** %.0f ₽", dailyBudget)
	return b.String()
}
