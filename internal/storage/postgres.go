package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/MaxAltyn/Cash-Healer/internal/model"

	"github.com/MaxAltyn/Cash-Healer/core/logger"
)

const uniqueViolation = "23505"

// activeOrderIndex is the partial unique index enforcing one active order per user.
const activeOrderIndex = "orders_one_active_per_user"

// PostgresStore implements Store on top of sqlx/PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an established sqlx connection.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// UpsertUser creates or refreshes a user keyed by Telegram id.
func (s *PostgresStore) UpsertUser(ctx context.Context, telegramID int64, profile UserProfile) (model.User, error) {
	const q = `
		INSERT INTO users (telegram_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name
		RETURNING id, telegram_id, username, first_name, last_name, is_admin, created_at`

	var u model.User
	if err := s.db.GetContext(ctx, &u, q, telegramID, profile.Username, profile.FirstName, profile.LastName); err != nil {
		return model.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

// UserByTelegramID fetches a user by Telegram id.
func (s *PostgresStore) UserByTelegramID(ctx context.Context, telegramID int64) (model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u,
		`SELECT id, telegram_id, username, first_name, last_name, is_admin, created_at
		 FROM users WHERE telegram_id = $1`, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user by telegram id: %w", err)
	}
	return u, nil
}

// UserByID fetches a user by primary key.
func (s *PostgresStore) UserByID(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u,
		`SELECT id, telegram_id, username, first_name, last_name, is_admin, created_at
		 FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// ActiveOrders lists the user's non-terminal orders.
func (s *PostgresStore) ActiveOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.SelectContext(ctx, &orders,
		`SELECT id, user_id, service_type, price, form_url, status, created_at, updated_at
		 FROM orders
		 WHERE user_id = $1 AND status = ANY($2)
		 ORDER BY created_at`, userID, pq.Array(statusStrings(model.ActiveOrderStatuses)))
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}
	return orders, nil
}

// CreateOrderWithPayment inserts an order and its payment in one transaction.
func (s *PostgresStore) CreateOrderWithPayment(ctx context.Context, no NewOrder) (model.Order, model.Payment, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Order{}, model.Payment{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var formURL sql.NullString
	if no.FormURL != "" {
		formURL = sql.NullString{String: no.FormURL, Valid: true}
	}

	var order model.Order
	err = tx.GetContext(ctx, &order,
		`INSERT INTO orders (user_id, service_type, price, form_url, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, user_id, service_type, price, form_url, status, created_at, updated_at`,
		no.UserID, no.ServiceType, no.Price, formURL, model.OrderPaymentPending)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Order{}, model.Payment{}, ErrActiveOrderExists
		}
		return model.Order{}, model.Payment{}, fmt.Errorf("insert order: %w", err)
	}

	var payment model.Payment
	err = tx.GetContext(ctx, &payment,
		`INSERT INTO payments (order_id, gateway_payment_id, payment_url, amount, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, order_id, gateway_payment_id, payment_url, amount, status, created_at, updated_at`,
		order.ID, no.GatewayPaymentID, no.PaymentURL, no.Price, model.PaymentPending)
	if err != nil {
		return model.Order{}, model.Payment{}, fmt.Errorf("insert payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Order{}, model.Payment{}, fmt.Errorf("commit order tx: %w", err)
	}

	logger.DB.Debug("order created",
		slog.String("event", "db.order.create"),
		slog.Int64("order_id", order.ID),
		slog.Int64("user_id", order.UserID),
		slog.String("service_type", string(order.ServiceType)),
	)
	return order, payment, nil
}

// OrderByID fetches an order by id.
func (s *PostgresStore) OrderByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := s.db.GetContext(ctx, &o,
		`SELECT id, user_id, service_type, price, form_url, status, created_at, updated_at
		 FROM orders WHERE id = $1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// PaymentByOrderID fetches the payment owned by an order.
func (s *PostgresStore) PaymentByOrderID(ctx context.Context, orderID int64) (model.Payment, error) {
	var p model.Payment
	err := s.db.GetContext(ctx, &p,
		`SELECT id, order_id, gateway_payment_id, payment_url, amount, status, created_at, updated_at
		 FROM payments WHERE order_id = $1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Payment{}, ErrPaymentNotFound
	}
	if err != nil {
		return model.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// UpdateOrderStatusFrom advances an order status only when the current status matches.
func (s *PostgresStore) UpdateOrderStatusFrom(ctx context.Context, orderID int64, from, to model.OrderStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		to, orderID, from)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("order status rows affected: %w", err)
	}
	if n == 0 {
		return ErrStatusConflict
	}
	return nil
}

// MarkPaymentSucceeded flips a pending payment to succeeded.
// The conditional WHERE makes this the replay-guard linearization point:
// of two racing confirmations only one can match the pending row.
func (s *PostgresStore) MarkPaymentSucceeded(ctx context.Context, paymentID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE payments SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		model.PaymentSucceeded, paymentID, model.PaymentPending)
	if err != nil {
		return fmt.Errorf("mark payment succeeded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("payment status rows affected: %w", err)
	}
	if n == 0 {
		return ErrStatusConflict
	}
	return nil
}

// PendingReportOrders lists orders awaiting operator action. Orders stuck at
// payment_confirmed (paid, but the delivery status write failed) are included
// so they stay visible to the operator.
func (s *PostgresStore) PendingReportOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.SelectContext(ctx, &orders,
		`SELECT id, user_id, service_type, price, form_url, status, created_at, updated_at
		 FROM orders
		 WHERE status IN ($1, $2, $3)
		 ORDER BY created_at`, model.OrderPaymentConfirmed, model.OrderFormSent, model.OrderProcessing)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	return orders, nil
}

// SaveFinancialModel stores or refreshes the user's budget snapshot.
func (s *PostgresStore) SaveFinancialModel(ctx context.Context, fm model.FinancialModel) (model.FinancialModel, error) {
	const q = `
		INSERT INTO financial_models
			(user_id, order_id, current_balance, next_income, next_income_date,
			 expenses, wishes, total_expenses)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE
		SET order_id = EXCLUDED.order_id,
		    current_balance = EXCLUDED.current_balance,
		    next_income = EXCLUDED.next_income,
		    next_income_date = EXCLUDED.next_income_date,
		    expenses = EXCLUDED.expenses,
		    wishes = EXCLUDED.wishes,
		    total_expenses = EXCLUDED.total_expenses,
		    updated_at = now()
		RETURNING id, user_id, order_id, current_balance, next_income, next_income_date,
		          expenses, wishes, total_expenses, created_at, updated_at`

	var saved model.FinancialModel
	err := s.db.GetContext(ctx, &saved, q,
		fm.UserID, fm.OrderID, fm.CurrentBalance, fm.NextIncome, fm.NextIncomeDate,
		fm.Expenses, fm.Wishes, fm.TotalExpenses)
	if err != nil {
		return model.FinancialModel{}, fmt.Errorf("save financial model: %w", err)
	}
	return saved, nil
}

func statusStrings(statuses []model.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation && pqErr.Constraint == activeOrderIndex
	}
	return false
}
