package model

import (
	"database/sql"
	"time"
)

// ServiceType identifies a paid service offering.
type ServiceType string

const (
	// ServiceDetox is the budget detox questionnaire service.
	ServiceDetox ServiceType = "detox"
	// ServiceModeling is the interactive financial modeling mini-app service.
	ServiceModeling ServiceType = "modeling"
)

// Valid reports whether the service type is one of the known offerings.
func (s ServiceType) Valid() bool {
	return s == ServiceDetox || s == ServiceModeling
}

// Title returns the Russian display name used in user-facing messages.
func (s ServiceType) Title() string {
	switch s {
	case ServiceDetox:
		return "Финансовый детокс"
	case ServiceModeling:
		return "Финансовое моделирование"
	}
	return string(s)
}

// OrderStatus tracks the order lifecycle.
type OrderStatus string

const (
	OrderCreated          OrderStatus = "created"
	OrderPaymentPending   OrderStatus = "payment_pending"
	OrderPaymentConfirmed OrderStatus = "payment_confirmed"
	OrderFormSent         OrderStatus = "form_sent"
	OrderProcessing       OrderStatus = "processing"
	OrderCompleted        OrderStatus = "completed"
	OrderCanceled         OrderStatus = "canceled"
)

// ActiveOrderStatuses enumerates non-terminal order statuses.
// A user may hold at most one order in any of these statuses.
var ActiveOrderStatuses = []OrderStatus{
	OrderCreated,
	OrderPaymentPending,
	OrderPaymentConfirmed,
	OrderFormSent,
	OrderProcessing,
}

// Active reports whether the status belongs to the active set.
func (s OrderStatus) Active() bool {
	for _, a := range ActiveOrderStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// PaymentStatus tracks the payment lifecycle. The only permitted transition
// is pending -> succeeded, exactly once.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentCanceled  PaymentStatus = "canceled"
)

// User is a Telegram user known to the bot.
type User struct {
	ID         int64     `db:"id"`
	TelegramID int64     `db:"telegram_id"`
	Username   string    `db:"username"`
	FirstName  string    `db:"first_name"`
	LastName   string    `db:"last_name"`
	IsAdmin    bool      `db:"is_admin"`
	CreatedAt  time.Time `db:"created_at"`
}

// Order is a purchase of one paid service.
type Order struct {
	ID          int64          `db:"id"`
	UserID      int64          `db:"user_id"`
	ServiceType ServiceType    `db:"service_type"`
	Price       int            `db:"price"`
	FormURL     sql.NullString `db:"form_url"`
	Status      OrderStatus    `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// Payment mirrors one gateway payment tied 1:1 to an order.
type Payment struct {
	ID               int64         `db:"id"`
	OrderID          int64         `db:"order_id"`
	GatewayPaymentID string        `db:"gateway_payment_id"`
	PaymentURL       string        `db:"payment_url"`
	Amount           int           `db:"amount"`
	Status           PaymentStatus `db:"status"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

// FinancialModel is a snapshot of the budget data submitted from the mini-app.
type FinancialModel struct {
	ID             int64          `db:"id"`
	UserID         int64          `db:"user_id"`
	OrderID        sql.NullInt64  `db:"order_id"`
	CurrentBalance int            `db:"current_balance"`
	NextIncome     int            `db:"next_income"`
	NextIncomeDate sql.NullString `db:"next_income_date"`
	Expenses       string         `db:"expenses"`
	Wishes         string         `db:"wishes"`
	TotalExpenses  int            `db:"total_expenses"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}
