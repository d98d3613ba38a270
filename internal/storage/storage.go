package storage

import (
	"context"
	"errors"

	"github.com/MaxAltyn/Cash-Healer/internal/model"
)

var (
	// ErrActiveOrderExists is returned when a user already holds a non-terminal order.
	ErrActiveOrderExists = errors.New("storage: active order already exists")
	// ErrUserNotFound is returned when a user lookup finds no row.
	ErrUserNotFound = errors.New("storage: user not found")
	// ErrOrderNotFound is returned when an order lookup finds no row.
	ErrOrderNotFound = errors.New("storage: order not found")
	// ErrPaymentNotFound is returned when a payment lookup finds no row.
	ErrPaymentNotFound = errors.New("storage: payment not found")
	// ErrStatusConflict is returned by conditional status writes that matched no row.
	ErrStatusConflict = errors.New("storage: status conflict")
)

// UserProfile carries the mutable profile fields for upserts.
type UserProfile struct {
	Username  string
	FirstName string
	LastName  string
}

// NewOrder describes one order+payment pair to persist atomically.
type NewOrder struct {
	UserID           int64
	ServiceType      model.ServiceType
	Price            int
	FormURL          string
	GatewayPaymentID string
	PaymentURL       string
}

// Store is the persistence boundary for users, orders, and payments.
type Store interface {
	// UpsertUser creates or refreshes a user keyed by Telegram id.
	// The admin flag is never touched by the upsert.
	UpsertUser(ctx context.Context, telegramID int64, profile UserProfile) (model.User, error)
	UserByTelegramID(ctx context.Context, telegramID int64) (model.User, error)
	UserByID(ctx context.Context, id int64) (model.User, error)

	// ActiveOrders lists the user's orders in a non-terminal status.
	ActiveOrders(ctx context.Context, userID int64) ([]model.Order, error)

	// CreateOrderWithPayment inserts an order and its payment in one transaction.
	// A second active order for the same user yields ErrActiveOrderExists.
	CreateOrderWithPayment(ctx context.Context, no NewOrder) (model.Order, model.Payment, error)

	OrderByID(ctx context.Context, orderID int64) (model.Order, error)
	PaymentByOrderID(ctx context.Context, orderID int64) (model.Payment, error)

	// UpdateOrderStatusFrom performs a compare-and-set status transition.
	// No row in the expected status yields ErrStatusConflict.
	UpdateOrderStatusFrom(ctx context.Context, orderID int64, from, to model.OrderStatus) error

	// MarkPaymentSucceeded flips a pending payment to succeeded.
	// An already-succeeded payment yields ErrStatusConflict.
	MarkPaymentSucceeded(ctx context.Context, paymentID int64) error

	// PendingReportOrders lists orders awaiting operator action.
	PendingReportOrders(ctx context.Context) ([]model.Order, error)

	// SaveFinancialModel stores or refreshes the user's budget snapshot.
	SaveFinancialModel(ctx context.Context, fm model.FinancialModel) (model.FinancialModel, error)
}
