package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MaxAltyn/Cash-Healer/core/logger"
	"github.com/MaxAltyn/Cash-Healer/internal/model"
	"github.com/MaxAltyn/Cash-Healer/internal/storage"
)

// CreateResult carries the rows created for a new order.
type CreateResult struct {
	Order   model.Order
	Payment model.Payment
}

// CreateOrder sells one service to the user.
//
// The gateway call happens only after the active-order pre-check passes, so a
// blocked user never produces a gateway-side payment. The order+payment insert
// is the single mutation point: a failure before it leaves no local state, and
// a failure of the insert itself leaves only a gateway payment to reconcile
// manually.
func (s *Service) CreateOrder(ctx context.Context, user model.User, st model.ServiceType) (CreateResult, error) {
	off, err := s.offering(st)
	if err != nil {
		return CreateResult{}, err
	}

	active, err := s.store.ActiveOrders(ctx, user.ID)
	if err != nil {
		return CreateResult{}, fmt.Errorf("create order: %w", err)
	}
	if len(active) > 0 {
		logger.SVCOrders.Debug("active order blocks creation",
			slog.String("event", "order.create.blocked"),
			slog.Int64("user_id", user.ID),
			slog.Int64("active_order_id", active[0].ID),
		)
		return CreateResult{}, ErrActiveOrder
	}

	payment, err := s.gateway.CreatePayment(ctx, off.Price, "Оплата: "+st.Title())
	if err != nil {
		logger.SVCOrders.Warn("gateway payment failed",
			slog.String("event", "order.create.gateway_fail"),
			slog.Int64("user_id", user.ID),
			slog.String("service_type", string(st)),
			slog.String("err", err.Error()),
		)
		return CreateResult{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	formURL := ""
	if st == model.ServiceDetox {
		formURL = off.URL
	}

	order, row, err := s.store.CreateOrderWithPayment(ctx, storage.NewOrder{
		UserID:           user.ID,
		ServiceType:      st,
		Price:            off.Price,
		FormURL:          formURL,
		GatewayPaymentID: payment.ID,
		PaymentURL:       payment.URL,
	})
	if err != nil {
		if errors.Is(err, storage.ErrActiveOrderExists) {
			// Lost the race after the gateway call: the stray gateway payment
			// is the documented reconcilable leak.
			logger.SVCOrders.Warn("insert lost active-order race",
				slog.String("event", "order.create.race"),
				slog.Int64("user_id", user.ID),
				slog.String("gateway_payment_id", payment.ID),
			)
			return CreateResult{}, ErrActiveOrder
		}
		logger.SVCOrders.Error("order insert failed after gateway payment",
			slog.String("event", "order.create.orphan_payment"),
			slog.Int64("user_id", user.ID),
			slog.String("gateway_payment_id", payment.ID),
			slog.String("err", err.Error()),
		)
		return CreateResult{}, fmt.Errorf("create order: %w", err)
	}

	s.metrics.RecordOrderCreated(string(st))
	logger.SVCOrders.Info("order created",
		slog.String("event", "order.create"),
		slog.Int64("order_id", order.ID),
		slog.Int64("user_id", user.ID),
		slog.String("service_type", string(st)),
		slog.Int("price", off.Price),
	)
	return CreateResult{Order: order, Payment: row}, nil
}
