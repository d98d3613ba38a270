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

// ConfirmOutcome classifies a confirmation attempt that produced no error.
type ConfirmOutcome int

const (
	// ConfirmOK means the payment was applied and the order advanced.
	ConfirmOK ConfirmOutcome = iota
	// ConfirmAlreadyDone means a previous confirmation already succeeded.
	ConfirmAlreadyDone
	// ConfirmNotPaid means the gateway does not consider the payment paid yet.
	ConfirmNotPaid
)

// ConfirmResult is the outcome of a confirmation attempt.
type ConfirmResult struct {
	Outcome ConfirmOutcome
	Order   model.Order
}

// ConfirmPayment reconciles gateway truth with the order and payment rows.
//
// Order.status is written before Payment.status so the replay guard, which is
// keyed off Payment.status, stays the last write. A crash between the two
// writes leaves the order roll-backable; the reverse ordering would mark the
// payment succeeded against a wrong order state, which is the worse failure
// and is avoided by always attempting the rollback.
func (s *Service) ConfirmPayment(ctx context.Context, user model.User, orderID int64, paymentID string) (ConfirmResult, error) {
	order, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return ConfirmResult{}, ErrOrderNotFound
		}
		return ConfirmResult{}, fmt.Errorf("%w: order lookup: %v", ErrConfirmRetryable, err)
	}

	payment, err := s.store.PaymentByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, storage.ErrPaymentNotFound) {
		return ConfirmResult{}, fmt.Errorf("%w: payment lookup: %v", ErrConfirmRetryable, err)
	}
	// A missing payment row and a wrong gateway id are the same thing to the
	// caller: the token does not match anything we sold.
	if err != nil || payment.GatewayPaymentID != paymentID {
		logger.SVCPayments.Warn("payment token rejected",
			slog.String("event", "payment.token_mismatch"),
			slog.Int64("order_id", orderID),
			slog.Int64("user_id", user.ID),
			slog.String("token_payment_id", logger.SanitizeLimit(paymentID, 64)),
		)
		return ConfirmResult{}, ErrTokenMismatch
	}

	// Replay guard: a payment already applied is never reprocessed.
	if payment.Status == model.PaymentSucceeded {
		s.metrics.RecordPaymentReplay()
		logger.SVCPayments.Info("confirmation replay absorbed",
			slog.String("event", "payment.replay"),
			slog.Int64("order_id", orderID),
			slog.Int64("payment_id", payment.ID),
		)
		// A failed delivery write leaves the order at payment_confirmed with
		// the payment settled; finish that transition on replay, best effort.
		if order.Status == model.OrderPaymentConfirmed {
			final := deliveredStatus(order.ServiceType)
			if err := s.store.UpdateOrderStatusFrom(ctx, orderID, model.OrderPaymentConfirmed, final); err == nil {
				order.Status = final
				logger.SVCPayments.Info("stuck delivery healed on replay",
					slog.String("event", "payment.delivery_healed"),
					slog.Int64("order_id", orderID),
					slog.String("status", string(final)),
				)
			}
		}
		return ConfirmResult{Outcome: ConfirmAlreadyDone, Order: order}, nil
	}

	live, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("%w: gateway status: %v", ErrConfirmRetryable, err)
	}
	if !live.Paid {
		logger.SVCPayments.Debug("payment not settled yet",
			slog.String("event", "payment.pending"),
			slog.Int64("order_id", orderID),
			slog.String("gateway_status", live.Status),
		)
		return ConfirmResult{Outcome: ConfirmNotPaid, Order: order}, nil
	}

	if err := s.store.UpdateOrderStatusFrom(ctx, orderID, model.OrderPaymentPending, model.OrderPaymentConfirmed); err != nil {
		// Nothing durable changed: the payment row is still pending.
		return ConfirmResult{}, fmt.Errorf("%w: order advance: %v", ErrConfirmRetryable, err)
	}

	if err := s.store.MarkPaymentSucceeded(ctx, payment.ID); err != nil {
		return ConfirmResult{}, s.compensate(ctx, orderID, payment.ID, err)
	}

	s.metrics.RecordPaymentConfirmed(string(order.ServiceType))
	logger.SVCPayments.Info("payment confirmed",
		slog.String("event", "payment.confirmed"),
		slog.Int64("order_id", orderID),
		slog.Int64("payment_id", payment.ID),
		slog.String("service_type", string(order.ServiceType)),
	)

	final := deliveredStatus(order.ServiceType)
	if err := s.store.UpdateOrderStatusFrom(ctx, orderID, model.OrderPaymentConfirmed, final); err != nil {
		// Payment state is durably correct; only delivery bookkeeping lagged.
		logger.SVCPayments.Error("order delivery advance failed",
			slog.String("event", "payment.delivery_stuck"),
			slog.Int64("order_id", orderID),
			slog.String("target_status", string(final)),
			slog.String("err", err.Error()),
		)
		return ConfirmResult{}, ErrDeliveryFailed
	}
	order.Status = final

	if final == model.OrderCompleted {
		s.metrics.RecordOrderCompleted(string(order.ServiceType))
	}
	return ConfirmResult{Outcome: ConfirmOK, Order: order}, nil
}

// deliveredStatus is the order status after the paid materials are handed out.
func deliveredStatus(st model.ServiceType) model.OrderStatus {
	if st == model.ServiceModeling {
		return model.OrderCompleted
	}
	return model.OrderFormSent
}

// compensate rolls the order back to payment_pending after a failed payment write.
func (s *Service) compensate(ctx context.Context, orderID, paymentID int64, cause error) error {
	rollbackErr := s.store.UpdateOrderStatusFrom(ctx, orderID, model.OrderPaymentConfirmed, model.OrderPaymentPending)
	if rollbackErr == nil {
		logger.SVCPayments.Warn("payment write failed, order rolled back",
			slog.String("event", "payment.rollback"),
			slog.Int64("order_id", orderID),
			slog.Int64("payment_id", paymentID),
			slog.String("err", cause.Error()),
		)
		return fmt.Errorf("%w: payment write: %v", ErrConfirmRetryable, cause)
	}

	code := s.incidentCode()
	s.metrics.RecordPaymentIncident()
	logger.SVCPayments.Error("rollback failed, manual intervention required",
		slog.String("event", "payment.incident"),
		slog.String("incident", code),
		slog.Int64("order_id", orderID),
		slog.Int64("payment_id", paymentID),
		slog.String("payment_err", cause.Error()),
		slog.String("rollback_err", rollbackErr.Error()),
	)
	return &IncidentError{Code: code, Err: cause}
}
