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

// PendingOrders lists orders awaiting the operator's report.
func (s *Service) PendingOrders(ctx context.Context) ([]model.Order, error) {
	orders, err := s.store.PendingReportOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending orders: %w", err)
	}
	return orders, nil
}

// ReportResult carries the report dispatch outcome: the completed order and
// the Telegram chat of its owner, so the caller can notify the customer.
type ReportResult struct {
	Order            model.Order
	CustomerChatID   int64
	CustomerNotified bool
}

// SendReport marks the order completed and resolves the customer to notify.
// The report file itself travels through a side-channel messaging interaction.
func (s *Service) SendReport(ctx context.Context, orderID int64) (ReportResult, error) {
	order, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return ReportResult{}, ErrOrderNotFound
		}
		return ReportResult{}, fmt.Errorf("send report: order lookup: %w", err)
	}

	from := order.Status
	if from != model.OrderFormSent && from != model.OrderProcessing && from != model.OrderPaymentConfirmed {
		return ReportResult{}, fmt.Errorf("send report: order %d not awaiting report (status %s)", orderID, from)
	}
	if err := s.store.UpdateOrderStatusFrom(ctx, orderID, from, model.OrderCompleted); err != nil {
		return ReportResult{}, fmt.Errorf("send report: %w", err)
	}
	order.Status = model.OrderCompleted

	s.metrics.RecordReportSent()
	s.metrics.RecordOrderCompleted(string(order.ServiceType))
	logger.SVCOrders.Info("report dispatched",
		slog.String("event", "order.report_sent"),
		slog.Int64("order_id", orderID),
		slog.String("service_type", string(order.ServiceType)),
	)

	res := ReportResult{Order: order}
	owner, err := s.store.UserByID(ctx, order.UserID)
	if err != nil {
		logger.SVCOrders.Warn("report owner lookup failed",
			slog.String("event", "order.report_owner_missing"),
			slog.Int64("order_id", orderID),
			slog.Int64("user_id", order.UserID),
			slog.String("err", err.Error()),
		)
		return res, nil
	}
	res.CustomerChatID = owner.TelegramID
	res.CustomerNotified = true
	return res, nil
}
