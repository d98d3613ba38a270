package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MaxAltyn/Cash-Healer/core/logger"
	tghelpers "github.com/MaxAltyn/Cash-Healer/core/telegram/helpers"
	"github.com/MaxAltyn/Cash-Healer/core/telegram/keyboard"
	"github.com/MaxAltyn/Cash-Healer/internal/model"
	"github.com/MaxAltyn/Cash-Healer/internal/service"

	tele "gopkg.in/telebot.v4"
)

func profileFrom(u *tele.User) service.Profile {
	if u == nil {
		return service.Profile{}
	}
	return service.Profile{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// ensureUser upserts the sender before any flow touches orders.
func (b *Bot) ensureUser(ctx context.Context, c tele.Context) (model.User, error) {
	sender := c.Sender()
	if sender == nil {
		return model.User{}, fmt.Errorf("bot: update without sender")
	}
	return b.svc.EnsureUser(ctx, sender.ID, profileFrom(sender))
}

func (b *Bot) isAdmin(u model.User) bool {
	return u.IsAdmin || (b.adminID != 0 && u.TelegramID == b.adminID)
}

func (b *Bot) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if _, err := b.ensureUser(ctx, c); err != nil {
		logger.TG.Warn("user upsert failed",
			slog.String("event", "start.upsert"),
			slog.String("err", err.Error()),
		)
	}
	markup := keyboard.RawButtons(
		[]keyboard.RawBtn{{Text: btnOrderDetox, Data: tokenOrderDetox}},
		[]keyboard.RawBtn{{Text: btnOrderModeling, Data: tokenOrderModeling}},
	)
	return tghelpers.SendText(c, msgWelcome, &tele.SendOptions{ReplyMarkup: markup})
}

// orderHandler sells one service.
func (b *Bot) orderHandler(st model.ServiceType) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		user, err := b.ensureUser(ctx, c)
		if err != nil {
			return tghelpers.SendText(c, msgOrderCreateFailed)
		}

		res, err := b.svc.CreateOrder(ctx, user, st)
		switch {
		case errors.Is(err, service.ErrActiveOrder):
			return tghelpers.SendText(c, msgActiveOrder)
		case errors.Is(err, service.ErrGatewayUnavailable):
			return tghelpers.SendText(c, msgPaymentCreateFailed)
		case err != nil:
			return tghelpers.SendText(c, msgOrderCreateFailed)
		}

		markup := keyboard.RawButtons([]keyboard.RawBtn{{
			Text: btnPaid,
			Data: PaymentToken(res.Order.ID, res.Payment.GatewayPaymentID),
		}})
		return tghelpers.SendText(c, orderCreatedText(res.Order, res.Payment.PaymentURL),
			&tele.SendOptions{ReplyMarkup: markup})
	}
}

// confirmHandler checks the payment and delivers the purchased service.
func (b *Bot) confirmHandler(a Action) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		user, err := b.ensureUser(ctx, c)
		if err != nil {
			return tghelpers.SendText(c, msgGenericError)
		}

		res, err := b.svc.ConfirmPayment(ctx, user, a.OrderID, a.PaymentID)
		if err != nil {
			var incident *service.IncidentError
			switch {
			case errors.Is(err, service.ErrOrderNotFound):
				return tghelpers.SendText(c, msgOrderNotFound)
			case errors.As(err, &incident):
				return tghelpers.SendText(c, incidentText(incident.Code))
			case errors.Is(err, service.ErrDeliveryFailed):
				return tghelpers.SendText(c, msgPaymentStuck)
			default:
				return tghelpers.SendText(c, msgGenericError)
			}
		}

		if res.Outcome == service.ConfirmNotPaid {
			return tghelpers.SendText(c, msgPaymentNotPaid)
		}
		// ConfirmAlreadyDone re-sends the materials, keeping the button
		// safe to press twice.
		return b.deliver(c, user, res.Order)
	}
}

func (b *Bot) deliver(c tele.Context, user model.User, order model.Order) error {
	switch order.ServiceType {
	case model.ServiceDetox:
		formURL := b.detoxForm
		if order.FormURL.Valid && order.FormURL.String != "" {
			formURL = order.FormURL.String
		}
		return tghelpers.SendText(c, detoxConfirmedText(formURL))
	case model.ServiceModeling:
		url := fmt.Sprintf("%s?user_id=%d&order_id=%d", b.miniAppURL, user.TelegramID, order.ID)
		return tghelpers.SendText(c, msgModelingConfirmed,
			&tele.SendOptions{ReplyMarkup: keyboard.WebAppButton(btnOpenMiniApp, url)})
	}
	return tghelpers.SendText(c, msgGenericError)
}

func (b *Bot) handleAdminPanel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	user, err := b.ensureUser(ctx, c)
	if err != nil || !b.isAdmin(user) {
		return b.agentTextFallback(c)
	}

	orders, err := b.svc.PendingOrders(ctx)
	if err != nil {
		return tghelpers.SendText(c, msgGenericError)
	}
	if len(orders) == 0 {
		return tghelpers.SendText(c, msgAdminEmpty)
	}

	rows := make([][]keyboard.RawBtn, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []keyboard.RawBtn{{
			Text: adminPanelButtonText(o),
			Data: ReportToken(o.ID),
		}})
	}
	return tghelpers.SendMD(c, msgAdminPanel, keyboard.RawButtons(rows...))
}

func (b *Bot) sendReportHandler(a Action) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		user, err := b.ensureUser(ctx, c)
		if err != nil || !b.isAdmin(user) {
			return b.agentCallbackFallback(c)
		}

		res, err := b.svc.SendReport(ctx, a.OrderID)
		if err != nil {
			return tghelpers.SendText(c, reportSendFailedText(err))
		}

		if res.CustomerNotified {
			_, sendErr := c.Bot().Send(tele.ChatID(res.CustomerChatID), reportReadyCustomerText(res.Order.ID))
			if sendErr != nil {
				logger.TG.Warn("customer notify failed",
					slog.String("event", "report.notify"),
					slog.Int64("order_id", res.Order.ID),
					slog.Int64("chat_id", res.CustomerChatID),
					slog.String("err", sendErr.Error()),
				)
			}
		}
		return tghelpers.SendText(c, reportSentAdminText(res.Order.ID))
	}
}
