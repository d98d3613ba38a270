package bot

import (
	coreconfig "github.com/MaxAltyn/Cash-Healer/core/config"
	tg "github.com/MaxAltyn/Cash-Healer/core/telegram"
	"github.com/MaxAltyn/Cash-Healer/core/telegram/commands"
	"github.com/MaxAltyn/Cash-Healer/core/telegram/router"
	"github.com/MaxAltyn/Cash-Healer/internal/agent"
	"github.com/MaxAltyn/Cash-Healer/internal/model"
	"github.com/MaxAltyn/Cash-Healer/internal/service"

	tele "gopkg.in/telebot.v4"
)

// Bot wires the sales flows, the admin panel and the agent fallback into
// Telegram routes. All user-facing wording and keyboards live here; the
// service layer only reports semantic outcomes.
type Bot struct {
	svc        *service.Service
	agent      *agent.Client
	adminID    int64
	miniAppURL string
	detoxForm  string
}

// New builds the bot layer on top of the order service and the agent client.
func New(svc *service.Service, ag *agent.Client, cfg *coreconfig.Config) *Bot {
	return &Bot{
		svc:        svc,
		agent:      ag,
		adminID:    cfg.Telegram.AdminID,
		miniAppURL: cfg.Services.Modeling.URL,
		detoxForm:  cfg.Services.Detox.URL,
	}
}

// Registry declares the bot commands.
func (b *Bot) Registry() *tg.Registry {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     b.handleStart,
		Description: "Главное меню",
	})
	reg.RegisterCommand("/admin", commands.Command{
		Handler:     b.handleAdminPanel,
		Description: "Панель администратора",
		AdminOnly:   true,
		Hidden:      true,
	})
	return reg
}

// Routes assembles the full route table for RunTelegram.
func (b *Bot) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       b.adminID,
		OnAdminReject: b.agentTextFallback,
	})
	routes = append(routes, router.CallbackRoute(b.resolveCallback, router.CallbackOptions{
		NotFound: b.agentCallbackFallback,
	}))
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{
		UnknownText: b.agentTextFallback,
	})...)
	return routes
}

// resolveCallback maps a callback payload to its handler. The admin gate on
// report tokens is enforced inside the handler, where the sender is known.
func (b *Bot) resolveCallback(data string) (string, tele.HandlerFunc, bool) {
	a := ParseAction(data, true)
	switch a.Kind {
	case ActionOrderDetox:
		return "order_detox", b.orderHandler(model.ServiceDetox), true
	case ActionOrderModeling:
		return "order_modeling", b.orderHandler(model.ServiceModeling), true
	case ActionConfirmPayment:
		return "confirm_payment", b.confirmHandler(a), true
	case ActionSendReport:
		return "send_report", b.sendReportHandler(a), true
	}
	return "", nil, false
}
