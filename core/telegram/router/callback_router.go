package router

import (
	"strings"
	"time"

	tg "github.com/MaxAltyn/Cash-Healer/core/telegram"
	"github.com/MaxAltyn/Cash-Healer/core/telegram/middleware"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// CallbackResolver maps a raw callback payload to a named handler.
// ok=false routes the update to the NotFound fallback.
type CallbackResolver func(data string) (name string, h tele.HandlerFunc, ok bool)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the resolver.
// The callback query is answered before dispatch so the client stops spinning.
func CallbackRoute(resolve CallbackResolver, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		cb := c.Callback()
		if cb == nil {
			return nil
		}

		data := strings.TrimSpace(strings.TrimPrefix(cb.Data, "\f"))
		extras := []slog.Attr{slog.String("payload", data)}

		_ = c.Respond()

		name, cbHandler, ok := resolve(data)
		if !ok || cbHandler == nil {
			extras = append(extras, slog.String("reason", "not_found"))
			return handleWithSummary(c, "callback.fallback", start, "", "", func() error {
				if opts.NotFound != nil {
					return opts.NotFound(c)
				}
				return nil
			}, extras...)
		}

		return handleWithSummary(c, "callback."+normalizeHandlerName(name), start, "", "", func() error {
			return cbHandler(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
