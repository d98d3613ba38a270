package bot

import (
	"fmt"

	"github.com/MaxAltyn/Cash-Healer/internal/model"
)

// All user-facing wording lives here so handlers stay logic-only.

const (
	msgWelcome = "👋 Привет! Я помогу навести порядок в финансах.\n\n" +
		"Выберите услугу:"

	msgActiveOrder = "⏳ У вас уже есть активный заказ. Завершите его, прежде чем создавать новый."

	msgPaymentCreateFailed = "❌ Не удалось создать платёж. Попробуйте позже."
	msgOrderCreateFailed   = "❌ Не удалось создать заказ. Попробуйте позже."
	msgOrderNotFound       = "❌ Заказ не найден."
	msgPaymentNotPaid      = "❌ Оплата ещё не подтверждена. Попробуйте позже."
	msgGenericError        = "❌ Произошла ошибка. Попробуйте позже."
	msgPaymentStuck        = "⚠️ Оплата получена, но выдать материалы не удалось. Нажмите кнопку ещё раз или обратитесь в поддержку."

	msgAdminEmpty = "📭 Нет заказов для обработки."
	msgAdminPanel = "📋 *Панель администратора*\n\nЗаказы, ожидающие отправки отчёта:"

	btnPaid          = "✅ Я оплатил"
	btnOpenMiniApp   = "📊 Открыть калькулятор"
	btnOrderDetox    = "🧹 Финансовый детокс — 450₽"
	btnOrderModeling = "📊 Финансовое моделирование — 350₽"
)

func orderCreatedText(o model.Order, paymentURL string) string {
	return fmt.Sprintf("💳 Заказ №%d создан!\n\nУслуга: %s\nСумма: %d₽\n\n👉 Оплатите:\n%s",
		o.ID, o.ServiceType.Title(), o.Price, paymentURL)
}

func detoxConfirmedText(formURL string) string {
	return fmt.Sprintf("✅ Оплата подтверждена!\n\n📝 Заполните анкету:\n%s", formURL)
}

const msgModelingConfirmed = "✅ Оплата подтверждена!\n\n📊 Откройте приложение для финансового моделирования:"

func incidentText(code string) string {
	return fmt.Sprintf("❌ Произошла ошибка при обработке платежа. Обратитесь в поддержку, код: %s", code)
}

func adminPanelButtonText(o model.Order) string {
	return fmt.Sprintf("📤 Заказ #%d - %s", o.ID, o.ServiceType)
}

func reportSentAdminText(orderID int64) string {
	return fmt.Sprintf("✅ Отчёт для заказа #%d отправлен клиенту.", orderID)
}

func reportSendFailedText(err error) string {
	return fmt.Sprintf("❌ Ошибка отправки: %v", err)
}

func reportReadyCustomerText(orderID int64) string {
	return fmt.Sprintf("📄 Ваш отчёт по заказу №%d готов и скоро будет у вас!", orderID)
}
