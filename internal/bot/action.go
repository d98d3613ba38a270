package bot

import (
	"fmt"
	"regexp"
	"strconv"
)

// ActionKind enumerates the structured actions encoded in callback tokens.
type ActionKind int

const (
	// ActionFallback routes the update to the conversational agent.
	ActionFallback ActionKind = iota
	// ActionOrderDetox starts a detox purchase.
	ActionOrderDetox
	// ActionOrderModeling starts a modeling purchase.
	ActionOrderModeling
	// ActionConfirmPayment checks a payment and delivers the service.
	ActionConfirmPayment
	// ActionSendReport dispatches a prepared report (admin only).
	ActionSendReport
)

// Action is the decoded routing decision for one callback payload.
type Action struct {
	Kind      ActionKind
	OrderID   int64
	PaymentID string
}

const (
	tokenOrderDetox    = "order_detox"
	tokenOrderModeling = "order_modeling"
)

// The payment capture is greedy so gateway ids containing underscores
// survive the round trip intact.
var (
	paymentTokenRe = regexp.MustCompile(`^payment_(\d+)_(.+)$`)
	reportTokenRe  = regexp.MustCompile(`^send_report_(\d+)$`)
)

// PaymentToken encodes the confirm-payment button payload.
func PaymentToken(orderID int64, gatewayPaymentID string) string {
	return fmt.Sprintf("payment_%d_%s", orderID, gatewayPaymentID)
}

// ReportToken encodes the admin send-report button payload.
func ReportToken(orderID int64) string {
	return fmt.Sprintf("send_report_%d", orderID)
}

// ParseAction decodes a callback payload. isAdmin gates the report token:
// a non-admin pressing (or forging) it falls through to the agent.
func ParseAction(data string, isAdmin bool) Action {
	switch data {
	case tokenOrderDetox:
		return Action{Kind: ActionOrderDetox}
	case tokenOrderModeling:
		return Action{Kind: ActionOrderModeling}
	}

	if m := paymentTokenRe.FindStringSubmatch(data); m != nil {
		orderID, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			return Action{Kind: ActionConfirmPayment, OrderID: orderID, PaymentID: m[2]}
		}
	}

	if m := reportTokenRe.FindStringSubmatch(data); m != nil && isAdmin {
		orderID, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			return Action{Kind: ActionSendReport, OrderID: orderID}
		}
	}

	return Action{Kind: ActionFallback}
}
