package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		isAdmin bool
		want    Action
	}{
		{
			name: "detox order token",
			data: "order_detox",
			want: Action{Kind: ActionOrderDetox},
		},
		{
			name: "modeling order token",
			data: "order_modeling",
			want: Action{Kind: ActionOrderModeling},
		},
		{
			name: "payment token",
			data: "payment_7_2f1c8a9b",
			want: Action{Kind: ActionConfirmPayment, OrderID: 7, PaymentID: "2f1c8a9b"},
		},
		{
			name: "payment id with underscores stays intact",
			data: "payment_42_abc_def-123",
			want: Action{Kind: ActionConfirmPayment, OrderID: 42, PaymentID: "abc_def-123"},
		},
		{
			name: "payment token without id part",
			data: "payment_42_",
			want: Action{Kind: ActionFallback},
		},
		{
			name: "payment token with non-numeric order",
			data: "payment_x_abc",
			want: Action{Kind: ActionFallback},
		},
		{
			name:    "report token for admin",
			data:    "send_report_15",
			isAdmin: true,
			want:    Action{Kind: ActionSendReport, OrderID: 15},
		},
		{
			name: "report token for regular user falls through",
			data: "send_report_15",
			want: Action{Kind: ActionFallback},
		},
		{
			name:    "report token with trailing garbage",
			data:    "send_report_15_x",
			isAdmin: true,
			want:    Action{Kind: ActionFallback},
		},
		{
			name: "free-form payload",
			data: "hello there",
			want: Action{Kind: ActionFallback},
		},
		{
			name: "empty payload",
			data: "",
			want: Action{Kind: ActionFallback},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAction(tt.data, tt.isAdmin))
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	token := PaymentToken(9, "pay_id_with_underscores")
	a := ParseAction(token, false)
	assert.Equal(t, Action{Kind: ActionConfirmPayment, OrderID: 9, PaymentID: "pay_id_with_underscores"}, a)

	report := ReportToken(31)
	assert.Equal(t, Action{Kind: ActionSendReport, OrderID: 31}, ParseAction(report, true))
}
