package razorpay

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookEvent(t *testing.T) {
	body := []byte(`{
		"entity": "event",
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_29QQoUBi66xm2f",
					"amount": 18000,
					"currency": "INR",
					"order_id": "order_9A33XWu170gUtm",
					"status": "captured"
				}
			}
		}
	}`)

	ev, err := ParseWebhookEvent(body)
	require.NoError(t, err)

	assert.Equal(t, "payment.captured", ev.Event)
	assert.Equal(t, "pay_29QQoUBi66xm2f", ev.PaymentID)
	assert.Equal(t, "order_9A33XWu170gUtm", ev.OrderRef)
	assert.Equal(t, int64(18000), ev.AmountMinor)
	assert.True(t, ev.Amount().Equal(decimal.RequireFromString("180.00")))
}

func TestParseWebhookEvent_NonPaymentEvent(t *testing.T) {
	body := []byte(`{"event":"refund.created","payload":{"refund":{"entity":{"id":"rfnd_1"}}}}`)

	ev, err := ParseWebhookEvent(body)
	require.NoError(t, err)

	assert.Equal(t, "refund.created", ev.Event)
	assert.Empty(t, ev.PaymentID)
	assert.Empty(t, ev.OrderRef)
}

func TestParseWebhookEvent_Malformed(t *testing.T) {
	_, err := ParseWebhookEvent([]byte(`{"event":`))
	assert.Error(t, err)
}
