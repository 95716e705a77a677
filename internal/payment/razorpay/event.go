package razorpay

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// WebhookEvent is the handful of fields the confirmation path needs out
// of a webhook delivery. Everything else in the payload is skipped, not
// validated: the signature over the raw body is the authenticity check.
type WebhookEvent struct {
	Event       string
	PaymentID   string
	AmountMinor int64
	// OrderRef is the gateway-side order id the payment was captured
	// against; it links the delivery back to the pending payment log.
	OrderRef string
}

// Amount converts the minor-unit amount to a decimal major-unit value.
func (e WebhookEvent) Amount() decimal.Decimal {
	return decimal.New(e.AmountMinor, -2)
}

// ParseWebhookEvent extracts payload.payment.entity.{id, amount,
// order_id} and the top-level event name from a webhook body.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent

	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "event":
			s, err := d.Str()
			ev.Event = s
			return err
		case "payload":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "payment" {
					return d.Skip()
				}
				return d.Obj(func(d *jx.Decoder, key string) error {
					if key != "entity" {
						return d.Skip()
					}
					return parsePaymentEntity(d, &ev)
				})
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode webhook event")
	}

	return &ev, nil
}

func parsePaymentEntity(d *jx.Decoder, ev *WebhookEvent) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			s, err := d.Str()
			ev.PaymentID = s
			return err
		case "amount":
			n, err := d.Int64()
			ev.AmountMinor = n
			return err
		case "order_id":
			s, err := d.Str()
			ev.OrderRef = s
			return err
		default:
			return d.Skip()
		}
	})
}
