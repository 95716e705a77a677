package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Quote is the result of pricing a subtotal against an optional rule.
type Quote struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Applied reports whether the quote carries a positive discount. A rule
// that matched but failed its min-order gate yields Applied() == false;
// callers surface that as "coupon not applicable", which is distinct
// from "invalid or expired" (the rule was never found at all).
func (q Quote) Applied() bool {
	return q.Discount.IsPositive()
}

// Price computes the discount for the given subtotal. rule may be nil,
// in which case the discount is zero.
//
// A PERCENT rule takes value% of the subtotal, clamped to
// MaxDiscountAmount when that cap is positive. A FIXED rule takes the
// rule value. Either way the discount never exceeds the subtotal, so
// the total cannot go negative. Amounts are rounded to 2 decimal places.
func Price(subtotal decimal.Decimal, rule *Rule) Quote {
	discount := decimal.Zero

	if rule != nil && subtotal.GreaterThanOrEqual(rule.MinOrderAmount) {
		switch rule.Type {
		case DiscountPercent:
			discount = subtotal.Mul(rule.Value).Div(hundred)
			if rule.MaxDiscountAmount.IsPositive() {
				discount = decimal.Min(discount, rule.MaxDiscountAmount)
			}
		case DiscountFixed:
			discount = rule.Value
		}
		discount = decimal.Min(discount, subtotal)
	}

	discount = discount.Round(2)
	return Quote{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal.Sub(discount).Round(2),
	}
}
