package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// PaymentMethod identifies how an order is paid.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "Online"
)

// PaymentStatus tracks the payment axis of an order, independently of
// fulfilment status.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

// Status tracks the fulfilment axis of an order.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusConfirmed  Status = "Confirmed"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

// Cancellable reports whether an order in this status may still be
// cancelled by the customer.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// ErrNotFound is returned when a requested order does not exist or is
// not visible to the requesting user.
var ErrNotFound = errors.New("order not found")

// InsufficientStockError is returned when the conditional stock
// decrement inside an order transaction affects no rows: another
// checkout won the remaining stock between validation and commit.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d at commit time", e.ProductID)
}

// CartInvalidError carries the advisory validation messages that
// blocked a placement.
type CartInvalidError struct {
	Problems []string
}

func (e *CartInvalidError) Error() string {
	return fmt.Sprintf("cart is not valid: %d problem(s)", len(e.Problems))
}

// ShippingInfo is the address snapshot stored on an order.
type ShippingInfo struct {
	Name    string
	Phone   string
	Address string
	City    string
	State   string
	Pincode string
}

// Order is a placed customer order. Number is globally unique and
// immutable once assigned. TotalAmount always equals
// Subtotal - DiscountAmount + ShippingCharge.
type Order struct {
	ID             int64
	UserID         int64
	Number         string
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingCharge decimal.Decimal
	TotalAmount    decimal.Decimal
	PaymentMethod  PaymentMethod
	PaymentStatus  PaymentStatus
	Status         Status
	CouponID       *int64
	CouponCode     string

	// StockCommitted records whether product stock has been decremented
	// for this order. True from creation on the COD path, set by
	// ConfirmPaid on the online path. Cancellation restores stock only
	// when it was committed.
	StockCommitted bool

	Shipping  ShippingInfo
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is an immutable point-in-time snapshot of a product line,
// decoupled from later product edits or deletion.
type Item struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Price       decimal.Decimal
	Quantity    int
	Subtotal    decimal.Decimal
}

// Page is one page of a user's order history.
type Page struct {
	Orders     []Order
	Total      int
	PerPage    int
	Page       int
	TotalPages int
}

// Repository defines persistence for orders. The Create and lifecycle
// methods are transactional: any failure rolls the whole operation back
// and no partial state is ever visible to readers.
type Repository interface {
	// CreateCommitted inserts the order and its items, decrements
	// product stock conditionally per item, and records the coupon
	// redemption when the order carries one. Sets o.ID.
	CreateCommitted(ctx context.Context, o *Order, items []Item) error
	// CreatePending inserts the order and its items without touching
	// stock; the decrement is deferred to ConfirmPaid. Sets o.ID.
	CreatePending(ctx context.Context, o *Order, items []Item) error
	// ConfirmPaid transitions payment_status Pending -> Paid and the
	// order to Confirmed, committing stock where still deferred. It is
	// a compare-and-set: when the order was already Paid it returns
	// (false, nil) and performs no mutation.
	ConfirmPaid(ctx context.Context, orderID int64) (applied bool, err error)
	// Cancel sets the order to Cancelled and restores committed stock.
	// Returns (false, nil) when the order is not cancellable or not
	// owned by userID.
	Cancel(ctx context.Context, orderID, userID int64) (cancelled bool, err error)
	// MarkPaymentFailed records a failed payment attempt. The order
	// stays Pending and unconfirmed.
	MarkPaymentFailed(ctx context.Context, orderID int64) error

	// GetByID and GetByNumber scope the lookup to userID; a zero userID
	// skips the ownership filter (webhook confirmation has no user).
	GetByID(ctx context.Context, id, userID int64) (*Order, error)
	GetByNumber(ctx context.Context, number string, userID int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64, page, perPage int) (*Page, error)
	Items(ctx context.Context, orderID int64) ([]Item, error)
}
