package address

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested address does not exist or is
// not owned by the requesting user.
var ErrNotFound = errors.New("address not found")

// Address is a saved shipping address. Orders snapshot these fields at
// placement time; later edits to the address never touch past orders.
type Address struct {
	ID       int64
	UserID   int64
	FullName string
	Phone    string
	Line1    string
	Line2    string
	City     string
	State    string
	Pincode  string
}

// ShippingLine joins the address lines into the single shipping_address
// value stored on an order.
func (a Address) ShippingLine() string {
	if a.Line2 == "" {
		return a.Line1
	}
	return a.Line1 + ", " + a.Line2
}

// Repository defines read operations for saved addresses. Find is
// ownership-scoped: an address belonging to another user is not found.
type Repository interface {
	Find(ctx context.Context, id, userID int64) (*Address, error)
}
