package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkart/storefront/internal/domain/address"
)

// Ownership is part of the key: another user's address is not found.
const findAddressSQL = `SELECT id, user_id, full_name, phone, address_line1, address_line2,
	city, state, pincode
	FROM addresses WHERE id = $1 AND user_id = $2`

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// Find returns the user's address by id, or address.ErrNotFound.
func (r *AddressRepository) Find(ctx context.Context, id, userID int64) (*address.Address, error) {
	rows, err := r.pool.Query(ctx, findAddressSQL, id, userID)
	if err != nil {
		return nil, fmt.Errorf("finding address %d: %w", id, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("finding address %d: %w", id, err)
	}
	return &a, nil
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var a address.Address
	err := row.Scan(
		&a.ID, &a.UserID, &a.FullName, &a.Phone,
		&a.Line1, &a.Line2, &a.City, &a.State, &a.Pincode,
	)
	return a, err
}
