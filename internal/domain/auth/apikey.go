package auth

import "context"

// APIKeyInfo holds the identity data for a validated API key. UserID is
// the customer the key acts as; every cart and order operation is
// scoped to it.
type APIKeyInfo struct {
	ID      int64
	UserID  int64
	KeyHash string
	Name    string
}

// Repository provides lookup of API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
