package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrLogNotFound is returned when no payment log row matches a lookup.
var ErrLogNotFound = errors.New("payment log entry not found")

// LogStatus is the outcome recorded for a single gateway interaction.
type LogStatus string

const (
	LogPending LogStatus = "Pending"
	LogSuccess LogStatus = "Success"
	LogFailed  LogStatus = "Failed"
)

// LogEntry is one row of the append-only payment audit trail. Rows are
// written for every gateway interaction (create, verify, webhook
// delivery) and never updated or deleted; a retried webhook appends a
// second Success row while the underlying order mutation applies once.
type LogEntry struct {
	ID            int64
	OrderID       int64
	Method        string
	TransactionID string
	Amount        decimal.Decimal
	Status        LogStatus
	ResponseData  []byte
	CreatedAt     time.Time
}

// LogRepository persists the audit trail.
type LogRepository interface {
	Append(ctx context.Context, e *LogEntry) error
	// OrderIDByTransaction resolves the local order a gateway reference
	// (remote order id or payment id) was logged against.
	OrderIDByTransaction(ctx context.Context, transactionID string) (int64, error)
}
