package domain

import (
	"context"
	"time"
)

// TransferRequest is a signed value transfer submitted to the ledger
// network on behalf of a bet.
type TransferRequest struct {
	From   string
	To     string
	Amount float64
	Memo   string
}

// Receipt identifies a submitted transfer pending confirmation.
type Receipt struct {
	Signature   string
	SubmittedAt time.Time
}

// TxStatus is the confirmation outcome of a submitted transfer.
type TxStatus string

const (
	TxCommitted TxStatus = "committed"
	TxFailed    TxStatus = "failed"
	TxPending   TxStatus = "pending"
)

// AccountUpdate is a raw account-change notification from the ledger
// network. Data carries the account's binary payload.
type AccountUpdate struct {
	Account   string
	Data      []byte
	Slot      uint64
	Timestamp time.Time
}

// Subscription is a handle to a push-based notification stream.
// Unsubscribe must be idempotent.
type Subscription interface {
	Unsubscribe() error
}

// LedgerClient is the external ledger/network collaborator. All operations
// are fallible, asynchronous, and safe to retry at the caller's discretion.
type LedgerClient interface {
	GetBalance(ctx context.Context, account string) (float64, error)
	Submit(ctx context.Context, req TransferRequest) (Receipt, error)
	Confirm(ctx context.Context, receipt Receipt) (TxStatus, error)
	OnAccountChange(ctx context.Context, account string, fn func(AccountUpdate)) (Subscription, error)
}
