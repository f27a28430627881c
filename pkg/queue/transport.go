package queue

import "context"

// TransferState marks a terminal transfer outcome
type TransferState string

const (
	TransferComplete TransferState = "complete"
	TransferError    TransferState = "error"
)

// TransferEvent reports the terminal outcome of one transfer, correlated by
// the identifier RequestTransfer returned
type TransferEvent struct {
	ID        string
	State     TransferState
	LocalPath string // set on completion
	Err       error  // set on error
}

// Transport starts asynchronous transfers and reports one terminal event per
// transfer. Implementations must auto-rename on filename collision rather
// than overwrite
type Transport interface {
	// RequestTransfer begins a transfer and returns its correlation id.
	// Requests the transport rejects synchronously (malformed URL, robots
	// denial) fail fast with an error and produce no event
	RequestTransfer(ctx context.Context, url, filename string) (transferID string, err error)

	// Subscribe registers a callback for terminal events. The returned
	// function removes the subscription; callers filter events by id
	Subscribe(fn func(TransferEvent)) (unsubscribe func())
}
