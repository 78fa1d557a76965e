package solana

import "context"

// LogStream is a single logs subscription over one websocket connection.
// Implementations do not reconnect: when the transport fails, Recv returns
// an error and the stream is dead. Lifecycle ownership (redial, resubscribe,
// backoff) belongs to the caller.
type LogStream interface {
	// Subscribe registers the logs subscription on the connection.
	// Must be called once before Recv.
	Subscribe(ctx context.Context, filter LogsFilter) error

	// Recv blocks until the next notification, a transport error, or ctx
	// cancellation.
	Recv(ctx context.Context) (LogNotification, error)

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// DialFunc opens a fresh LogStream. Injected so reconnection logic can be
// exercised against fakes.
type DialFunc func(ctx context.Context) (LogStream, error)

// LogsFilter defines the subscription filter for logs.
type LogsFilter struct {
	// Mentions filters to transactions that mention this program ID.
	Mentions []string

	// Commitment level for notifications; defaults to "confirmed".
	Commitment string
}

// LogNotification is one raw log record from the subscription.
type LogNotification struct {
	Signature string
	Slot      uint64
	Logs      []string
	Err       interface{} // non-nil when the observed transaction failed
}
