package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface used by the watcher.
type RPCClient interface {
	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns (nil, nil) when the transaction is unknown to the node.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves account state by public key.
	// Returns (nil, nil) when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetSignaturesForAddress retrieves signatures mentioning an address,
	// newest first, with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      uint64
	Signature string
	BlockTime int64 // Unix timestamp (seconds), 0 when the node has no estimate
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}

// TransactionMessage contains the static transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// AccountInfo is the state of an on-chain account. Data is base64.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       string
	Executable bool
	RentEpoch  uint64
}

// SignatureInfo is one entry of a getSignaturesForAddress page.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts narrows a getSignaturesForAddress walk. The zero value
// asks for the node's default page.
type SignaturesOpts struct {
	// Before walks signatures older than this one.
	Before string

	// Until stops the walk at this signature.
	Until string

	// Limit caps the page size. The node enforces a maximum of 1000.
	Limit int
}
