package stub

import (
	"context"
	"sync"

	"rugwatch/internal/solana"
)

// RPCClient implements solana.RPCClient for testing. It mirrors the real
// client's contract: unknown keys yield (nil, nil), not an error.
type RPCClient struct {
	mu sync.Mutex

	Transactions map[string]*solana.Transaction
	Accounts     map[string]*solana.AccountInfo
	Signatures   map[string][]solana.SignatureInfo

	// Errs injects a failure for a signature or pubkey.
	Errs map[string]error

	// Hangs makes lookups for a key block until the context is done,
	// simulating a slow endpoint.
	Hangs map[string]bool

	calls []string
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Accounts:     make(map[string]*solana.AccountInfo),
		Signatures:   make(map[string][]solana.SignatureInfo),
		Errs:         make(map[string]error),
		Hangs:        make(map[string]bool),
	}
}

// Calls returns the method:key log of every lookup made, in order.
func (c *RPCClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *RPCClient) gate(ctx context.Context, method, key string) error {
	c.mu.Lock()
	c.calls = append(c.calls, method+":"+key)
	hang := c.Hangs[key]
	err := c.Errs[key]
	c.mu.Unlock()

	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	if err := c.gate(ctx, "getTransaction", signature); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Transactions[signature], nil
}

// GetAccountInfo retrieves account state by pubkey from the stub store.
func (c *RPCClient) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	if err := c.gate(ctx, "getAccountInfo", pubkey); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[pubkey], nil
}

// GetSignaturesForAddress retrieves signatures for an address from the stub store.
func (c *RPCClient) GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if err := c.gate(ctx, "getSignaturesForAddress", address); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	sigs := c.Signatures[address]
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		sigs = sigs[:opts.Limit]
	}
	return append([]solana.SignatureInfo(nil), sigs...), nil
}

var _ solana.RPCClient = (*RPCClient)(nil)
