package stub

import (
	"context"
	"sync"

	"holder-rewards/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
// Fields may be mutated between calls under the client's lock via the Set/Add helpers.
type RPCClient struct {
	mu sync.Mutex

	Balances        map[string]solana.Balance
	Transactions    map[string]*solana.Transaction
	Signatures      map[string][]solana.SignatureInfo
	Accounts        map[string]*solana.AccountInfo
	ProgramAccounts map[string][]solana.ProgramAccount

	// Err, when set, is returned by every call.
	Err error
	// SignaturesErr, when set, is returned by GetSignaturesForAddress.
	SignaturesErr error

	// OnSignatures runs before GetSignaturesForAddress returns, outside the lock.
	OnSignatures func(ctx context.Context)

	calls map[string]int
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:        make(map[string]solana.Balance),
		Transactions:    make(map[string]*solana.Transaction),
		Signatures:      make(map[string][]solana.SignatureInfo),
		Accounts:        make(map[string]*solana.AccountInfo),
		ProgramAccounts: make(map[string][]solana.ProgramAccount),
		calls:           make(map[string]int),
	}
}

func (c *RPCClient) record(method string) error {
	c.calls[method]++
	return c.Err
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// GetBalance returns the stored balance for an address, zero if unknown.
func (c *RPCClient) GetBalance(_ context.Context, address string) (*solana.Balance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("getBalance"); err != nil {
		return nil, err
	}
	bal := c.Balances[address]
	return &bal, nil
}

// GetTransaction retrieves a transaction by signature from the stub store, nil if unknown.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("getTransaction"); err != nil {
		return nil, err
	}
	return c.Transactions[signature], nil
}

// GetSignaturesForAddress retrieves signatures for an address from the stub store.
func (c *RPCClient) GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.Lock()
	hook := c.OnSignatures
	c.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("getSignaturesForAddress"); err != nil {
		return nil, err
	}
	if c.SignaturesErr != nil {
		return nil, c.SignaturesErr
	}
	sigs := c.Signatures[address]

	// Apply limit if specified
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return append([]solana.SignatureInfo(nil), sigs[:opts.Limit]...), nil
	}

	return append([]solana.SignatureInfo(nil), sigs...), nil
}

// GetAccountInfo returns the stored account, nil if unknown.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("getAccountInfo"); err != nil {
		return nil, err
	}
	return c.Accounts[pubkey], nil
}

// GetProgramAccounts returns the stored accounts of a program. Filters are ignored.
func (c *RPCClient) GetProgramAccounts(_ context.Context, program string, _ *solana.ProgramAccountsOpts) ([]solana.ProgramAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("getProgramAccounts"); err != nil {
		return nil, err
	}
	return append([]solana.ProgramAccount(nil), c.ProgramAccounts[program]...), nil
}

// SetBalance sets the balance returned for an address.
func (c *RPCClient) SetBalance(address string, lamports uint64, slot int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[address] = solana.Balance{Lamports: lamports, Slot: slot}
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// AddSignatures prepends signatures for an address, newest first like the RPC.
func (c *RPCClient) AddSignatures(address string, sigs ...solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Signatures[address] = append(append([]solana.SignatureInfo(nil), sigs...), c.Signatures[address]...)
}

// SetAccount sets the account info returned for a public key.
func (c *RPCClient) SetAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = info
}

// AddProgramAccount adds an account owned by program.
func (c *RPCClient) AddProgramAccount(program string, acct solana.ProgramAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ProgramAccounts[program] = append(c.ProgramAccounts[program], acct)
}

// SetErr sets the error returned by every call.
func (c *RPCClient) SetErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Err = err
}

// TransferTx builds a successful transaction crediting lamports to dest via program.
func TransferTx(signature, source, dest, program string, lamports uint64, slot int64) *solana.Transaction {
	const sourceStart = 1_000_000_000_000
	return &solana.Transaction{
		Slot:      slot,
		Signature: signature,
		Meta: &solana.TransactionMeta{
			PreBalances:  []uint64{sourceStart, 0, 1},
			PostBalances: []uint64{sourceStart - lamports, lamports, 1},
			LogMessages:  []string{"Program " + program + " invoke [1]", "Program " + program + " success"},
		},
		Message: &solana.TransactionMessage{
			AccountKeys:  []string{source, dest, program},
			Instructions: []solana.Instruction{{ProgramIDIndex: 2, Accounts: []int{0, 1}}},
		},
	}
}
