package solana

import "context"

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// GetBalance retrieves the lamport balance of an account with the slot it was read at.
	GetBalance(ctx context.Context, address string) (*Balance, error)

	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTransaction retrieves a transaction by signature.
	// Returns nil if the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves account info by public key.
	// Returns nil if the account is not found.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetProgramAccounts retrieves all accounts owned by a program matching the filters.
	GetProgramAccounts(ctx context.Context, program string, opts *ProgramAccountsOpts) ([]ProgramAccount, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreBalances       []uint64
	PostBalances      []uint64
	LoadedWritable    []string
	LoadedReadonly    []string
	InnerInstructions []Instruction
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []Instruction
}

// Instruction is a compiled instruction referencing the account key list.
type Instruction struct {
	ProgramIDIndex int
	Accounts       []int
}

// Failed reports whether the transaction executed with an error.
func (tx *Transaction) Failed() bool {
	return tx.Meta != nil && tx.Meta.Err != nil
}

// AccountKeys returns the full account list: static keys followed by
// writable and readonly keys loaded from lookup tables.
// Balance arrays in the meta are indexed by this list.
func (tx *Transaction) AccountKeys() []string {
	if tx.Message == nil {
		return nil
	}
	keys := append([]string(nil), tx.Message.AccountKeys...)
	if tx.Meta != nil {
		keys = append(keys, tx.Meta.LoadedWritable...)
		keys = append(keys, tx.Meta.LoadedReadonly...)
	}
	return keys
}

// BalanceDelta returns postBalance - preBalance for address.
// ok is false if the address is not part of the transaction.
func (tx *Transaction) BalanceDelta(address string) (delta int64, ok bool) {
	if tx.Meta == nil {
		return 0, false
	}
	for i, key := range tx.AccountKeys() {
		if key != address {
			continue
		}
		if i >= len(tx.Meta.PreBalances) || i >= len(tx.Meta.PostBalances) {
			return 0, false
		}
		return int64(tx.Meta.PostBalances[i]) - int64(tx.Meta.PreBalances[i]), true
	}
	return 0, false
}

// ProgramIDs returns the distinct programs invoked by top-level and inner instructions.
func (tx *Transaction) ProgramIDs() []string {
	keys := tx.AccountKeys()
	seen := make(map[string]bool)
	var ids []string
	add := func(ins []Instruction) {
		for _, in := range ins {
			if in.ProgramIDIndex < 0 || in.ProgramIDIndex >= len(keys) {
				continue
			}
			id := keys[in.ProgramIDIndex]
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if tx.Message != nil {
		add(tx.Message.Instructions)
	}
	if tx.Meta != nil {
		add(tx.Meta.InnerInstructions)
	}
	return ids
}
