package solana

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// Balance is an account lamport balance at a slot.
type Balance struct {
	Lamports uint64
	Slot     int64
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// ProgramAccount is one entry of getProgramAccounts.
type ProgramAccount struct {
	Pubkey  string
	Account AccountInfo
}

// ProgramAccountsOpts filters getProgramAccounts results server side.
type ProgramAccountsOpts struct {
	DataSize int // 0 disables the size filter
	Memcmp   []MemcmpFilter
}

// MemcmpFilter matches base58 bytes at an offset of the account data.
type MemcmpFilter struct {
	Offset int
	Bytes  string
}
