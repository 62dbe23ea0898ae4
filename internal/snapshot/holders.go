// Package snapshot captures point-in-time holder balances and the asset price.
package snapshot

import (
	"context"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/solana"
)

// HolderSource supplies every owner holding a non-zero balance of the asset.
type HolderSource interface {
	// Holders returns balances aggregated per owner, sorted by address.
	Holders(ctx context.Context) ([]domain.RawHolding, error)

	// Decimals returns the asset's decimal places.
	Decimals(ctx context.Context) (uint8, error)
}

// RPCHolderSource enumerates token accounts of a mint through getProgramAccounts.
type RPCHolderSource struct {
	rpc     solana.RPCClient
	mint    string
	program string
	logger  log.FieldLogger
}

// RPCHolderSourceOptions contains configuration for creating an RPCHolderSource.
type RPCHolderSourceOptions struct {
	RPC          solana.RPCClient
	Mint         string
	TokenProgram string // defaults to the SPL Token program
	Logger       log.FieldLogger
}

// NewRPCHolderSource creates a holder source backed by Solana RPC.
func NewRPCHolderSource(opts RPCHolderSourceOptions) *RPCHolderSource {
	if opts.TokenProgram == "" {
		opts.TokenProgram = solana.TokenProgramID
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	return &RPCHolderSource{
		rpc:     opts.RPC,
		mint:    opts.Mint,
		program: opts.TokenProgram,
		logger:  opts.Logger.WithField("component", "holder_source"),
	}
}

// Holders fetches all token accounts of the mint and sums balances per owner.
// Zero-balance accounts are skipped. Owners that are not on the ed25519 curve
// are flagged ProgramOwned (pools, vaults and other program-derived accounts).
func (s *RPCHolderSource) Holders(ctx context.Context) ([]domain.RawHolding, error) {
	opts := &solana.ProgramAccountsOpts{
		Memcmp: []solana.MemcmpFilter{{Offset: 0, Bytes: s.mint}},
	}
	// Token-2022 accounts carry extensions, so their size varies.
	if s.program == solana.TokenProgramID {
		opts.DataSize = solana.TokenAccountSize
	}

	accounts, err := s.rpc.GetProgramAccounts(ctx, s.program, opts)
	if err != nil {
		return nil, fmt.Errorf("get token accounts: %w", err)
	}

	balances := make(map[string]uint64)
	skipped := 0
	for _, acct := range accounts {
		ta, err := solana.ParseTokenAccount(acct.Account.Data)
		if err != nil {
			return nil, fmt.Errorf("parse token account %s: %w", acct.Pubkey, err)
		}
		if ta.Mint != s.mint {
			skipped++
			continue
		}
		if ta.Amount == 0 {
			continue
		}
		sum := balances[ta.Owner] + ta.Amount
		if sum < ta.Amount {
			return nil, fmt.Errorf("balance overflow for owner %s", ta.Owner)
		}
		balances[ta.Owner] = sum
	}

	holdings := make([]domain.RawHolding, 0, len(balances))
	for owner, amount := range balances {
		holdings = append(holdings, domain.RawHolding{
			Address:      owner,
			RawBalance:   amount,
			ProgramOwned: !solana.IsOnCurve(owner),
		})
	}
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Address < holdings[j].Address
	})

	s.logger.WithFields(log.Fields{
		"accounts": len(accounts),
		"holders":  len(holdings),
		"skipped":  skipped,
	}).Debug("Token accounts aggregated")

	return holdings, nil
}

// Decimals reads the mint account.
func (s *RPCHolderSource) Decimals(ctx context.Context) (uint8, error) {
	info, err := s.rpc.GetAccountInfo(ctx, s.mint)
	if err != nil {
		return 0, fmt.Errorf("get mint account: %w", err)
	}
	if info == nil {
		return 0, fmt.Errorf("%w: mint %s not found", domain.ErrConfiguration, s.mint)
	}
	decimals, err := solana.ParseMintDecimals(info.Data)
	if err != nil {
		return 0, fmt.Errorf("parse mint %s: %w", s.mint, err)
	}
	return decimals, nil
}
