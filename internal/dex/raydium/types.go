// internal/dex/raydium/types.go
package raydium

import (
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
)

// RoleMap is the transient result of decoding an initialize2 instruction:
// every referenced account resolved to its semantic role, plus the initial
// reserves read from the payload. After normalization the quote side is
// always wrapped SOL.
type RoleMap struct {
	ProgramID solana.PublicKey

	PoolID       solana.PublicKey
	Authority    solana.PublicKey
	OpenOrders   solana.PublicKey
	TargetOrders solana.PublicKey
	LPMint       solana.PublicKey

	BaseMint   solana.PublicKey
	QuoteMint  solana.PublicKey
	BaseVault  solana.PublicKey
	QuoteVault solana.PublicKey

	MarketProgramID  solana.PublicKey
	MarketID         solana.PublicKey
	MarketBaseVault  solana.PublicKey
	MarketQuoteVault solana.PublicKey
	MarketAuthority  solana.PublicKey

	// Initial reserves in smallest units.
	InitBaseReserve  uint64
	InitQuoteReserve uint64
}

// PoolRecord is the fully resolved, immutable description of one pool:
// the role map enriched with on-chain state, market side-accounts, derived
// addresses and the precomputed economic constants. Construct it through
// the fetcher's builder only; never mutate it afterwards.
type PoolRecord struct {
	RoleMap

	// Decoded from the liquidity state account.
	WithdrawQueue solana.PublicKey
	LPVault       solana.PublicKey
	Nonce         uint8
	OpenTime      int64

	// Market side-accounts sliced from the market account.
	MarketEventQueue solana.PublicKey
	MarketBids       solana.PublicKey
	MarketAsks       solana.PublicKey

	// Derived addresses.
	UserBaseTokenAccount  solana.PublicKey
	UserQuoteTokenAccount solana.PublicKey
	VaultOwner            solana.PublicKey

	// True mint decimals, or DefaultMintDecimals in degraded mode.
	BaseDecimals  uint8
	QuoteDecimals uint8
	LPDecimals    uint8
	Degraded      bool

	// K = floor(initQuote*initBase / 10^(qd+bd)), unbounded integer math.
	K *big.Int
	// V = launch price in quote per base, human units.
	V float64

	DetectedAt time.Time
}

// KFloat converts K for the live-price formula. K is small in human units
// so the float64 conversion is safe for pricing purposes.
func (r *PoolRecord) KFloat() float64 {
	if r.K == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(r.K).Float64()
	return f
}

// SwapDirection selects the side of a swap.
type SwapDirection uint8

const (
	SwapQuoteToBase SwapDirection = iota
	SwapBaseToQuote
)

func (d SwapDirection) String() string {
	if d == SwapBaseToQuote {
		return "baseToQuote"
	}
	return "quoteToBase"
}

// SwapSpec describes one swap for the executor. Amount is in smallest
// units of the input side.
type SwapSpec struct {
	Record    *PoolRecord
	Amount    uint64
	Direction SwapDirection
	Signer    solana.PublicKey
}

// recordDraft accumulates fields during construction and only yields an
// immutable PoolRecord once every required identity field is present.
type recordDraft struct {
	rec PoolRecord
}

func newRecordDraft(rm *RoleMap, detectedAt time.Time) *recordDraft {
	return &recordDraft{rec: PoolRecord{RoleMap: *rm, DetectedAt: detectedAt}}
}

// finalize validates the required-field set and returns the finished
// record, or ErrIncompleteRecord naming the first missing field.
func (d *recordDraft) finalize() (*PoolRecord, error) {
	required := []struct {
		name string
		key  solana.PublicKey
	}{
		{"pool_id", d.rec.PoolID},
		{"base_mint", d.rec.BaseMint},
		{"quote_mint", d.rec.QuoteMint},
		{"user_base_token_account", d.rec.UserBaseTokenAccount},
		{"user_quote_token_account", d.rec.UserQuoteTokenAccount},
		{"market_id", d.rec.MarketID},
		{"market_program_id", d.rec.MarketProgramID},
	}
	for _, f := range required {
		if f.key.IsZero() {
			return nil, fmt.Errorf("%w: missing %s", ErrIncompleteRecord, f.name)
		}
	}
	if d.rec.K == nil || d.rec.K.Sign() < 0 {
		return nil, fmt.Errorf("%w: invalid constant product", ErrIncompleteRecord)
	}
	rec := d.rec
	return &rec, nil
}
