// internal/dex/raydium/state.go
package raydium

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// LiquidityStateV4 is the fixed-layout AMM v4 pool account. Only the
// fields the sniper consumes are decoded; padding and the fee/state words
// between them are skipped by offset.
type LiquidityStateV4 struct {
	Status        uint64
	Nonce         uint64
	BaseDecimals  uint64
	QuoteDecimals uint64
	PoolOpenTime  uint64
	BaseVault     solana.PublicKey
	QuoteVault    solana.PublicKey
	BaseMint      solana.PublicKey
	QuoteMint     solana.PublicKey
	LPMint        solana.PublicKey
	OpenOrders    solana.PublicKey
	MarketID      solana.PublicKey
	MarketProgram solana.PublicKey
	TargetOrders  solana.PublicKey
	WithdrawQueue solana.PublicKey
	LPVault       solana.PublicKey
	Owner         solana.PublicKey
	LPReserve     uint64
}

// DecodeLiquidityStateV4 decodes a raw pool account. Accounts shorter than
// the v4 layout yield ErrAccountDecode.
func DecodeLiquidityStateV4(data []byte) (*LiquidityStateV4, error) {
	if len(data) < LiquidityStateV4Size {
		return nil, fmt.Errorf("%w: %d bytes, v4 layout needs %d", ErrAccountDecode, len(data), LiquidityStateV4Size)
	}
	u64 := func(off int) uint64 { return binary.LittleEndian.Uint64(data[off:]) }
	pk := func(off int) solana.PublicKey { return solana.PublicKeyFromBytes(data[off : off+32]) }

	return &LiquidityStateV4{
		Status:        u64(stateStatusOffset),
		Nonce:         u64(stateNonceOffset),
		BaseDecimals:  u64(stateBaseDecimalsOffset),
		QuoteDecimals: u64(stateQuoteDecimalsOffset),
		PoolOpenTime:  u64(statePoolOpenTimeOffset),
		BaseVault:     pk(stateBaseVaultOffset),
		QuoteVault:    pk(stateQuoteVaultOffset),
		BaseMint:      pk(stateBaseMintOffset),
		QuoteMint:     pk(stateQuoteMintOffset),
		LPMint:        pk(stateLPMintOffset),
		OpenOrders:    pk(stateOpenOrdersOffset),
		MarketID:      pk(stateMarketIDOffset),
		MarketProgram: pk(stateMarketProgramOffset),
		TargetOrders:  pk(stateTargetOrdersOffset),
		WithdrawQueue: pk(stateWithdrawQueueOffset),
		LPVault:       pk(stateLPVaultOffset),
		Owner:         pk(stateOwnerOffset),
		LPReserve:     u64(stateLPReserveOffset),
	}, nil
}

// decodeMarketSideAccounts slices the event queue, bids and asks addresses
// out of a Serum market account. Only those three fields are needed for
// the swap instruction, so the full market layout is never decoded.
func decodeMarketSideAccounts(data []byte) (eventQueue, bids, asks solana.PublicKey, err error) {
	if len(data) < MarketMinDataLen {
		err = fmt.Errorf("%w: %d bytes, need %d", ErrAccountTooSmall, len(data), MarketMinDataLen)
		return
	}
	eventQueue = solana.PublicKeyFromBytes(data[marketEventQueueOffset : marketEventQueueOffset+32])
	bids = solana.PublicKeyFromBytes(data[marketBidsOffset : marketBidsOffset+32])
	asks = solana.PublicKeyFromBytes(data[marketAsksOffset : marketAsksOffset+32])
	return
}
