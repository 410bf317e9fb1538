// internal/dex/raydium/decoder.go
package raydium

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// layoutVariant names one known account ordering of initialize2. Only the
// authority/open-orders pair moves between variants; all other roles keep
// the shared index schema from constants.go.
type layoutVariant struct {
	name       string
	authority  int
	openOrders int
}

var (
	layoutStandard      = layoutVariant{name: "standard", authority: 5, openOrders: 6}
	layoutClockPrefixed = layoutVariant{name: "clock-prefixed", authority: 6, openOrders: 7}
)

// Decoder extracts pool role maps from transactions that touch the AMM
// program. It is stateless and safe for concurrent use.
type Decoder struct {
	ammProgram solana.PublicKey
	logger     *zap.Logger
}

func NewDecoder(ammProgram solana.PublicKey, logger *zap.Logger) *Decoder {
	return &Decoder{
		ammProgram: ammProgram,
		logger:     logger.Named("decoder"),
	}
}

// DecodeTransaction scans the compiled instructions for an initialize2 of
// the configured AMM program and resolves it into a role map. Returns
// ErrUnknownProgram when no instruction belongs to the AMM program, and
// ErrMalformedInstruction when one does but its payload or account list
// cannot carry the expected layout.
func (d *Decoder) DecodeTransaction(accountKeys []solana.PublicKey, instructions []solana.CompiledInstruction) (*RoleMap, error) {
	for _, ix := range instructions {
		if int(ix.ProgramIDIndex) >= len(accountKeys) {
			continue
		}
		if !accountKeys[ix.ProgramIDIndex].Equals(d.ammProgram) {
			continue
		}
		return d.decodeInitialize2(accountKeys, ix)
	}
	return nil, ErrUnknownProgram
}

func (d *Decoder) decodeInitialize2(accountKeys []solana.PublicKey, ix solana.CompiledInstruction) (*RoleMap, error) {
	if len(ix.Data) < initPayloadMinLen {
		return nil, fmt.Errorf("%w: payload %d bytes, need %d", ErrMalformedInstruction, len(ix.Data), initPayloadMinLen)
	}
	if len(ix.Accounts) < minAccountIndexes {
		return nil, fmt.Errorf("%w: %d account indexes, need %d", ErrMalformedInstruction, len(ix.Accounts), minAccountIndexes)
	}
	for _, idx := range ix.Accounts[:minAccountIndexes] {
		if int(idx) >= len(accountKeys) {
			return nil, fmt.Errorf("%w: account index %d out of range", ErrMalformedInstruction, idx)
		}
	}

	key := func(i int) solana.PublicKey { return accountKeys[ix.Accounts[i]] }

	variant := layoutStandard
	if key(layoutStandard.authority).Equals(SysvarClockPubkey) {
		variant = layoutClockPrefixed
	}

	rm := &RoleMap{
		ProgramID:        d.ammProgram,
		PoolID:           key(idxPoolID),
		Authority:        key(variant.authority),
		OpenOrders:       key(variant.openOrders),
		TargetOrders:     key(idxTargetOrders),
		LPMint:           key(idxLPMint),
		BaseMint:         key(idxBaseMint),
		QuoteMint:        key(idxQuoteMint),
		BaseVault:        key(idxBaseVault),
		QuoteVault:       key(idxQuoteVault),
		MarketProgramID:  key(idxMarketProgramID),
		MarketID:         key(idxMarketID),
		MarketBaseVault:  key(idxMarketBaseVault),
		MarketQuoteVault: key(idxMarketQuoteVault),
		MarketAuthority:  key(idxMarketAuthority),
		InitQuoteReserve: binary.LittleEndian.Uint64(ix.Data[initQuoteAmountOffset:]),
		InitBaseReserve:  binary.LittleEndian.Uint64(ix.Data[initBaseAmountOffset:]),
	}

	// New pools pair a token against wrapped SOL on either side. Keep the
	// record oriented token/WSOL so pricing is always quote-per-base.
	if rm.BaseMint.Equals(WrappedSolMint) {
		rm.BaseMint, rm.QuoteMint = rm.QuoteMint, rm.BaseMint
		rm.BaseVault, rm.QuoteVault = rm.QuoteVault, rm.BaseVault
		rm.InitBaseReserve, rm.InitQuoteReserve = rm.InitQuoteReserve, rm.InitBaseReserve
	}

	d.logger.Debug("decoded pool initialization",
		zap.String("pool_id", rm.PoolID.String()),
		zap.String("base_mint", rm.BaseMint.String()),
		zap.String("layout", variant.name),
		zap.Uint64("init_base_reserve", rm.InitBaseReserve),
		zap.Uint64("init_quote_reserve", rm.InitQuoteReserve))

	return rm, nil
}
