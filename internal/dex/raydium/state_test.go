// internal/dex/raydium/state_test.go
package raydium

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putKey(buf []byte, off int, key solana.PublicKey) {
	copy(buf[off:off+32], key.Bytes())
}

func TestDecodeLiquidityStateV4(t *testing.T) {
	buf := make([]byte, LiquidityStateV4Size)
	binary.LittleEndian.PutUint64(buf[stateStatusOffset:], 6)
	binary.LittleEndian.PutUint64(buf[stateNonceOffset:], 254)
	binary.LittleEndian.PutUint64(buf[stateBaseDecimalsOffset:], 6)
	binary.LittleEndian.PutUint64(buf[stateQuoteDecimalsOffset:], 9)
	binary.LittleEndian.PutUint64(buf[statePoolOpenTimeOffset:], 1_700_000_000)
	binary.LittleEndian.PutUint64(buf[stateLPReserveOffset:], 42)

	baseMint := solana.NewWallet().PublicKey()
	marketID := solana.NewWallet().PublicKey()
	withdrawQueue := solana.NewWallet().PublicKey()
	lpVault := solana.NewWallet().PublicKey()
	putKey(buf, stateBaseMintOffset, baseMint)
	putKey(buf, stateMarketIDOffset, marketID)
	putKey(buf, stateWithdrawQueueOffset, withdrawQueue)
	putKey(buf, stateLPVaultOffset, lpVault)

	state, err := DecodeLiquidityStateV4(buf)
	require.NoError(t, err)

	assert.Equal(t, uint64(6), state.Status)
	assert.Equal(t, uint64(254), state.Nonce)
	assert.Equal(t, uint64(6), state.BaseDecimals)
	assert.Equal(t, uint64(9), state.QuoteDecimals)
	assert.Equal(t, uint64(1_700_000_000), state.PoolOpenTime)
	assert.Equal(t, uint64(42), state.LPReserve)
	assert.Equal(t, baseMint, state.BaseMint)
	assert.Equal(t, marketID, state.MarketID)
	assert.Equal(t, withdrawQueue, state.WithdrawQueue)
	assert.Equal(t, lpVault, state.LPVault)
}

func TestDecodeLiquidityStateV4TooShort(t *testing.T) {
	_, err := DecodeLiquidityStateV4(make([]byte, LiquidityStateV4Size-1))
	assert.ErrorIs(t, err, ErrAccountDecode)

	_, err = DecodeLiquidityStateV4(nil)
	assert.ErrorIs(t, err, ErrAccountDecode)
}

func TestDecodeMarketSideAccounts(t *testing.T) {
	buf := make([]byte, MarketMinDataLen)
	eventQueue := solana.NewWallet().PublicKey()
	bids := solana.NewWallet().PublicKey()
	asks := solana.NewWallet().PublicKey()
	putKey(buf, marketEventQueueOffset, eventQueue)
	putKey(buf, marketBidsOffset, bids)
	putKey(buf, marketAsksOffset, asks)

	gotQueue, gotBids, gotAsks, err := decodeMarketSideAccounts(buf)
	require.NoError(t, err)
	assert.Equal(t, eventQueue, gotQueue)
	assert.Equal(t, bids, gotBids)
	assert.Equal(t, asks, gotAsks)
}

func TestDecodeMarketSideAccountsTooSmall(t *testing.T) {
	_, _, _, err := decodeMarketSideAccounts(make([]byte, 300))
	assert.ErrorIs(t, err, ErrAccountTooSmall)
}
