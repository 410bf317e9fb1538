// internal/dex/raydium/constants.go
package raydium

import "github.com/gagliardetto/solana-go"

// Program IDs and well-known addresses.
var (
	RaydiumV4ProgramID = solana.MPK("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	TokenProgramID     = solana.MPK("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	WrappedSolMint     = solana.MPK("So11111111111111111111111111111111111111112")
	SysvarClockPubkey  = solana.MPK("SysvarC1ock11111111111111111111111111111111")
)

// Initialize2 payload layout: two little-endian uint64 reserve amounts.
const (
	initQuoteAmountOffset = 10 // init_pc_amount
	initBaseAmountOffset  = 18 // init_coin_amount
	initPayloadMinLen     = initBaseAmountOffset + 8
)

// Account-index schema shared by both initialize2 layout variants. The
// authority/open-orders pair shifts by one in the clock-prefixed variant
// and lives in the variant table instead.
const (
	idxPoolID           = 4
	idxLPMint           = 7
	idxBaseMint         = 8
	idxQuoteMint        = 9
	idxBaseVault        = 10
	idxQuoteVault       = 11
	idxTargetOrders     = 13
	idxMarketProgramID  = 15
	idxMarketID         = 16
	idxMarketBaseVault  = 18
	idxMarketQuoteVault = 19
	idxMarketAuthority  = 20

	// Highest index the role schema touches; instructions referencing
	// fewer accounts cannot be an initialize2.
	minAccountIndexes = idxMarketAuthority + 1
)

// Liquidity state v4 account layout (752 bytes).
const (
	LiquidityStateV4Size = 752

	stateStatusOffset        = 0
	stateNonceOffset         = 8
	stateBaseDecimalsOffset  = 32
	stateQuoteDecimalsOffset = 40
	statePoolOpenTimeOffset  = 224
	stateBaseVaultOffset     = 336
	stateQuoteVaultOffset    = 368
	stateBaseMintOffset      = 400
	stateQuoteMintOffset     = 432
	stateLPMintOffset        = 464
	stateOpenOrdersOffset    = 496
	stateMarketIDOffset      = 528
	stateMarketProgramOffset = 560
	stateTargetOrdersOffset  = 592
	stateWithdrawQueueOffset = 624
	stateLPVaultOffset       = 656
	stateOwnerOffset         = 688
	stateLPReserveOffset     = 720
)

// Serum market side-account byte ranges.
const (
	MarketMinDataLen       = 341
	marketEventQueueOffset = 245
	marketBidsOffset       = 277
	marketAsksOffset       = 309
)

// DefaultMintDecimals is substituted when a token-supply query fails.
// Record construction proceeds in degraded mode rather than aborting.
const DefaultMintDecimals uint8 = 9

// Swap instruction constants (AMM v4 swapBaseIn).
const (
	swapInstructionCode     uint8 = 9
	swapInstructionDataLen        = 1 + 8 + 8
	syncNativeInstruction   uint8 = 17
	closeAccountInstruction uint8 = 9 // SPL token program CloseAccount
)
