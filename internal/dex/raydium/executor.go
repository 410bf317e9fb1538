// internal/dex/raydium/executor.go
package raydium

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"

	"lp-sniper/internal/chain"
	"lp-sniper/internal/wallet"
)

// ExecutorOptions tunes transaction priority and confirmation.
type ExecutorOptions struct {
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64 // micro-lamports per compute unit
	ConfirmTimeout   time.Duration
}

func DefaultExecutorOptions() ExecutorOptions {
	return ExecutorOptions{
		ComputeUnitLimit: 400_000,
		ComputeUnitPrice: 100_000,
		ConfirmTimeout:   30 * time.Second,
	}
}

// Executor builds, signs and lands AMM v4 swapBaseIn transactions. One
// executor serves all sniper instances; it holds no per-pool state.
type Executor struct {
	client *chain.Client
	wallet *wallet.Wallet
	logger *zap.Logger
	opts   ExecutorOptions
}

func NewExecutor(client *chain.Client, w *wallet.Wallet, logger *zap.Logger, opts ...ExecutorOptions) *Executor {
	options := DefaultExecutorOptions()
	if len(opts) > 0 {
		options = opts[0]
	}
	return &Executor{
		client: client,
		wallet: w,
		logger: logger.Named("executor"),
		opts:   options,
	}
}

// Swap executes one swap and waits for confirmation. Every failure mode
// wraps ErrSwapFailed.
func (e *Executor) Swap(ctx context.Context, spec *SwapSpec) (solana.Signature, error) {
	instructions, err := e.buildInstructions(spec)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", ErrSwapFailed, err)
	}

	blockhash, err := e.client.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", ErrSwapFailed, err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(e.wallet.PublicKey))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: build transaction: %v", ErrSwapFailed, err)
	}
	if err := e.wallet.SignTransaction(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("%w: sign: %v", ErrSwapFailed, err)
	}

	sig, err := e.client.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", ErrSwapFailed, err)
	}

	e.logger.Info("swap sent",
		zap.String("signature", sig.String()),
		zap.String("pool_id", spec.Record.PoolID.String()),
		zap.String("direction", spec.Direction.String()),
		zap.Uint64("amount_in", spec.Amount))

	if err := e.client.ConfirmTransaction(ctx, sig, e.opts.ConfirmTimeout); err != nil {
		return sig, fmt.Errorf("%w: %v", ErrSwapFailed, err)
	}
	return sig, nil
}

func (e *Executor) buildInstructions(spec *SwapSpec) ([]solana.Instruction, error) {
	rec := spec.Record

	instructions := make([]solana.Instruction, 0, 6)

	if e.opts.ComputeUnitLimit > 0 {
		ix, err := computebudget.NewSetComputeUnitLimitInstruction(e.opts.ComputeUnitLimit).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("build compute unit limit instruction: %w", err)
		}
		instructions = append(instructions, ix)
	}
	if e.opts.ComputeUnitPrice > 0 {
		ix, err := computebudget.NewSetComputeUnitPriceInstruction(e.opts.ComputeUnitPrice).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("build compute unit price instruction: %w", err)
		}
		instructions = append(instructions, ix)
	}

	var source, dest solana.PublicKey
	switch spec.Direction {
	case SwapQuoteToBase:
		source, dest = rec.UserQuoteTokenAccount, rec.UserBaseTokenAccount

		// The quote side is wrapped SOL: make sure the WSOL account
		// exists, fund it with the buy amount and sync its balance.
		wsolIx, err := e.wallet.CreateATAIdempotentInstruction(rec.QuoteMint)
		if err != nil {
			return nil, err
		}
		destIx, err := e.wallet.CreateATAIdempotentInstruction(rec.BaseMint)
		if err != nil {
			return nil, err
		}
		transferIx := system.NewTransferInstruction(spec.Amount, e.wallet.PublicKey, source).Build()
		instructions = append(instructions, wsolIx, destIx, transferIx, syncNativeIx(source))

	case SwapBaseToQuote:
		source, dest = rec.UserBaseTokenAccount, rec.UserQuoteTokenAccount

		destIx, err := e.wallet.CreateATAIdempotentInstruction(rec.QuoteMint)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, destIx)

	default:
		return nil, fmt.Errorf("unknown swap direction %d", spec.Direction)
	}

	// minAmountOut 0: new pools have no reliable quote to bound slippage
	// against, and the watch loop already gates the sell price.
	instructions = append(instructions, e.swapBaseInInstruction(rec, source, dest, spec.Amount, 0))

	// A sell pays out wrapped SOL: close the WSOL account afterwards so
	// the proceeds land back in the wallet as native SOL.
	if spec.Direction == SwapBaseToQuote {
		instructions = append(instructions, closeAccountIx(dest, e.wallet.PublicKey))
	}
	return instructions, nil
}

// closeAccountIx closes a token account, sending its lamports to owner.
func closeAccountIx(tokenAccount, owner solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		TokenProgramID,
		[]*solana.AccountMeta{
			solana.Meta(tokenAccount).WRITE(),
			solana.Meta(owner).WRITE(),
			solana.Meta(owner).SIGNER(),
		},
		[]byte{closeAccountInstruction},
	)
}

// swapBaseInInstruction assembles the 18-account AMM v4 swapBaseIn
// instruction.
func (e *Executor) swapBaseInInstruction(rec *PoolRecord, source, dest solana.PublicKey, amountIn, minAmountOut uint64) solana.Instruction {
	data := make([]byte, swapInstructionDataLen)
	data[0] = swapInstructionCode
	binary.LittleEndian.PutUint64(data[1:], amountIn)
	binary.LittleEndian.PutUint64(data[9:], minAmountOut)

	accounts := []*solana.AccountMeta{
		solana.Meta(TokenProgramID),
		solana.Meta(rec.PoolID).WRITE(),
		solana.Meta(rec.Authority),
		solana.Meta(rec.OpenOrders).WRITE(),
		solana.Meta(rec.TargetOrders).WRITE(),
		solana.Meta(rec.BaseVault).WRITE(),
		solana.Meta(rec.QuoteVault).WRITE(),
		solana.Meta(rec.MarketProgramID),
		solana.Meta(rec.MarketID).WRITE(),
		solana.Meta(rec.MarketBids).WRITE(),
		solana.Meta(rec.MarketAsks).WRITE(),
		solana.Meta(rec.MarketEventQueue).WRITE(),
		solana.Meta(rec.MarketBaseVault).WRITE(),
		solana.Meta(rec.MarketQuoteVault).WRITE(),
		solana.Meta(rec.VaultOwner),
		solana.Meta(source).WRITE(),
		solana.Meta(dest).WRITE(),
		solana.Meta(e.wallet.PublicKey).WRITE().SIGNER(),
	}
	return solana.NewInstruction(rec.ProgramID, accounts, data)
}

// syncNativeIx updates a wrapped SOL account's token balance to match its
// lamports after a transfer.
func syncNativeIx(wsolAccount solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		TokenProgramID,
		[]*solana.AccountMeta{solana.Meta(wsolAccount).WRITE()},
		[]byte{syncNativeInstruction},
	)
}
