// internal/dex/raydium/fetcher.go
package raydium

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lp-sniper/internal/chain"
	"lp-sniper/internal/pricing"
)

// FetcherOptions tunes the pool-account retry. The account can lag the
// creation transaction by a few slots, so the first fetch often misses.
type FetcherOptions struct {
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultFetcherOptions() FetcherOptions {
	return FetcherOptions{
		MaxRetries: 5,
		RetryDelay: 500 * time.Millisecond,
	}
}

// Fetcher turns a decoded role map into a complete pool record by reading
// the pool and market accounts, resolving decimals and deriving the
// owner's token accounts.
type Fetcher struct {
	client     chain.Query
	owner      solana.PublicKey
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

func NewFetcher(client chain.Query, owner solana.PublicKey, logger *zap.Logger, opts ...FetcherOptions) *Fetcher {
	options := DefaultFetcherOptions()
	if len(opts) > 0 {
		options = opts[0]
	}
	return &Fetcher{
		client:     client,
		owner:      owner,
		logger:     logger.Named("fetcher"),
		maxRetries: options.MaxRetries,
		retryDelay: options.RetryDelay,
	}
}

// BuildRecord assembles the immutable pool record for a freshly decoded
// pool. Decimals failures degrade to defaults; a missing identity field
// fails the whole record with ErrIncompleteRecord.
func (f *Fetcher) BuildRecord(ctx context.Context, rm *RoleMap) (*PoolRecord, error) {
	draft := newRecordDraft(rm, time.Now().UTC())

	state, err := f.fetchPoolState(ctx, rm.PoolID)
	if err != nil {
		return nil, err
	}
	draft.rec.Nonce = uint8(state.Nonce)
	draft.rec.OpenTime = int64(state.PoolOpenTime)
	draft.rec.WithdrawQueue = state.WithdrawQueue
	draft.rec.LPVault = state.LPVault

	marketData, err := f.client.GetAccountData(ctx, rm.MarketID)
	if err != nil {
		return nil, fmt.Errorf("fetch market %s: %w", rm.MarketID, err)
	}
	eventQueue, bids, asks, err := decodeMarketSideAccounts(marketData)
	if err != nil {
		return nil, err
	}
	draft.rec.MarketEventQueue = eventQueue
	draft.rec.MarketBids = bids
	draft.rec.MarketAsks = asks

	f.resolveDecimals(ctx, draft, rm)

	baseATA, _, err := solana.FindAssociatedTokenAddress(f.owner, rm.BaseMint)
	if err != nil {
		return nil, fmt.Errorf("%w: base token account derivation: %v", ErrIncompleteRecord, err)
	}
	quoteATA, _, err := solana.FindAssociatedTokenAddress(f.owner, rm.QuoteMint)
	if err != nil {
		return nil, fmt.Errorf("%w: quote token account derivation: %v", ErrIncompleteRecord, err)
	}
	draft.rec.UserBaseTokenAccount = baseATA
	draft.rec.UserQuoteTokenAccount = quoteATA

	vaultOwner, _, err := solana.FindProgramAddress([][]byte{rm.MarketID.Bytes()}, rm.MarketProgramID)
	if err != nil {
		f.logger.Warn("vault owner derivation failed",
			zap.String("market_id", rm.MarketID.String()),
			zap.Error(err))
	} else {
		draft.rec.VaultOwner = vaultOwner
	}

	draft.rec.K = pricing.ConstantProduct(rm.InitQuoteReserve, rm.InitBaseReserve,
		draft.rec.QuoteDecimals, draft.rec.BaseDecimals)
	draft.rec.V = pricing.LaunchPrice(rm.InitQuoteReserve, rm.InitBaseReserve,
		draft.rec.QuoteDecimals, draft.rec.BaseDecimals)

	rec, err := draft.finalize()
	if err != nil {
		return nil, err
	}

	f.logger.Info("pool record built",
		zap.String("pool_id", rec.PoolID.String()),
		zap.String("base_mint", rec.BaseMint.String()),
		zap.String("k", rec.K.String()),
		zap.Float64("launch_price", rec.V),
		zap.Bool("degraded", rec.Degraded))

	return rec, nil
}

// fetchPoolState reads and decodes the liquidity state account, retrying
// with exponential backoff while the account propagates.
func (f *Fetcher) fetchPoolState(ctx context.Context, poolID solana.PublicKey) (*LiquidityStateV4, error) {
	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = f.retryDelay
	backoffPolicy.MaxInterval = f.retryDelay * 10

	notify := func(err error, duration time.Duration) {
		f.logger.Debug("retrying pool account fetch",
			zap.String("pool_id", poolID.String()),
			zap.Duration("backoff", duration),
			zap.Error(err))
	}

	operation := func() (*LiquidityStateV4, error) {
		data, err := f.client.GetAccountData(ctx, poolID)
		if err != nil {
			return nil, err
		}
		return DecodeLiquidityStateV4(data)
	}

	state, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoffPolicy),
		backoff.WithMaxTries(uint(f.maxRetries)),
		backoff.WithNotify(notify))
	if err != nil {
		return nil, fmt.Errorf("fetch pool state %s: %w", poolID, err)
	}
	return state, nil
}

// resolveDecimals queries the three mints in parallel. Any failure falls
// back to DefaultMintDecimals and marks the record degraded; decimals
// never abort record construction.
func (f *Fetcher) resolveDecimals(ctx context.Context, draft *recordDraft, rm *RoleMap) {
	type target struct {
		name string
		mint solana.PublicKey
		out  *uint8
	}
	targets := []target{
		{"base", rm.BaseMint, &draft.rec.BaseDecimals},
		{"quote", rm.QuoteMint, &draft.rec.QuoteDecimals},
		{"lp", rm.LPMint, &draft.rec.LPDecimals},
	}

	g, gctx := errgroup.WithContext(ctx)
	degraded := make([]bool, len(targets))
	for i, t := range targets {
		g.Go(func() error {
			decimals, err := f.client.GetTokenSupplyDecimals(gctx, t.mint)
			if err != nil {
				f.logger.Warn("token supply query failed, using default decimals",
					zap.String("side", t.name),
					zap.String("mint", t.mint.String()),
					zap.Error(err))
				*t.out = DefaultMintDecimals
				degraded[i] = true
				return nil
			}
			*t.out = decimals
			return nil
		})
	}
	_ = g.Wait()

	for _, d := range degraded {
		if d {
			draft.rec.Degraded = true
			break
		}
	}
}
