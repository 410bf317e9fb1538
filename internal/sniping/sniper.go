// internal/sniping/sniper.go

// Package sniping drives one detected pool through its trade lifecycle:
// buy in, work out the realized entry price, watch the quote vault over a
// push feed, and sell once the target price is reached.
package sniping

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"lp-sniper/internal/chain"
	"lp-sniper/internal/dex/raydium"
	"lp-sniper/internal/pricing"
)

// SwapExecutor lands swaps on chain. Satisfied by raydium.Executor.
type SwapExecutor interface {
	Swap(ctx context.Context, spec *raydium.SwapSpec) (solana.Signature, error)
}

// Config carries the per-instance trade parameters.
type Config struct {
	BuyAmountSOL      float64
	SellTargetPercent float64
	// MaxWatchDuration bounds the watch phase; zero watches forever.
	// On expiry the position is exited through the normal sell path.
	MaxWatchDuration time.Duration
}

// Sniper is a single-use controller for one pool. Run drives the whole
// lifecycle on the calling goroutine; all phase transitions happen there,
// which is what guarantees the at-most-once sell.
type Sniper struct {
	record   *raydium.PoolRecord
	chain    chain.Query
	executor SwapExecutor
	owner    solana.PublicKey
	cfg      Config
	logger   *zap.Logger

	phase      Phase
	buyPrice   float64
	sellTarget float64
}

func New(record *raydium.PoolRecord, chainClient chain.Query, executor SwapExecutor, owner solana.PublicKey, cfg Config, logger *zap.Logger) *Sniper {
	return &Sniper{
		record:   record,
		chain:    chainClient,
		executor: executor,
		owner:    owner,
		cfg:      cfg,
		logger: logger.Named("sniper").With(
			zap.String("pool_id", record.PoolID.String()),
			zap.String("base_mint", record.BaseMint.String())),
		phase: PhaseReadyToBuy,
	}
}

// Phase returns the current lifecycle phase. Meaningful once Run has
// returned; Run itself owns the field while active.
func (s *Sniper) Phase() Phase { return s.phase }

// Run executes the full lifecycle and returns when the instance reaches
// Closed or Failed.
func (s *Sniper) Run(ctx context.Context) error {
	buySig, err := s.buy(ctx)
	if err != nil {
		s.fail("buy failed", err)
		return err
	}

	s.analyze(ctx, buySig)

	reached, err := s.watch(ctx)
	if err != nil {
		s.fail("watch aborted", err)
		return err
	}
	if !reached {
		s.logger.Info("watch phase ended before target, exiting position")
	}

	if err := s.sell(ctx); err != nil {
		s.fail("sell failed", err)
		return err
	}

	s.phase = PhaseClosed
	s.logger.Info("position closed")
	return nil
}

func (s *Sniper) fail(msg string, err error) {
	s.phase = PhaseFailed
	s.logger.Error(msg, zap.Error(err))
}

func (s *Sniper) buy(ctx context.Context) (solana.Signature, error) {
	s.phase = PhaseBuying
	lamports := uint64(s.cfg.BuyAmountSOL * float64(solana.LAMPORTS_PER_SOL))

	s.logger.Info("buying",
		zap.Float64("amount_sol", s.cfg.BuyAmountSOL),
		zap.Uint64("lamports", lamports))

	return s.executor.Swap(ctx, &raydium.SwapSpec{
		Record:    s.record,
		Amount:    lamports,
		Direction: raydium.SwapQuoteToBase,
		Signer:    s.owner,
	})
}

// analyze derives the realized entry price from the buy transaction's
// token balance deltas. Any failure falls back to the pool's launch
// price; analysis never aborts the lifecycle.
func (s *Sniper) analyze(ctx context.Context, buySig solana.Signature) {
	s.phase = PhaseAnalyzingPrice

	buyPrice := s.record.V
	received, err := s.tokensReceived(ctx, buySig)
	if err == nil {
		realized, perr := pricing.RealizedBuyPrice(s.cfg.BuyAmountSOL, received)
		if perr == nil {
			buyPrice = realized
		} else {
			err = perr
		}
	}
	if err != nil {
		s.logger.Warn("price analysis failed, falling back to launch price",
			zap.Float64("launch_price", s.record.V),
			zap.Error(err))
	}

	s.buyPrice = buyPrice
	s.sellTarget = pricing.SellTarget(buyPrice, s.cfg.SellTargetPercent)

	s.logger.Info("entry price analyzed",
		zap.Float64("buy_price", s.buyPrice),
		zap.Float64("sell_target", s.sellTarget))
}

// tokensReceived reads the wallet's base-mint balance delta out of the
// buy transaction's metadata, in human units.
func (s *Sniper) tokensReceived(ctx context.Context, sig solana.Signature) (float64, error) {
	tx, err := s.chain.GetTransaction(ctx, sig)
	if err != nil {
		return 0, fmt.Errorf("fetch buy transaction: %w", err)
	}
	if tx == nil || tx.Meta == nil {
		return 0, fmt.Errorf("buy transaction %s has no metadata", sig)
	}

	balance := func(balances []rpc.TokenBalance) float64 {
		for _, b := range balances {
			if b.Owner == nil || !b.Owner.Equals(s.owner) {
				continue
			}
			if !b.Mint.Equals(s.record.BaseMint) {
				continue
			}
			if b.UiTokenAmount != nil && b.UiTokenAmount.UiAmount != nil {
				return *b.UiTokenAmount.UiAmount
			}
		}
		return 0
	}

	received := balance(tx.Meta.PostTokenBalances) - balance(tx.Meta.PreTokenBalances)
	if received <= 0 {
		return 0, pricing.ErrNoTokensReceived
	}
	return received, nil
}

// watch consumes the quote vault subscription until the live price
// reaches the sell target, the optional watch bound expires, or the feed
// ends. Returns whether the target was reached. The subscription is torn
// down before returning on every path.
func (s *Sniper) watch(ctx context.Context) (bool, error) {
	s.phase = PhaseWatching

	sub, err := s.chain.SubscribeAccountChanges(ctx, s.record.QuoteVault)
	if err != nil {
		return false, fmt.Errorf("%w: quote vault %s: %v", chain.ErrSubscription, s.record.QuoteVault, err)
	}
	defer sub.Unsubscribe()

	var expired <-chan time.Time
	if s.cfg.MaxWatchDuration > 0 {
		timer := time.NewTimer(s.cfg.MaxWatchDuration)
		defer timer.Stop()
		expired = timer.C
	}

	k := s.record.KFloat()
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()

		case <-expired:
			s.logger.Info("watch duration exhausted",
				zap.Duration("max_watch_duration", s.cfg.MaxWatchDuration))
			sub.Unsubscribe()
			return false, nil

		case update, ok := <-sub.Updates():
			if !ok {
				s.logger.Warn("reserve feed ended before target")
				return false, nil
			}
			price := pricing.LivePrice(update.Lamports, s.record.QuoteDecimals, k)
			s.logger.Debug("reserve update",
				zap.Uint64("slot", update.Slot),
				zap.Uint64("lamports", update.Lamports),
				zap.Float64("live_price", price))
			if price > 0 && price >= s.sellTarget {
				s.logger.Info("sell target reached",
					zap.Float64("live_price", price),
					zap.Float64("sell_target", s.sellTarget))
				sub.Unsubscribe()
				return true, nil
			}
		}
	}
}

// sell exits the full base position. A zero or unreadable balance means
// there is nothing to exit and the position closes as a no-op.
func (s *Sniper) sell(ctx context.Context) error {
	s.phase = PhaseSelling

	balance, err := s.chain.GetTokenBalance(ctx, s.record.UserBaseTokenAccount)
	if err != nil {
		s.logger.Warn("token balance unavailable, closing without sell", zap.Error(err))
		return nil
	}
	if balance == 0 {
		s.logger.Info("no tokens to sell, closing")
		return nil
	}

	sig, err := s.executor.Swap(ctx, &raydium.SwapSpec{
		Record:    s.record,
		Amount:    balance,
		Direction: raydium.SwapBaseToQuote,
		Signer:    s.owner,
	})
	if err != nil {
		return err
	}

	s.logger.Info("sold position",
		zap.Uint64("amount", balance),
		zap.String("signature", sig.String()))
	return nil
}
