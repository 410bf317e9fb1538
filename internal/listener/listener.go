// internal/listener/listener.go

// Package listener scans the chain for new liquidity pools: it follows
// log notifications mentioning the AMM program, decodes the matching
// transactions and hands complete pool records to the sniping layer.
package listener

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"lp-sniper/internal/chain"
	"lp-sniper/internal/dex/raydium"
	"lp-sniper/internal/storage"
)

const (
	reconnectDelay = 2 * time.Second

	// The transaction may not be queryable at the moment its logs
	// arrive; retry the fetch a few times before giving up.
	txFetchAttempts = 5
	txFetchDelay    = 400 * time.Millisecond
)

// Source is the chain surface the listener depends on. Satisfied by
// chain.Client; tests substitute fakes.
type Source interface {
	GetTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error)
	SubscribeLogs(program solana.PublicKey) (chain.LogStream, error)
}

// Listener runs the detection loop. onRecord is invoked on its own
// goroutine for every complete pool record.
type Listener struct {
	client   Source
	decoder  *raydium.Decoder
	fetcher  *raydium.Fetcher
	store    storage.Storage
	logger   *zap.Logger
	program  solana.PublicKey
	onRecord func(*raydium.PoolRecord)

	fetchAttempts int
	fetchDelay    time.Duration
}

func New(client Source, decoder *raydium.Decoder, fetcher *raydium.Fetcher, store storage.Storage, program solana.PublicKey, logger *zap.Logger, onRecord func(*raydium.PoolRecord)) *Listener {
	return &Listener{
		client:        client,
		decoder:       decoder,
		fetcher:       fetcher,
		store:         store,
		logger:        logger.Named("listener"),
		program:       program,
		onRecord:      onRecord,
		fetchAttempts: txFetchAttempts,
		fetchDelay:    txFetchDelay,
	}
}

// Run blocks until ctx is cancelled, resubscribing after websocket
// failures. Per-candidate errors never stop the loop.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn("log subscription lost, reconnecting",
				zap.Duration("delay", reconnectDelay),
				zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	sub, err := l.client.SubscribeLogs(l.program)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	l.logger.Info("subscribed to AMM program logs",
		zap.String("program", l.program.String()))

	for {
		msg, err := sub.Recv(ctx)
		if err != nil {
			return err
		}
		if msg == nil {
			return errors.New("log subscription closed")
		}
		if msg.Value.Err != nil {
			continue
		}
		go l.handleSignature(ctx, msg.Value.Signature)
	}
}

// handleSignature runs the full decode/fetch pipeline for one candidate
// transaction.
func (l *Listener) handleSignature(ctx context.Context, sig solana.Signature) {
	logger := l.logger.With(zap.String("signature", sig.String()))

	tx, err := l.fetchTransaction(ctx, sig)
	if err != nil {
		logger.Debug("transaction fetch failed, skipping", zap.Error(err))
		return
	}

	decoded, err := tx.Transaction.GetTransaction()
	if err != nil {
		logger.Debug("transaction parse failed, skipping", zap.Error(err))
		return
	}

	rm, err := l.decoder.DecodeTransaction(decoded.Message.AccountKeys, decoded.Message.Instructions)
	if err != nil {
		if !errors.Is(err, raydium.ErrUnknownProgram) {
			logger.Debug("decode failed, skipping", zap.Error(err))
		}
		return
	}

	record, err := l.fetcher.BuildRecord(ctx, rm)
	if err != nil {
		logger.Warn("pool record build failed, skipping",
			zap.String("pool_id", rm.PoolID.String()),
			zap.Error(err))
		return
	}

	if err := l.store.SavePoolRecord(ctx, record); err != nil {
		logger.Warn("pool record persist failed",
			zap.String("pool_id", record.PoolID.String()),
			zap.Error(err))
	}

	logger.Info("new pool detected",
		zap.String("pool_id", record.PoolID.String()),
		zap.String("base_mint", record.BaseMint.String()))

	if l.onRecord != nil {
		l.onRecord(record)
	}
}

func (l *Listener) fetchTransaction(ctx context.Context, sig solana.Signature) (tx *rpc.GetTransactionResult, err error) {
	for attempt := 0; attempt < l.fetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.fetchDelay):
			}
		}
		tx, err = l.client.GetTransaction(ctx, sig)
		if err == nil && tx != nil && tx.Transaction != nil {
			return tx, nil
		}
	}
	if err == nil {
		err = errors.New("transaction not available")
	}
	return nil, err
}
