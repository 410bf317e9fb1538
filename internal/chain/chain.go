// internal/chain/chain.go

// Package chain wraps the Solana RPC and websocket clients behind the
// narrow query surface the rest of the bot depends on. Collaborators take
// the Query interface so tests can substitute fakes.
package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 5 * time.Second

// Query is the read/subscribe surface consumed by the fetcher and the
// sniper controller.
type Query interface {
	GetTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error)
	GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
	GetTokenSupplyDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
	GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error)
	SubscribeAccountChanges(ctx context.Context, account solana.PublicKey) (ReserveSubscription, error)
}

// Client is the production Query implementation plus the write-side
// methods used by the swap executor and the log listener.
type Client struct {
	rpc        *rpc.Client
	ws         *ws.Client
	logger     *zap.Logger
	commitment rpc.CommitmentType
}

// Connect dials the RPC endpoint and establishes the websocket session.
func Connect(ctx context.Context, rpcURL, wsURL string, logger *zap.Logger) (*Client, error) {
	wsClient, err := ws.Connect(ctx, wsURL)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}
	return &Client{
		rpc:        rpc.New(rpcURL),
		ws:         wsClient,
		logger:     logger.Named("chain"),
		commitment: rpc.CommitmentConfirmed,
	}, nil
}

func (c *Client) Close() {
	if c.ws != nil {
		c.ws.Close()
	}
}

// GetTransaction fetches a confirmed transaction with versioned
// transaction support enabled.
func (c *Client) GetTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	maxVersion := uint64(0)
	return c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		MaxSupportedTransactionVersion: &maxVersion,
		Commitment:                     c.commitment,
	})
}

// GetAccountData returns the raw bytes of an account.
func (c *Client) GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	result, err := c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", account, err)
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("account %s not found", account)
	}
	return result.Value.Data.GetBinary(), nil
}

// GetTokenSupplyDecimals returns the decimals of a mint via its token
// supply record.
func (c *Client) GetTokenSupplyDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	result, err := c.rpc.GetTokenSupply(ctx, mint, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("get token supply %s: %w", mint, err)
	}
	if result == nil || result.Value == nil {
		return 0, fmt.Errorf("empty token supply for %s", mint)
	}
	return result.Value.Decimals, nil
}

// GetTokenBalance returns the raw balance of a token account in smallest
// units.
func (c *Client) GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	result, err := c.rpc.GetTokenAccountBalance(ctx, tokenAccount, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("get token balance %s: %w", tokenAccount, err)
	}
	if result == nil || result.Value == nil {
		return 0, fmt.Errorf("empty token balance for %s", tokenAccount)
	}
	var amount uint64
	if _, err := fmt.Sscan(result.Value.Amount, &amount); err != nil {
		return 0, fmt.Errorf("parse token balance %q: %w", result.Value.Amount, err)
	}
	return amount, nil
}

// GetLatestBlockhash returns a blockhash for transaction assembly.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	return result.Value.Blockhash, nil
}

// SendTransaction submits a signed transaction, skipping preflight so the
// swap lands as early as possible.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	return sig, nil
}

// ConfirmTransaction polls signature statuses until the transaction is
// confirmed, errors on chain, or the timeout elapses.
func (c *Client) ConfirmTransaction(ctx context.Context, sig solana.Signature, timeout time.Duration) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("confirmation timeout for %s", sig)
		case <-ticker.C:
			statuses, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
			if err != nil {
				c.logger.Warn("signature status check failed", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed on chain: %v", sig, status.Err)
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
		}
	}
}

// LogStream is the log-notification surface the listener consumes.
// Satisfied by the websocket log subscription.
type LogStream interface {
	Recv(ctx context.Context) (*ws.LogResult, error)
	Unsubscribe()
}

// SubscribeLogs subscribes to log notifications mentioning the given
// program.
func (c *Client) SubscribeLogs(program solana.PublicKey) (LogStream, error) {
	return c.ws.LogsSubscribeMentions(program, rpc.CommitmentConfirmed)
}

// SubscribeAccountChanges opens an account subscription and pumps lamport
// updates into a channel until the subscription is torn down or ctx ends.
func (c *Client) SubscribeAccountChanges(ctx context.Context, account solana.PublicKey) (ReserveSubscription, error) {
	sub, err := c.ws.AccountSubscribe(account, c.commitment)
	if err != nil {
		return nil, fmt.Errorf("account subscribe %s: %w", account, err)
	}

	as := newAccountSubscription(sub.Unsubscribe)
	go func() {
		defer as.closeUpdates()
		for {
			msg, err := sub.Recv(ctx)
			if err != nil {
				if ctx.Err() == nil {
					c.logger.Warn("account subscription closed",
						zap.String("account", account.String()),
						zap.Error(err))
				}
				return
			}
			if msg == nil {
				return
			}
			as.push(ReserveUpdate{
				Slot:     msg.Context.Slot,
				Lamports: msg.Value.Lamports,
			})
			if as.stopped() {
				return
			}
		}
	}()
	return as, nil
}
