// internal/wallet/wallet.go

// Package wallet holds the signing key and associated token account
// derivation for the sniper's single trading wallet.
package wallet

import (
	"fmt"
	"os"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// PrivateKeyEnv is the environment variable carrying the base58 private
// key. The key never appears in the config file.
const PrivateKeyEnv = "WALLET_PRIVATE_KEY"

// Wallet is a Solana keypair with an ATA cache. Safe for concurrent use;
// multiple sniper instances share one wallet.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	mu       sync.Mutex
	ataCache map[string]solana.PublicKey
}

// New creates a wallet from a base58-encoded private key.
func New(privateKeyBase58 string) (*Wallet, error) {
	privateKey, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
		ataCache:   make(map[string]solana.PublicKey),
	}, nil
}

// FromEnv loads the wallet from PrivateKeyEnv.
func FromEnv() (*Wallet, error) {
	key := os.Getenv(PrivateKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%s is not set", PrivateKeyEnv)
	}
	return New(key)
}

// SignTransaction signs with the wallet's key where it is a required
// signer.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// GetATA returns the associated token account for a mint, computing it
// once and caching it.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	mintStr := mint.String()

	w.mu.Lock()
	defer w.mu.Unlock()
	if ata, ok := w.ataCache[mintStr]; ok {
		return ata, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.ataCache[mintStr] = ata
	return ata, nil
}

// CreateATAIdempotentInstruction builds a create-idempotent instruction
// for the wallet's associated token account of the given mint.
func (w *Wallet) CreateATAIdempotentInstruction(mint solana.PublicKey) (solana.Instruction, error) {
	ata, err := w.GetATA(mint)
	if err != nil {
		return nil, fmt.Errorf("derive associated token account for %s: %w", mint, err)
	}
	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		[]*solana.AccountMeta{
			solana.Meta(w.PublicKey).WRITE().SIGNER(),
			solana.Meta(ata).WRITE(),
			solana.Meta(w.PublicKey),
			solana.Meta(mint),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(solana.TokenProgramID),
			solana.Meta(solana.SysVarRentPubkey),
		},
		[]byte{1}, // 1 = create_idempotent
	), nil
}

func (w *Wallet) String() string {
	return w.PublicKey.String()
}
