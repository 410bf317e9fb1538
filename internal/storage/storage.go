// internal/storage/storage.go
package storage

import (
	"context"

	"lp-sniper/internal/dex/raydium"
	"lp-sniper/internal/storage/models"
)

// Storage persists detected pools. Persistence failures are reported to
// the caller but never block the trading path.
type Storage interface {
	SavePoolRecord(ctx context.Context, rec *raydium.PoolRecord) error
	GetPoolRecord(ctx context.Context, poolID string) (*models.PoolRecord, error)
	RunMigrations() error
	Close() error
}

// Noop is used when no database is configured.
type Noop struct{}

func (Noop) SavePoolRecord(context.Context, *raydium.PoolRecord) error { return nil }
func (Noop) GetPoolRecord(context.Context, string) (*models.PoolRecord, error) {
	return nil, nil
}
func (Noop) RunMigrations() error { return nil }
func (Noop) Close() error         { return nil }
