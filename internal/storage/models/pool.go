// internal/storage/models/pool.go
package models

import (
	"time"

	"lp-sniper/internal/dex/raydium"
)

// PoolRecord is one detected pool, append-only: a pool seen twice gets
// two rows distinguished by DetectedAt.
type PoolRecord struct {
	BaseModel
	PoolID           string `gorm:"index;not null;type:varchar(44)"`
	BaseMint         string `gorm:"index;not null;type:varchar(44)"`
	QuoteMint        string `gorm:"not null;type:varchar(44)"`
	LPMint           string `gorm:"type:varchar(44)"`
	MarketID         string `gorm:"type:varchar(44)"`
	BaseVault        string `gorm:"type:varchar(44)"`
	QuoteVault       string `gorm:"type:varchar(44)"`
	BaseDecimals     uint8
	QuoteDecimals    uint8
	LPDecimals       uint8
	Degraded         bool
	InitBaseReserve  uint64
	InitQuoteReserve uint64
	ConstantProduct  string  `gorm:"type:varchar(80)"`
	LaunchPrice      float64 `gorm:"type:decimal(30,15)"`
	OpenTime         int64
	DetectedAt       time.Time `gorm:"index;not null"`
}

// NewPoolRecord converts a fetched pool record into its database row.
func NewPoolRecord(rec *raydium.PoolRecord) *PoolRecord {
	k := ""
	if rec.K != nil {
		k = rec.K.String()
	}
	return &PoolRecord{
		PoolID:           rec.PoolID.String(),
		BaseMint:         rec.BaseMint.String(),
		QuoteMint:        rec.QuoteMint.String(),
		LPMint:           rec.LPMint.String(),
		MarketID:         rec.MarketID.String(),
		BaseVault:        rec.BaseVault.String(),
		QuoteVault:       rec.QuoteVault.String(),
		BaseDecimals:     rec.BaseDecimals,
		QuoteDecimals:    rec.QuoteDecimals,
		LPDecimals:       rec.LPDecimals,
		Degraded:         rec.Degraded,
		InitBaseReserve:  rec.InitBaseReserve,
		InitQuoteReserve: rec.InitQuoteReserve,
		ConstantProduct:  k,
		LaunchPrice:      rec.V,
		OpenTime:         rec.OpenTime,
		DetectedAt:       rec.DetectedAt,
	}
}
