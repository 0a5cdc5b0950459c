package models

import (
	"dustledger/pkg/domain"
)

// Reserve tracks the external-asset backing of the dust supply. Units grow
// through explicit deposits and through the reserve share of every burn.
type Reserve struct {
	// Units is the external-asset quantity held, in Amount minor units of
	// the external asset.
	Units domain.Amount `json:"units"`
	// BackingRatio is how many dust one external unit backs.
	BackingRatio float64 `json:"backing_ratio"`
}

// ReserveStatus is the solvency view derived from the reserve and the
// circulating supply.
type ReserveStatus struct {
	Units             domain.Amount `json:"units"`
	BackingRatio      float64       `json:"backing_ratio"`
	CirculatingSupply domain.Amount `json:"circulating_supply"`
	// CoverageRatio is backed supply over circulating supply; 1.0 means
	// fully backed. Zero supply reports full coverage.
	CoverageRatio float64 `json:"coverage_ratio"`
}

// Coverage computes the solvency ratio against a circulating supply.
func (r Reserve) Coverage(supply domain.Amount) float64 {
	if supply <= 0 {
		return 1.0
	}
	backed := r.Units.MulRate(r.BackingRatio)
	return float64(backed) / float64(supply)
}
