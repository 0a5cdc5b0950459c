package models

import (
	"time"

	"dustledger/pkg/domain"
)

// EconomySnapshot is a point-in-time aggregate of the whole economy. All
// values are best effort; a failed source leaves its fields neutral and is
// listed in Degraded with Partial set.
type EconomySnapshot struct {
	TakenAt time.Time `json:"taken_at"`

	Accounts        int `json:"accounts"`
	ActiveAccounts  int `json:"active_accounts"`
	DormantAccounts int `json:"dormant_accounts"`

	CirculatingSupply domain.Amount `json:"circulating_supply"`
	StakedTotal       domain.Amount `json:"staked_total"`
	ReserveUnits      domain.Amount `json:"reserve_units"`
	ReserveCoverage   float64       `json:"reserve_coverage"`

	// Gini measures wealth inequality over balance+staked, 0 for an empty
	// or zero-sum economy.
	Gini           float64 `json:"gini"`
	TopDecileShare float64 `json:"top_decile_share"`

	ActiveProposals int `json:"active_proposals"`

	Partial  bool     `json:"partial"`
	Degraded []string `json:"degraded,omitempty"`
}

// TrajectoryDay aggregates one UTC day of ledger activity.
type TrajectoryDay struct {
	Date         time.Time     `json:"date"`
	Transactions int           `json:"transactions"`
	Volume       domain.Amount `json:"volume"`
	Credits      domain.Amount `json:"credits"`
	Debits       domain.Amount `json:"debits"`
	Burned       domain.Amount `json:"burned"`
	NetFlow      domain.Amount `json:"net_flow"`
	Voters       int           `json:"voters"`
}

// SystemTrajectory compares the trailing window against the one before it
// so dashboards can show direction, not just level.
type SystemTrajectory struct {
	WindowDays int             `json:"window_days"`
	Days       []TrajectoryDay `json:"days"`

	CurrentVolume  domain.Amount `json:"current_volume"`
	PreviousVolume domain.Amount `json:"previous_volume"`
	// VolumeTrend is current/previous minus one; 0 when the previous
	// window saw no activity.
	VolumeTrend float64 `json:"volume_trend"`

	CurrentVoters  int `json:"current_voters"`
	PreviousVoters int `json:"previous_voters"`

	Partial  bool     `json:"partial"`
	Degraded []string `json:"degraded,omitempty"`
}

// Pattern is one emergence detector's verdict. Confidence is 0 when the
// detector found nothing or is a placeholder awaiting real heuristics.
type Pattern struct {
	Name       string            `json:"name"`
	Detected   bool              `json:"detected"`
	Confidence float64           `json:"confidence"`
	Evidence   map[string]string `json:"evidence,omitempty"`
}

// Detector names.
const (
	PatternWealthConcentration = "wealth_concentration"
	PatternReputationVelocity  = "reputation_velocity"
	PatternCoordinatedVoting   = "coordinated_voting"
	PatternWashTrading         = "wash_trading"
)
