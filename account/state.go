package account

import "time"

// Account types recognized by limit auto-detection.
const (
	TypeEvaluation    = "evaluation"
	TypeExpressFunded = "express_funded"
	TypeLiveFunded    = "live_funded"
	TypePractice      = "practice"
)

// State is the full tracked state of one account. Callers only ever see value
// copies; the tracker owns the mutable instance.
//
// CurrentBalance is always derived:
//
//	starting + realized + unrealized - commissions - fees
//
// and recomputed on every fill or mark-to-market, never stored independently.
type State struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	AccountType string `json:"account_type"`

	StartingBalance   float64 `json:"starting_balance"`
	CurrentBalance    float64 `json:"current_balance"`
	HighestEODBalance float64 `json:"highest_eod_balance"`

	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	Commissions   float64 `json:"commissions"`
	Fees          float64 `json:"fees"`

	DailyLossLimit    float64 `json:"daily_loss_limit"`
	MaximumLossLimit  float64 `json:"maximum_loss_limit"`
	DrawdownThreshold float64 `json:"drawdown_threshold"`

	IsCompliant     bool   `json:"is_compliant"`
	ViolationReason string `json:"violation_reason,omitempty"`

	LastUpdate    time.Time `json:"last_update"`
	LastEODUpdate time.Time `json:"last_eod_update"`

	TotalTrades   int `json:"total_trades"`
	WinningTrades int `json:"winning_trades"`
	LosingTrades  int `json:"losing_trades"`
}

// NetPnL is (realized + unrealized) - (commissions + fees). The daily-loss
// check runs against this cumulative figure; realized P&L is never reset at
// end of day.
func (s *State) NetPnL() float64 {
	return (s.RealizedPnL + s.UnrealizedPnL) - (s.Commissions + s.Fees)
}

// DrawdownFromHigh is the distance fallen from the highest end-of-day balance.
func (s *State) DrawdownFromHigh() float64 {
	return s.HighestEODBalance - s.CurrentBalance
}

// RemainingDailyLoss is the loss capacity left before the DLL trips
// (positive while within the limit).
func (s *State) RemainingDailyLoss() float64 {
	return s.DailyLossLimit + s.NetPnL()
}

// RemainingTotalLoss is the distance above the trailing drawdown threshold.
func (s *State) RemainingTotalLoss() float64 {
	return s.CurrentBalance - s.DrawdownThreshold
}

// Fill describes one filled order as reported by the execution collaborator.
// PnL is the realized result of any closing portion of the fill.
type Fill struct {
	Symbol     string
	Side       string
	Quantity   int
	Price      float64
	Commission float64
	Fee        float64
	PnL        float64
}

// ComplianceReport is the read-only compliance view consumed by gating logic
// and external dashboards.
type ComplianceReport struct {
	IsCompliant bool

	DLLLimit     float64
	DLLUsed      float64
	DLLRemaining float64
	DLLViolated  bool

	MLLLimit     float64
	MLLUsed      float64
	MLLRemaining float64
	MLLViolated  bool

	TrailingLoss float64
	Violations   []string
}
