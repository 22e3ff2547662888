package strategies

// Metrics accumulates per-strategy trade statistics. Not safe for concurrent
// use; callers hold the strategy lock while updating.
type Metrics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	TotalPnL      float64 `json:"total_pnl"`
	GrossProfit   float64 `json:"gross_profit"`
	GrossLoss     float64 `json:"gross_loss"`
	BestTrade     float64 `json:"best_trade"`
	WorstTrade    float64 `json:"worst_trade"`
}

// RecordTrade folds a closed trade's realized P&L into the running stats.
func (m *Metrics) RecordTrade(pnl float64) {
	m.TotalTrades++
	m.TotalPnL += pnl
	switch {
	case pnl > 0:
		m.WinningTrades++
		m.GrossProfit += pnl
	case pnl < 0:
		m.LosingTrades++
		m.GrossLoss += -pnl
	}
	if m.TotalTrades == 1 {
		m.BestTrade = pnl
		m.WorstTrade = pnl
		return
	}
	m.BestTrade = max(m.BestTrade, pnl)
	m.WorstTrade = min(m.WorstTrade, pnl)
}

// WinRate is the fraction of trades that closed positive, 0 with no trades.
func (m *Metrics) WinRate() float64 {
	if m.TotalTrades == 0 {
		return 0
	}
	return float64(m.WinningTrades) / float64(m.TotalTrades)
}

// AverageWin is the mean P&L of winning trades.
func (m *Metrics) AverageWin() float64 {
	if m.WinningTrades == 0 {
		return 0
	}
	return m.GrossProfit / float64(m.WinningTrades)
}

// AverageLoss is the mean (positive) loss of losing trades.
func (m *Metrics) AverageLoss() float64 {
	if m.LosingTrades == 0 {
		return 0
	}
	return m.GrossLoss / float64(m.LosingTrades)
}

// ProfitFactor is gross profit over gross loss. Returns 0 when there is no
// profit, and gross profit itself when there are no losses yet.
func (m *Metrics) ProfitFactor() float64 {
	if m.GrossLoss == 0 {
		return m.GrossProfit
	}
	return m.GrossProfit / m.GrossLoss
}
