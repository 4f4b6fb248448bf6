package domain

// PortfolioSnapshot is derived on demand from the live position set and
// current prices. It is never persisted.
type PortfolioSnapshot struct {
	TotalValue         float64 `json:"total_value"`
	TotalPnl           float64 `json:"total_pnl"`
	TotalPnlPercentage float64 `json:"total_pnl_percentage"`
	ActivePositions    int     `json:"active_positions"`
	WinRate            float64 `json:"win_rate"`
}
