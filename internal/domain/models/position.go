package models

// Position is an open position owned by the portfolio collaborator.
// This core only ever reads snapshots of it.
type Position struct {
	Symbol       string
	Side         Direction // LONG or SHORT
	Notional     float64
	EntryPrice   float64
	CurrentPrice float64
}

// UnrealizedPnL returns the mark-to-market profit or loss of the position.
func (p Position) UnrealizedPnL() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	move := (p.CurrentPrice - p.EntryPrice) / p.EntryPrice
	if p.Side == DirectionShort {
		move = -move
	}
	return p.Notional * move
}

// PortfolioSnapshot is a read-only view of the account at cycle start.
type PortfolioSnapshot struct {
	TotalCapital     float64
	Positions        map[string]Position // keyed by symbol
	DailyRealizedPnL float64
}

// TotalExposure sums notional across all open positions.
func (s PortfolioSnapshot) TotalExposure() float64 {
	var total float64
	for _, p := range s.Positions {
		total += p.Notional
	}
	return total
}

// TotalUnrealizedPnL sums mark-to-market PnL across all open positions.
func (s PortfolioSnapshot) TotalUnrealizedPnL() float64 {
	var total float64
	for _, p := range s.Positions {
		total += p.UnrealizedPnL()
	}
	return total
}
