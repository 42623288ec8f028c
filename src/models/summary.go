package models

// CashBalance breaks down a member's cash position.
// AvailableCash = TotalContributions - TotalBuys + TotalSells.
type CashBalance struct {
	TotalContributions float64 `json:"total_contributions"`
	TotalBuys          float64 `json:"total_buys"`
	TotalSells         float64 `json:"total_sells"`
	AvailableCash      float64 `json:"available_cash"`
}

// MemberSummary is one member's slice of the portfolio.
// Percentages are 0-100 values; OwnershipPercentage is the member's share of
// the combined total value of all members.
type MemberSummary struct {
	MemberID            int64   `json:"member_id"`
	Name                string  `json:"name"`
	TotalContributions  float64 `json:"total_contributions"`
	AvailableCash       float64 `json:"available_cash"`
	StockValue          float64 `json:"stock_value"`
	TotalValue          float64 `json:"total_value"`
	CostBasis           float64 `json:"cost_basis"`
	GainLoss            float64 `json:"gain_loss"`
	GainLossPercentage  float64 `json:"gain_loss_percentage"`
	OwnershipPercentage float64 `json:"ownership_percentage"`
}

// PortfolioSummary is the portfolio-wide roll-up of all member summaries.
type PortfolioSummary struct {
	TotalValue      float64         `json:"total_value"`
	TotalCash       float64         `json:"total_cash"`
	TotalStockValue float64         `json:"total_stock_value"`
	TotalCostBasis  float64         `json:"total_cost_basis"`
	TotalGainLoss   float64         `json:"total_gain_loss"`
	Members         []MemberSummary `json:"members"`
}

// SecurityHolding is one member's stake in a single security.
// Percentage is the member's share of the security's outstanding shares.
type SecurityHolding struct {
	MemberID   int64   `json:"member_id"`
	Name       string  `json:"name"`
	Shares     float64 `json:"shares"`
	CostBasis  float64 `json:"cost_basis"`
	Percentage float64 `json:"percentage"`
}

// SecuritySummary is the per-member ownership breakdown of one security.
// Holders lists only members with nonzero current shares.
type SecuritySummary struct {
	SecurityID   int64             `json:"security_id"`
	Symbol       string            `json:"symbol"`
	Name         string            `json:"name"`
	CurrentPrice *float64          `json:"current_price"`
	TotalShares  float64           `json:"total_shares"`
	TotalValue   float64           `json:"total_value"`
	Holders      []SecurityHolding `json:"holders"`
}

// ProposedAllocation is one row of a proportional sell-allocation proposal.
// Percentage is a fraction in (0, 1]. Proposals are never persisted by the
// engine; the caller reconciles rounding before writing real allocations.
type ProposedAllocation struct {
	MemberID   int64   `json:"member_id"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}
