package engine

import (
	"math"

	"github.com/username/poolfolio/backend/src/models"
)

// BuildPortfolioSummary combines the share, cash and cost-basis aggregations
// with current market prices into per-member and portfolio-wide figures.
//
// Portfolio totals are sums over the member summaries, with one exception:
// TotalGainLoss = TotalValue - TotalCash - TotalCostBasis. On inconsistent
// input where a member's cash or basis has gone negative this differs from
// summing the members' gain/loss, and consumers reconcile exports against
// exactly this formula.
//
// Members appear in snapshot order, so the output is deterministic for a
// given snapshot.
func BuildPortfolioSummary(snap *models.Snapshot) (*models.PortfolioSummary, error) {
	idx, err := indexSnapshot(snap)
	if err != nil {
		return nil, err
	}

	shares := sharesFromIndex(snap, idx)
	cash := cashFromIndex(snap, idx)
	basis := costBasisFromIndex(snap, idx)

	summary := &models.PortfolioSummary{
		Members: make([]models.MemberSummary, 0, len(snap.Members)),
	}

	for _, m := range snap.Members {
		memberShares := shares[m.ID]
		memberBasis := basis[m.ID]

		// Sum in snapshot order, not map order: float addition is not
		// associative, and the same snapshot must produce bit-identical
		// output on every call.
		var stockValue, costBasis float64
		for _, sec := range snap.Securities {
			stockValue += memberShares[sec.ID] * currentPrice(sec)
			costBasis += memberBasis[sec.ID]
		}
		balance := cash[m.ID]
		gainLoss := stockValue - costBasis
		var gainLossPct float64
		if costBasis > 0 {
			gainLossPct = gainLoss / costBasis * 100
		}

		ms := models.MemberSummary{
			MemberID:           m.ID,
			Name:               m.Name,
			TotalContributions: balance.TotalContributions,
			AvailableCash:      balance.AvailableCash,
			StockValue:         stockValue,
			TotalValue:         stockValue + balance.AvailableCash,
			CostBasis:          costBasis,
			GainLoss:           gainLoss,
			GainLossPercentage: gainLossPct,
		}
		summary.Members = append(summary.Members, ms)

		summary.TotalValue += ms.TotalValue
		summary.TotalCash += ms.AvailableCash
		summary.TotalStockValue += ms.StockValue
		summary.TotalCostBasis += ms.CostBasis
	}

	// Ownership needs the grand total, hence the second pass. A worthless
	// portfolio reports 0 for everyone rather than dividing by zero.
	if summary.TotalValue != 0 {
		for i := range summary.Members {
			summary.Members[i].OwnershipPercentage = summary.Members[i].TotalValue / summary.TotalValue * 100
		}
	}

	summary.TotalGainLoss = summary.TotalValue - summary.TotalCash - summary.TotalCostBasis
	return summary, nil
}

// BuildSecuritySummary restricts the aggregation to one security and breaks
// its ownership down by member. Members whose net position is zero are
// omitted even when they carry residual cost basis; listed percentages are of
// the security's outstanding shares and sum to 100.
func BuildSecuritySummary(securityID int64, snap *models.Snapshot) (*models.SecuritySummary, error) {
	idx, err := indexSnapshot(snap)
	if err != nil {
		return nil, err
	}
	sec, ok := idx.securities[securityID]
	if !ok {
		return nil, &ReferenceNotFoundError{Kind: "security", ID: securityID}
	}

	shares := sharesFromIndex(snap, idx)
	basis := costBasisFromIndex(snap, idx)

	summary := &models.SecuritySummary{
		SecurityID:   sec.ID,
		Symbol:       sec.Symbol,
		Name:         sec.Name,
		CurrentPrice: sec.LastPrice,
		Holders:      []models.SecurityHolding{},
	}

	for _, m := range snap.Members {
		count := shares[m.ID][securityID]
		if math.Abs(count) <= shareEpsilon {
			continue
		}
		summary.Holders = append(summary.Holders, models.SecurityHolding{
			MemberID:  m.ID,
			Name:      m.Name,
			Shares:    count,
			CostBasis: basis[m.ID][securityID],
		})
		summary.TotalShares += count
	}

	if math.Abs(summary.TotalShares) > shareEpsilon {
		for i := range summary.Holders {
			summary.Holders[i].Percentage = summary.Holders[i].Shares / summary.TotalShares * 100
		}
	}
	summary.TotalValue = summary.TotalShares * currentPrice(sec)
	return summary, nil
}
