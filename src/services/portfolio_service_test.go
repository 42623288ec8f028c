package services

import (
	"errors"
	"os"
	"testing"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/poolfolio/backend/src/logger"
	"github.com/username/poolfolio/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func floatPtr(v float64) *float64 { return &v }

func ledgerSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Members: []models.Member{
			{ID: 1, Name: "Alice"},
			{ID: 2, Name: "Bob"},
		},
		Contributions: []models.Contribution{
			{ID: 1, MemberID: 1, Amount: 1000, Date: "2024-01-02"},
			{ID: 2, MemberID: 2, Amount: 1000, Date: "2024-01-02"},
		},
		Securities: []models.Security{
			{ID: 1, Symbol: "ACME", Name: "Acme Corp", LastPrice: floatPtr(120)},
		},
		Transactions: []models.Transaction{
			{ID: 1, SecurityID: 1, Type: models.TransactionTypeBuy, Date: "2024-02-01", Quantity: 10, PricePerUnit: 100,
				Allocations: []models.Allocation{
					{ID: 1, TransactionID: 1, MemberID: 1, Amount: 600, Percentage: 0.6},
					{ID: 2, TransactionID: 1, MemberID: 2, Amount: 400, Percentage: 0.4},
				}},
		},
		Allocations: []models.Allocation{
			{ID: 1, TransactionID: 1, MemberID: 1, Amount: 600, Percentage: 0.6},
			{ID: 2, TransactionID: 1, MemberID: 2, Amount: 400, Percentage: 0.4},
		},
	}
}

type countingLoader struct {
	calls int
	err   error
}

func (c *countingLoader) load() (*models.Snapshot, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return ledgerSnapshot(), nil
}

func newTestService(loader *countingLoader) PortfolioService {
	reportCache := cache.New(DefaultCacheExpiration, CacheCleanupInterval)
	return NewPortfolioService(loader.load, reportCache)
}

func TestGetPortfolioSummaryCachesResult(t *testing.T) {
	loader := &countingLoader{}
	svc := newTestService(loader)

	first, err := svc.GetPortfolioSummary()
	require.NoError(t, err)
	second, err := svc.GetPortfolioSummary()
	require.NoError(t, err)

	assert.Equal(t, 1, loader.calls, "second call should be served from cache")
	assert.Equal(t, first, second)
	assert.InDelta(t, 2200, first.TotalValue, 1e-9)
}

func TestInvalidateCacheForcesReload(t *testing.T) {
	loader := &countingLoader{}
	svc := newTestService(loader)

	_, err := svc.GetPortfolioSummary()
	require.NoError(t, err)
	svc.InvalidateCache()
	_, err = svc.GetPortfolioSummary()
	require.NoError(t, err)

	assert.Equal(t, 2, loader.calls)
}

func TestGetSecuritySummaryCachesPerSecurity(t *testing.T) {
	loader := &countingLoader{}
	svc := newTestService(loader)

	summary, err := svc.GetSecuritySummary(1)
	require.NoError(t, err)
	assert.Equal(t, "ACME", summary.Symbol)
	assert.InDelta(t, 10, summary.TotalShares, 1e-9)

	_, err = svc.GetSecuritySummary(1)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls)
}

func TestProposeSellAllocationsNeverCached(t *testing.T) {
	loader := &countingLoader{}
	svc := newTestService(loader)

	for i := 0; i < 3; i++ {
		proposals, err := svc.ProposeSellAllocations(1, 5, 120)
		require.NoError(t, err)
		require.Len(t, proposals, 2)
	}
	assert.Equal(t, 3, loader.calls, "proposals must always see the latest ledger")
}

func TestLoaderErrorPropagates(t *testing.T) {
	loader := &countingLoader{err: errors.New("db closed")}
	svc := newTestService(loader)

	_, err := svc.GetPortfolioSummary()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db closed")
}
