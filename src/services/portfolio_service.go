package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/poolfolio/backend/src/engine"
	"github.com/username/poolfolio/backend/src/logger"
	"github.com/username/poolfolio/backend/src/models"
)

const (
	ckPortfolioSummary = "portfolio_summary"
	ckSecuritySummary  = "security_summary_%d"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type portfolioServiceImpl struct {
	loadSnapshot SnapshotLoader
	reportCache  *cache.Cache
}

func NewPortfolioService(loadSnapshot SnapshotLoader, reportCache *cache.Cache) PortfolioService {
	return &portfolioServiceImpl{
		loadSnapshot: loadSnapshot,
		reportCache:  reportCache,
	}
}

func (s *portfolioServiceImpl) GetPortfolioSummary() (*models.PortfolioSummary, error) {
	if cached, found := s.reportCache.Get(ckPortfolioSummary); found {
		if summary, ok := cached.(*models.PortfolioSummary); ok {
			logger.L.Debug("Portfolio summary served from cache")
			return summary, nil
		}
	}

	snap, err := s.loadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("loading ledger snapshot: %w", err)
	}
	summary, err := engine.BuildPortfolioSummary(snap)
	if err != nil {
		return nil, fmt.Errorf("building portfolio summary: %w", err)
	}

	s.reportCache.Set(ckPortfolioSummary, summary, cache.DefaultExpiration)
	return summary, nil
}

func (s *portfolioServiceImpl) GetSecuritySummary(securityID int64) (*models.SecuritySummary, error) {
	key := fmt.Sprintf(ckSecuritySummary, securityID)
	if cached, found := s.reportCache.Get(key); found {
		if summary, ok := cached.(*models.SecuritySummary); ok {
			logger.L.Debug("Security summary served from cache", "securityID", securityID)
			return summary, nil
		}
	}

	snap, err := s.loadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("loading ledger snapshot: %w", err)
	}
	summary, err := engine.BuildSecuritySummary(securityID, snap)
	if err != nil {
		return nil, err
	}

	s.reportCache.Set(key, summary, cache.DefaultExpiration)
	return summary, nil
}

// ProposeSellAllocations is never cached: proposals are cheap and must always
// reflect the latest holdings.
func (s *portfolioServiceImpl) ProposeSellAllocations(securityID int64, quantity, pricePerUnit float64) ([]models.ProposedAllocation, error) {
	snap, err := s.loadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("loading ledger snapshot: %w", err)
	}
	return engine.ProposeSellAllocations(securityID, quantity, pricePerUnit, snap)
}

// InvalidateCache drops every cached summary. Called after any ledger write
// (contributions, transactions, members, price refreshes).
func (s *portfolioServiceImpl) InvalidateCache() {
	s.reportCache.Flush()
	logger.L.Debug("Portfolio report cache invalidated")
}
