package services

import (
	"github.com/username/poolfolio/backend/src/models"
)

// SnapshotLoader supplies a fresh ledger snapshot. The portfolio service
// never queries the database itself; the storage layer hands it plain values.
type SnapshotLoader func() (*models.Snapshot, error)

// PortfolioService runs the accounting engine over current ledger snapshots
// and caches the results until the next ledger write.
type PortfolioService interface {
	GetPortfolioSummary() (*models.PortfolioSummary, error)
	GetSecuritySummary(securityID int64) (*models.SecuritySummary, error)
	ProposeSellAllocations(securityID int64, quantity, pricePerUnit float64) ([]models.ProposedAllocation, error)
	InvalidateCache()
}

// PriceInfo is the outcome of one quote lookup.
type PriceInfo struct {
	Status   string // "OK" or "UNAVAILABLE"
	Price    float64
	Currency string
}

// PriceService fetches current market prices by ticker symbol.
type PriceService interface {
	GetCurrentPrices(symbols []string) (map[string]PriceInfo, error)
}

// EmailService sends account lifecycle mail.
type EmailService interface {
	SendVerificationEmail(toEmail, username, token string) error
	SendPasswordResetEmail(toEmail, username, token string) error
}
