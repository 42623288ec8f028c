package models

// Member represents a contributor to the joint account.
type Member struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Contribution is cash deposited by a member into the shared pool.
type Contribution struct {
	ID       int64   `json:"id"`
	MemberID int64   `json:"member_id"`
	Amount   float64 `json:"amount"` // always > 0, enforced at write time
	Date     string  `json:"date"`
	Note     string  `json:"note,omitempty"`
}

// Security is a tradable instrument held in the shared portfolio.
// LastPrice is nil while no quote has ever been fetched.
type Security struct {
	ID             int64    `json:"id"`
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name"`
	LastPrice      *float64 `json:"last_price"`
	PriceUpdatedAt string   `json:"price_updated_at,omitempty"`
}

const (
	TransactionTypeBuy  = "buy"
	TransactionTypeSell = "sell"
)

// Transaction is a buy or sell of a security at a given quantity and price.
// Fractional shares are allowed.
type Transaction struct {
	ID           int64        `json:"id"`
	SecurityID   int64        `json:"security_id"`
	Type         string       `json:"type"` // "buy" or "sell"
	Date         string       `json:"date"`
	Quantity     float64      `json:"quantity"`
	PricePerUnit float64      `json:"price_per_unit"`
	Allocations  []Allocation `json:"allocations,omitempty"`
}

// Total is the derived monetary size of the transaction.
func (t Transaction) Total() float64 {
	return t.Quantity * t.PricePerUnit
}

// Allocation is the split of a transaction's monetary amount across members.
// Percentage is a fraction of the transaction total in (0, 1].
type Allocation struct {
	ID            int64   `json:"id"`
	TransactionID int64   `json:"transaction_id"`
	MemberID      int64   `json:"member_id"`
	Amount        float64 `json:"amount"`
	Percentage    float64 `json:"percentage"`
}

// Snapshot is the full ledger state the accounting engine computes over.
// It is assembled fresh by the storage layer before each computation and is
// never mutated by the engine.
type Snapshot struct {
	Members       []Member       `json:"members"`
	Contributions []Contribution `json:"contributions"`
	Securities    []Security     `json:"securities"`
	Transactions  []Transaction  `json:"transactions"`
	Allocations   []Allocation   `json:"allocations"`
}
