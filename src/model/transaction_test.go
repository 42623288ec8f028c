package model

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/username/poolfolio/backend/src/database"
	"github.com/username/poolfolio/backend/src/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.CreateTables(db))
	return db
}

func seedLedger(t *testing.T, db *sql.DB) (alice, bob models.Member, acme models.Security) {
	t.Helper()
	alice = models.Member{Name: "Alice", IsAdmin: true}
	bob = models.Member{Name: "Bob"}
	require.NoError(t, CreateMember(db, &alice))
	require.NoError(t, CreateMember(db, &bob))

	acme = models.Security{Symbol: "ACME", Name: "Acme Corp"}
	require.NoError(t, CreateSecurity(db, &acme))

	require.NoError(t, CreateContribution(db, &models.Contribution{MemberID: alice.ID, Amount: 1000, Date: "2024-01-02"}))
	require.NoError(t, CreateContribution(db, &models.Contribution{MemberID: bob.ID, Amount: 1000, Date: "2024-01-03"}))
	return alice, bob, acme
}

func TestCreateTransactionWithAllocations(t *testing.T) {
	db := newTestDB(t)
	alice, bob, acme := seedLedger(t, db)

	tx := models.Transaction{
		SecurityID:   acme.ID,
		Type:         models.TransactionTypeBuy,
		Date:         "2024-01-10",
		Quantity:     10,
		PricePerUnit: 100,
		Allocations: []models.Allocation{
			{MemberID: alice.ID, Amount: 600, Percentage: 0.6},
			{MemberID: bob.ID, Amount: 400, Percentage: 0.4},
		},
	}
	require.NoError(t, CreateTransaction(db, &tx))
	assert.NotZero(t, tx.ID)
	assert.NotZero(t, tx.Allocations[0].ID)
	assert.Equal(t, tx.ID, tx.Allocations[0].TransactionID)

	listed, err := ListTransactions(db)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Len(t, listed[0].Allocations, 2)
}

func TestCreateTransactionValidation(t *testing.T) {
	db := newTestDB(t)
	alice, bob, acme := seedLedger(t, db)

	tests := []struct {
		name string
		tx   models.Transaction
	}{
		{
			name: "allocations must sum to total",
			tx: models.Transaction{
				SecurityID: acme.ID, Type: models.TransactionTypeBuy, Date: "2024-01-10",
				Quantity: 10, PricePerUnit: 100,
				Allocations: []models.Allocation{
					{MemberID: alice.ID, Amount: 600, Percentage: 0.6},
					{MemberID: bob.ID, Amount: 300, Percentage: 0.3},
				},
			},
		},
		{
			name: "duplicate member allocation",
			tx: models.Transaction{
				SecurityID: acme.ID, Type: models.TransactionTypeBuy, Date: "2024-01-10",
				Quantity: 10, PricePerUnit: 100,
				Allocations: []models.Allocation{
					{MemberID: alice.ID, Amount: 600, Percentage: 0.6},
					{MemberID: alice.ID, Amount: 400, Percentage: 0.4},
				},
			},
		},
		{
			name: "zero quantity",
			tx: models.Transaction{
				SecurityID: acme.ID, Type: models.TransactionTypeBuy, Date: "2024-01-10",
				Quantity: 0, PricePerUnit: 100,
				Allocations: []models.Allocation{{MemberID: alice.ID, Amount: 0, Percentage: 1}},
			},
		},
		{
			name: "bad type",
			tx: models.Transaction{
				SecurityID: acme.ID, Type: "short", Date: "2024-01-10",
				Quantity: 10, PricePerUnit: 100,
				Allocations: []models.Allocation{{MemberID: alice.ID, Amount: 1000, Percentage: 1}},
			},
		},
		{
			name: "percentage above one",
			tx: models.Transaction{
				SecurityID: acme.ID, Type: models.TransactionTypeSell, Date: "2024-01-10",
				Quantity: 10, PricePerUnit: 100,
				Allocations: []models.Allocation{{MemberID: alice.ID, Amount: 1000, Percentage: 1.5}},
			},
		},
		{
			name: "no allocations",
			tx: models.Transaction{
				SecurityID: acme.ID, Type: models.TransactionTypeBuy, Date: "2024-01-10",
				Quantity: 10, PricePerUnit: 100,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := tt.tx
			require.Error(t, CreateTransaction(db, &tx))

			listed, err := ListTransactions(db)
			require.NoError(t, err)
			assert.Empty(t, listed, "nothing may be written on a rejected transaction")
		})
	}
}

func TestCreateTransactionToleratesRoundingResidue(t *testing.T) {
	db := newTestDB(t)
	alice, bob, acme := seedLedger(t, db)

	// Allocations sum to 1000.003 against a 1000 total; inside the 0.01
	// currency tolerance.
	tx := models.Transaction{
		SecurityID: acme.ID, Type: models.TransactionTypeBuy, Date: "2024-01-10",
		Quantity: 10, PricePerUnit: 100,
		Allocations: []models.Allocation{
			{MemberID: alice.ID, Amount: 600.004, Percentage: 0.6},
			{MemberID: bob.ID, Amount: 399.999, Percentage: 0.4},
		},
	}
	assert.NoError(t, CreateTransaction(db, &tx))
}

func TestDeleteMemberCascades(t *testing.T) {
	db := newTestDB(t)
	alice, bob, acme := seedLedger(t, db)

	tx := models.Transaction{
		SecurityID: acme.ID, Type: models.TransactionTypeBuy, Date: "2024-01-10",
		Quantity: 10, PricePerUnit: 100,
		Allocations: []models.Allocation{
			{MemberID: alice.ID, Amount: 600, Percentage: 0.6},
			{MemberID: bob.ID, Amount: 400, Percentage: 0.4},
		},
	}
	require.NoError(t, CreateTransaction(db, &tx))

	require.NoError(t, DeleteMember(db, alice.ID))

	snap, err := LoadSnapshot(db)
	require.NoError(t, err)
	require.Len(t, snap.Members, 1)
	assert.Equal(t, bob.ID, snap.Members[0].ID)
	require.Len(t, snap.Contributions, 1)
	assert.Equal(t, bob.ID, snap.Contributions[0].MemberID)
	require.Len(t, snap.Allocations, 1)
	assert.Equal(t, bob.ID, snap.Allocations[0].MemberID)
	// The transaction itself survives; only the member's allocation went.
	assert.Len(t, snap.Transactions, 1)
}

func TestDeleteTransactionRemovesAllocations(t *testing.T) {
	db := newTestDB(t)
	alice, bob, acme := seedLedger(t, db)

	tx := models.Transaction{
		SecurityID: acme.ID, Type: models.TransactionTypeBuy, Date: "2024-01-10",
		Quantity: 10, PricePerUnit: 100,
		Allocations: []models.Allocation{
			{MemberID: alice.ID, Amount: 600, Percentage: 0.6},
			{MemberID: bob.ID, Amount: 400, Percentage: 0.4},
		},
	}
	require.NoError(t, CreateTransaction(db, &tx))
	require.NoError(t, DeleteTransaction(db, tx.ID))

	snap, err := LoadSnapshot(db)
	require.NoError(t, err)
	assert.Empty(t, snap.Transactions)
	assert.Empty(t, snap.Allocations)
}

func TestLoadSnapshotShape(t *testing.T) {
	db := newTestDB(t)
	_, _, acme := seedLedger(t, db)

	snap, err := LoadSnapshot(db)
	require.NoError(t, err)

	assert.Len(t, snap.Members, 2)
	assert.Len(t, snap.Contributions, 2)
	require.Len(t, snap.Securities, 1)
	assert.Nil(t, snap.Securities[0].LastPrice, "price starts unknown")
	assert.Empty(t, snap.Transactions)
	assert.Empty(t, snap.Allocations)

	require.NoError(t, UpdateSecurityPrice(db, acme.ID, 120.5))
	snap, err = LoadSnapshot(db)
	require.NoError(t, err)
	require.NotNil(t, snap.Securities[0].LastPrice)
	assert.InDelta(t, 120.5, *snap.Securities[0].LastPrice, 1e-9)
}

func TestDeleteSecurityWithTransactionsRefused(t *testing.T) {
	db := newTestDB(t)
	alice, _, acme := seedLedger(t, db)

	tx := models.Transaction{
		SecurityID: acme.ID, Type: models.TransactionTypeBuy, Date: "2024-01-10",
		Quantity: 1, PricePerUnit: 50,
		Allocations: []models.Allocation{{MemberID: alice.ID, Amount: 50, Percentage: 1}},
	}
	require.NoError(t, CreateTransaction(db, &tx))

	assert.Error(t, DeleteSecurity(db, acme.ID))
}
