package service

import (
	"testing"

	"marketplace-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldEntries(t *testing.T) {
	ledger := NewLedgerRecorder(nil)

	items := []models.OrderItem{
		{SellerID: 9, Subtotal: 300000},
		{SellerID: 14, Subtotal: 150000},
	}

	entries := ledger.HoldEntries("MKT-AB12CD34", "NGN", items)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(9), entries[0].SellerID)
	assert.Equal(t, models.TxTypeEscrowHold, entries[0].Type)
	assert.Equal(t, models.TxStatusPending, entries[0].Status)
	assert.Equal(t, 300000.0, entries[0].Amount)
	assert.Equal(t, "NGN", entries[0].Currency)
	assert.Contains(t, entries[0].Description, "MKT-AB12CD34")
	assert.Equal(t, int64(14), entries[1].SellerID)
}

func TestReleaseEntries(t *testing.T) {
	ledger := NewLedgerRecorder(nil)

	entries := ledger.ReleaseEntries("MKT-AB12CD34", "NGN", []models.OrderItem{
		{SellerID: 9, Subtotal: 450000},
	})
	require.Len(t, entries, 1)

	assert.Equal(t, models.TxTypeEscrowRelease, entries[0].Type)
	assert.Equal(t, models.TxStatusCompleted, entries[0].Status)
	assert.Equal(t, 450000.0, entries[0].Amount)
}
