package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPreferenceProfile(t *testing.T) {
	transactions := []Transaction{
		{ID: "t1", UserID: "u1", ProductID: "p1", Amount: 59999, Category: "electronics", Status: TransactionCompleted},
		{ID: "t2", UserID: "u1", ProductID: "p2", Amount: 19999, Category: "electronics", Status: TransactionCompleted},
		{ID: "t3", UserID: "u1", ProductID: "p3", Amount: 9999, Category: "books", Status: TransactionCompleted},
	}

	profile := NewPreferenceProfile(transactions)

	assert.Equal(t, 3, profile.TransactionCount)
	assert.Equal(t, 2, profile.CategoryCounts["electronics"])
	assert.Equal(t, 1, profile.CategoryCounts["books"])
	// 599.99 + 199.99 + 99.99 = 899.97, средний чек 299.99
	assert.Equal(t, "899.97", profile.TotalAmount.StringFixed(2))
	assert.Equal(t, "299.99", profile.AvgAmount.StringFixed(2))
}

func TestNewPreferenceProfile_Empty(t *testing.T) {
	profile := NewPreferenceProfile(nil)

	assert.Equal(t, 0, profile.TransactionCount)
	assert.Empty(t, profile.CategoryCounts)
	assert.True(t, profile.TotalAmount.IsZero())
	assert.True(t, profile.AvgAmount.IsZero())
}

func TestTopCategories_Deterministic(t *testing.T) {
	profile := NewPreferenceProfile([]Transaction{
		{Category: "books", Amount: 100},
		{Category: "toys", Amount: 100},
		{Category: "electronics", Amount: 100},
		{Category: "electronics", Amount: 100},
	})

	got := profile.TopCategories()
	require.Len(t, got, 3)

	// electronics чаще всех, books и toys с равной частотой идут по алфавиту
	assert.Equal(t, []string{"electronics", "books", "toys"}, got)
}

func TestPreferenceProfile_AttributeRecord(t *testing.T) {
	profile := NewPreferenceProfile([]Transaction{
		{Category: "books", Amount: 15000},
	})

	record := profile.AttributeRecord()

	counts, ok := record["categories"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, counts["books"])
	assert.InDelta(t, 150.0, record["avg_amount"], 1e-9)
	assert.InDelta(t, 150.0, record["total_spent"], 1e-9)
}
