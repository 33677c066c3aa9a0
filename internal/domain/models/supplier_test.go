package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupplierRecordRoundTrip(t *testing.T) {
	s := Supplier{
		CompanyName:     "Materion Corporation",
		TickerSymbol:    "MTRN",
		TierLevel:       3,
		Location:        "Mayfield Heights, OH",
		ComponentType:   "AlBeCast Components",
		PrimaryCustomer: "Lockheed Martin",
		Source:          "Airframer",
	}
	back, err := SupplierFromRecord(s.Record())
	require.NoError(t, err)
	assert.Equal(t, s, back)
}

func TestSupplierSetField(t *testing.T) {
	var s Supplier
	require.NoError(t, s.SetField("Tier_Level", "2.0"))
	assert.Equal(t, 2, s.TierLevel)

	err := s.SetField("Revenue", "1")
	assert.ErrorIs(t, err, ErrUnknownSupplierField)

	assert.Error(t, s.SetField("Tier_Level", "two"))
}

func TestSupplierPublic(t *testing.T) {
	assert.True(t, Supplier{TickerSymbol: "DD"}.Public())
	assert.False(t, Supplier{TickerSymbol: "N/A"}.Public())
	assert.False(t, Supplier{TickerSymbol: " "}.Public())
	assert.Equal(t, "Jacon_Fasteners_and_Electronics", Supplier{CompanyName: "Jacon Fasteners & Electronics"}.ColumnName())
}
