package identdialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuote(t *testing.T) {
	assert.Equal(t, "[Person]", Quote("Person"))
	assert.Equal(t, "[Order]]s]", Quote("Order]s"))
}

func TestQuoteQualified(t *testing.T) {
	assert.Equal(t, "[dbo].[Person]", QuoteQualified("dbo.Person"))
}

func TestIsReserved(t *testing.T) {
	assert.True(t, IsReserved("select"))
	assert.True(t, IsReserved("ORDER"))
	assert.False(t, IsReserved("Person"))
}

func TestMintParam(t *testing.T) {
	assert.Equal(t, "@p__linq__0", MintParam(0))
	assert.Equal(t, "@p__linq__17", MintParam(17))
}

func TestQuoteAlwaysApplied(t *testing.T) {
	// Quoting must be unconditional, even for non-reserved identifiers.
	assert.False(t, IsReserved("Age"))
	assert.Equal(t, "[Age]", Quote("Age"))
}
