package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMarketSymbol(t *testing.T) {
	symbol, err := NewMarketSymbol("xbt", "usd")

	assert.NoError(t, err)
	assert.Equal(t, "XBT", symbol.BaseAsset)
	assert.Equal(t, "USD", symbol.QuoteAsset)
	assert.Equal(t, "XBT/USD", symbol.String())
}

func TestNewMarketSymbol_Invalid(t *testing.T) {
	_, err := NewMarketSymbol("XBT", "XBT")
	assert.Error(t, err)

	_, err = NewMarketSymbol("", "USD")
	assert.Error(t, err)
}

func TestNewMarketSymbolFromString(t *testing.T) {
	symbol, err := NewMarketSymbolFromString("XBT/USD")

	assert.NoError(t, err)
	assert.Equal(t, "XBT", symbol.BaseAsset)
	assert.Equal(t, "USD", symbol.QuoteAsset)

	_, err = NewMarketSymbolFromString("XBTUSD")
	assert.Error(t, err)
}

func TestMarketSymbol_Equal(t *testing.T) {
	a, _ := NewMarketSymbol("XBT", "USD")
	b, _ := NewMarketSymbolFromString("xbt/usd")
	c, _ := NewMarketSymbol("ETH", "USD")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
