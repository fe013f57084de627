package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func xbtUsdSymbol(t *testing.T) *MarketSymbol {
	t.Helper()
	symbol, err := NewMarketSymbolFromString("XBT/USD")
	if err != nil {
		t.Fatal(err)
	}
	return symbol
}

func xbtUsdSnapshot() *BookSnapshot {
	return &BookSnapshot{
		Asks: [][]string{
			{"5711.80000", "8.13439401", "1557070784.848047"},
			{"5712.20000", "2.00000000", "1557070757.056750"},
			{"5712.80000", "0.30000000", "1557070783.806432"},
			{"5713.00000", "3.29800000", "1557070774.281619"},
			{"5713.10000", "1.00000000", "1557070741.315583"},
			{"5713.90000", "1.00000000", "1557070698.840502"},
			{"5714.70000", "0.50000000", "1557070743.861074"},
			{"5715.20000", "1.00000000", "1557070697.871150"},
			{"5716.60000", "1.22700000", "1557070775.294557"},
			{"5716.80000", "0.35000000", "1557070749.823148"},
		},
		Bids: [][]string{
			{"5711.70000", "0.00749800", "1557070712.848376"},
			{"5709.20000", "3.30000000", "1557070766.260894"},
			{"5708.30000", "0.75483907", "1557070781.425374"},
			{"5708.20000", "5.00000000", "1557070780.762871"},
			{"5707.80000", "2.50000000", "1557070722.912548"},
			{"5707.40000", "4.33000000", "1557070732.546143"},
			{"5707.00000", "0.00200000", "1557070604.962840"},
			{"5706.90000", "1.17300000", "1557070715.529722"},
			{"5706.40000", "0.85600000", "1557070777.204262"},
			{"5706.30000", "1.00000000", "1557070753.118938"},
		},
	}
}

// First diff: raises bid 5709.20, deletes bid 5708.20, inserts the
// republished bid 5705.90.
func xbtUsdUpdate1() *BookUpdate {
	return &BookUpdate{
		Bids: [][]string{
			{"5709.20000", "3.00000000", "1557070785.898642"},
			{"5708.20000", "0.00000000", "1557070786.010118"},
			{"5705.90000", "7.62400000", "1557070783.582385", "r"},
		},
		Checksum: "2470128591",
	}
}

func xbtUsdUpdate2() *BookUpdate {
	return &BookUpdate{
		Bids: [][]string{
			{"5709.20000", "8.00000000", "1557070786.250425"},
			{"5709.40000", "0.30000000", "1557070786.259115"},
		},
		Checksum: "4148072505",
	}
}

func xbtUsdUpdate3() *BookUpdate {
	return &BookUpdate{
		Bids: [][]string{
			{"5708.30000", "0.00000000", "1557070786.389495"},
			{"5705.90000", "7.62400000", "1557070783.582385", "r"},
		},
		Checksum: "3093569863",
	}
}

func snapshotAsks() []Level {
	return []Level{
		{5711.80, 8.13439401},
		{5712.20, 2.00000000},
		{5712.80, 0.30000000},
		{5713.00, 3.29800000},
		{5713.10, 1.00000000},
		{5713.90, 1.00000000},
		{5714.70, 0.50000000},
		{5715.20, 1.00000000},
		{5716.60, 1.22700000},
		{5716.80, 0.35000000},
	}
}

func TestOrderBook_Initialize(t *testing.T) {
	ob := NewOrderBook(xbtUsdSymbol(t), 10)

	dropped := ob.Initialize(xbtUsdSnapshot())

	assert.Equal(t, 0, dropped)
	assert.Len(t, ob.Asks, 10)
	assert.Len(t, ob.Bids, 10)
	assertSideInvariants(t, ob)

	for _, ask := range ob.Asks {
		assert.Greater(t, ask.Price, 5711.75)
	}
	for _, bid := range ob.Bids {
		assert.Less(t, bid.Price, 5711.75)
	}
}

func TestOrderBook_Initialize_DropsUnparsableEntries(t *testing.T) {
	ob := NewOrderBook(xbtUsdSymbol(t), 10)

	dropped := ob.Initialize(&BookSnapshot{
		Asks: [][]string{
			{"5712.00000", "1.00000000", "0"},
			{"not-a-price", "1.00000000", "0"},
			{"5713.00000", "broken", "0"},
		},
		Bids: [][]string{
			{"5711.00000", "2.00000000", "0"},
		},
	})

	assert.Equal(t, 2, dropped)
	assert.Equal(t, []Level{{5712, 1}}, ob.Asks)
	assert.Equal(t, []Level{{5711, 2}}, ob.Bids)
}

func TestOrderBook_Initialize_TakesAtMostDepthEntries(t *testing.T) {
	ob := NewOrderBook(xbtUsdSymbol(t), 2)

	ob.Initialize(&BookSnapshot{
		Asks: [][]string{
			{"5714.00000", "1.00000000", "0"},
			{"5712.00000", "1.00000000", "0"},
			{"5713.00000", "1.00000000", "0"},
		},
		Bids: [][]string{
			{"5711.00000", "1.00000000", "0"},
			{"5710.00000", "1.00000000", "0"},
			{"5709.00000", "1.00000000", "0"},
		},
	})

	// The first depth entries in source order are kept, then sorted.
	assert.Equal(t, []Level{{5712, 1}, {5714, 1}}, ob.Asks)
	assert.Equal(t, []Level{{5711, 1}, {5710, 1}}, ob.Bids)
}

func TestOrderBook_Initialize_AbsentSideIsUntouched(t *testing.T) {
	ob := NewOrderBook(xbtUsdSymbol(t), 10)
	ob.Initialize(xbtUsdSnapshot())

	ob.Initialize(&BookSnapshot{
		Bids: [][]string{{"5700.00000", "1.00000000", "0"}},
	})

	assert.Equal(t, snapshotAsks(), ob.Asks)
	assert.Equal(t, []Level{{5700, 1}}, ob.Bids)
}

func TestOrderBook_ApplyUpdate_DeleteAbsentPriceIsNoop(t *testing.T) {
	ob := NewOrderBook(xbtUsdSymbol(t), 10)
	ob.Initialize(xbtUsdSnapshot())
	before := append([]Level(nil), ob.Bids...)

	ob.ApplyUpdate(&BookUpdate{
		Bids: [][]string{{"5700.00000", "0.00000000", "0"}},
	})

	assert.Equal(t, before, ob.Bids)
	assert.Equal(t, snapshotAsks(), ob.Asks)
}

func TestOrderBook_ApplyUpdate_ReplacesVolumeInPlace(t *testing.T) {
	ob := NewOrderBook(xbtUsdSymbol(t), 10)
	ob.Initialize(xbtUsdSnapshot())

	ob.ApplyUpdate(&BookUpdate{
		Asks: [][]string{{"5713.00000", "5.00000000", "0"}},
	})

	assert.Len(t, ob.Asks, 10)
	assert.Equal(t, Level{5713.00, 5.0}, ob.Asks[3])
	assertSideInvariants(t, ob)
}

func TestOrderBook_ApplyUpdate_InsertEvictsWorstLevel(t *testing.T) {
	ob := NewOrderBook(xbtUsdSymbol(t), 10)
	ob.Initialize(xbtUsdSnapshot())

	ob.ApplyUpdate(&BookUpdate{
		Asks: [][]string{{"5712.00000", "1.50000000", "0"}},
	})

	assert.Len(t, ob.Asks, 10)
	assert.Equal(t, Level{5712.00, 1.5}, ob.Asks[1])
	// The worst-ranked ask is evicted, not the inserted one.
	assert.Equal(t, Level{5716.60, 1.227}, ob.Asks[9])
	assertSideInvariants(t, ob)
}

func TestOrderBook_ApplyUpdate_ScenarioUpdate1(t *testing.T) {
	ob := NewOrderBook(xbtUsdSymbol(t), 10)
	ob.Initialize(xbtUsdSnapshot())

	ob.ApplyUpdate(xbtUsdUpdate1())

	assert.Equal(t, snapshotAsks(), ob.Asks, "asks must be unchanged")
	assert.Equal(t, []Level{
		{5711.70, 0.00749800},
		{5709.20, 3.00000000},
		{5708.30, 0.75483907},
		{5707.80, 2.50000000},
		{5707.40, 4.33000000},
		{5707.00, 0.00200000},
		{5706.90, 1.17300000},
		{5706.40, 0.85600000},
		{5706.30, 1.00000000},
		{5705.90, 7.62400000},
	}, ob.Bids)
}

func TestOrderBook_ApplyUpdate_ScenarioUpdate2(t *testing.T) {
	ob := NewOrderBook(xbtUsdSymbol(t), 10)
	ob.Initialize(xbtUsdSnapshot())
	ob.ApplyUpdate(xbtUsdUpdate1())

	ob.ApplyUpdate(xbtUsdUpdate2())

	// 5709.40 lands ahead of 5709.20 and the lowest bid is evicted.
	assert.Equal(t, []Level{
		{5711.70, 0.00749800},
		{5709.40, 0.30000000},
		{5709.20, 8.00000000},
		{5708.30, 0.75483907},
		{5707.80, 2.50000000},
		{5707.40, 4.33000000},
		{5707.00, 0.00200000},
		{5706.90, 1.17300000},
		{5706.40, 0.85600000},
		{5706.30, 1.00000000},
	}, ob.Bids)
}

func TestOrderBook_ApplyUpdate_ScenarioUpdate3(t *testing.T) {
	ob := NewOrderBook(xbtUsdSymbol(t), 10)
	ob.Initialize(xbtUsdSnapshot())
	ob.ApplyUpdate(xbtUsdUpdate1())
	ob.ApplyUpdate(xbtUsdUpdate2())

	ob.ApplyUpdate(xbtUsdUpdate3())

	assert.Equal(t, []Level{
		{5711.70, 0.00749800},
		{5709.40, 0.30000000},
		{5709.20, 8.00000000},
		{5707.80, 2.50000000},
		{5707.40, 4.33000000},
		{5707.00, 0.00200000},
		{5706.90, 1.17300000},
		{5706.40, 0.85600000},
		{5706.30, 1.00000000},
		{5705.90, 7.62400000},
	}, ob.Bids)
}

func TestOrderBook_TakeSnapshot(t *testing.T) {
	ob := NewOrderBook(xbtUsdSymbol(t), 10)
	ob.Initialize(xbtUsdSnapshot())

	snapshot := ob.TakeSnapshot(2)

	assert.Equal(t, [][]string{
		{"5711.8", "8.13439401"},
		{"5712.2", "2"},
	}, snapshot.Asks)
	assert.Equal(t, [][]string{
		{"5711.7", "0.007498"},
		{"5709.2", "3.3"},
	}, snapshot.Bids)
}

func TestOrderBook_String(t *testing.T) {
	ob := NewOrderBook(xbtUsdSymbol(t), 10)
	ob.Initialize(xbtUsdSnapshot())

	rendered := ob.String()

	assert.True(t, strings.HasPrefix(rendered, "Order Book: XBT/USD\n"))
	assert.Contains(t, rendered, "5711.70000 (0.00749800)")
	assert.Contains(t, rendered, "5711.80000 (8.13439401)")
	// header + depth rows
	assert.Len(t, strings.Split(strings.TrimRight(rendered, "\n"), "\n"), 12)
}

func assertSideInvariants(t *testing.T, ob *OrderBook) {
	t.Helper()

	assert.LessOrEqual(t, len(ob.Asks), ob.Depth())
	assert.LessOrEqual(t, len(ob.Bids), ob.Depth())

	for i := 1; i < len(ob.Asks); i++ {
		assert.Less(t, ob.Asks[i-1].Price, ob.Asks[i].Price, "asks must be strictly ascending")
	}
	for i := 1; i < len(ob.Bids); i++ {
		assert.Greater(t, ob.Bids[i-1].Price, ob.Bids[i].Price, "bids must be strictly descending")
	}
}
