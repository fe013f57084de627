package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Level is one resting quantity at a price. Levels are matched by exact
// float64 price equality, which relies on the feed formatting a given
// price the same way in every message.
type Level struct {
	Price  float64
	Volume float64
}

// BookSnapshot carries the full depth of both sides as it appears on the
// wire: each entry is a [price, volume, timestamp] triple of decimal strings.
type BookSnapshot struct {
	Asks [][]string
	Bids [][]string
}

// BookUpdate carries an incremental diff for one or both sides. Entries are
// [price, volume, timestamp] triples with an optional republish flag as a
// fourth element. Checksum is the upstream CRC-32 of the top-10 book,
// as an unsigned decimal string; empty when the message carried none.
type BookUpdate struct {
	Asks     [][]string
	Bids     [][]string
	Checksum string
}

// OrderBook mirrors one pair's depth. Asks are sorted ascending and bids
// descending by price, each side bounded to depth levels. All mutation
// must happen from a single goroutine, in the arrival order of the feed;
// the mutex only guards concurrent readers (TakeSnapshot, Checksum).
type OrderBook struct {
	Symbol *MarketSymbol
	Asks   []Level
	Bids   []Level

	depth int
	mu    *sync.Mutex
}

func NewOrderBook(symbol *MarketSymbol, depth int) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		Asks:   make([]Level, 0, depth),
		Bids:   make([]Level, 0, depth),

		depth: depth,
		mu:    &sync.Mutex{},
	}
}

func (ob *OrderBook) Depth() int {
	return ob.depth
}

// Initialize replaces the book contents with a snapshot. Each present side is
// capped at depth entries; entries whose price or volume does not parse are
// dropped. Returns the number of dropped entries. An absent side keeps its
// previous contents.
func (ob *OrderBook) Initialize(snapshot *BookSnapshot) int {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	dropped := 0

	if snapshot.Asks != nil {
		ob.Asks, dropped = parseLevels(snapshot.Asks, ob.depth, dropped)
		sortSide(ob.Asks, false)
	}

	if snapshot.Bids != nil {
		ob.Bids, dropped = parseLevels(snapshot.Bids, ob.depth, dropped)
		sortSide(ob.Bids, true)
	}

	return dropped
}

// ApplyUpdate merges one diff into the book. Per entry: a volume of zero
// deletes the level at that price (absence is a no-op), anything else
// replaces the volume in place or inserts a new level in sorted position.
// Afterwards both sides are re-sorted and truncated to depth, keeping the
// levels closest to the opposing side.
func (ob *OrderBook) ApplyUpdate(update *BookUpdate) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.Asks = applyEntries(ob.Asks, update.Asks, false)
	ob.Bids = applyEntries(ob.Bids, update.Bids, true)

	ob.truncateToDepth()
}

// TakeSnapshot copies out up to limit levels per side in wire string form.
func (ob *OrderBook) TakeSnapshot(limit int) *BookSnapshot {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	asks := ob.Asks
	bids := ob.Bids

	if limit > 0 && len(asks) > limit {
		asks = asks[:limit]
	}
	if limit > 0 && len(bids) > limit {
		bids = bids[:limit]
	}

	return &BookSnapshot{
		Asks: serializeLevels(asks),
		Bids: serializeLevels(bids),
	}
}

func (ob *OrderBook) truncateToDepth() {
	sortSide(ob.Asks, false)
	sortSide(ob.Bids, true)

	if len(ob.Asks) > ob.depth {
		ob.Asks = ob.Asks[:ob.depth]
	}
	if len(ob.Bids) > ob.depth {
		ob.Bids = ob.Bids[:ob.depth]
	}
}

func applyEntries(side []Level, entries [][]string, descending bool) []Level {
	for _, entry := range entries {
		if len(entry) < 2 {
			continue
		}

		// A failed parse leaves the zero value, so a corrupt volume behaves
		// like a delete at that price.
		price, _ := strconv.ParseFloat(entry[0], 64)
		volume, _ := strconv.ParseFloat(entry[1], 64)

		if volume == 0 {
			for i, level := range side {
				if level.Price == price {
					side = append(side[:i], side[i+1:]...)
					break
				}
			}
			continue
		}

		updated := false
		for i, level := range side {
			if level.Price == price {
				side[i].Volume = volume
				updated = true
				break
			}
		}

		if !updated {
			side = append(side, Level{Price: price, Volume: volume})
			sortSide(side, descending)
		}
	}

	return side
}

func sortSide(side []Level, descending bool) {
	sort.Slice(side, func(i, j int) bool {
		if descending {
			return side[i].Price > side[j].Price
		}
		return side[i].Price < side[j].Price
	})
}

// parseLevels keeps the first limit entries in source order, dropping any
// that do not parse. A dropped entry is not replaced by a later one.
func parseLevels(entries [][]string, limit int, dropped int) ([]Level, int) {
	if len(entries) > limit {
		entries = entries[:limit]
	}

	result := make([]Level, 0, limit)

	for _, entry := range entries {
		if len(entry) < 2 {
			dropped++
			continue
		}

		price, err := strconv.ParseFloat(entry[0], 64)
		if err != nil {
			dropped++
			continue
		}
		volume, err := strconv.ParseFloat(entry[1], 64)
		if err != nil {
			dropped++
			continue
		}

		result = append(result, Level{Price: price, Volume: volume})
	}

	return result, dropped
}

func serializeLevels(side []Level) [][]string {
	result := make([][]string, len(side))
	for i, level := range side {
		result[i] = []string{
			strconv.FormatFloat(level.Price, 'f', -1, 64),
			strconv.FormatFloat(level.Volume, 'f', -1, 64),
		}
	}

	return result
}

func (l Level) String() string {
	return fmt.Sprintf("%.5f (%.8f)", l.Price, l.Volume)
}

// String renders the book as a fixed-width two-column table, best bid and
// best ask first.
func (ob *OrderBook) String() string {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	var sb strings.Builder

	fmt.Fprintf(&sb, "Order Book: %s\n", ob.Symbol)
	fmt.Fprintf(&sb, "%-10s %-25s | %s\n", "Depth", "Bid", "Ask")

	for i := 0; i < ob.depth; i++ {
		bid := ""
		if i < len(ob.Bids) {
			bid = ob.Bids[i].String()
		}
		ask := ""
		if i < len(ob.Asks) {
			ask = ob.Asks[i].String()
		}
		fmt.Fprintf(&sb, "%-10d %-25s | %s\n", i+1, bid, ask)
	}

	return sb.String()
}
