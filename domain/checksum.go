package domain

import (
	"hash/crc32"
	"strconv"
	"strings"
)

// The checksum always covers the top 10 levels per side, regardless of the
// book's configured depth.
const checksumDepth = 10

// Checksum computes the CRC-32 of the canonical encoding of the current
// top-10 view: asks ascending, then bids descending. Each level contributes
// its price formatted to 5 decimal places and its volume to 8, with the
// decimal point removed and leading zero characters trimmed. Pure function
// of the book contents.
func (ob *OrderBook) Checksum() uint32 {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	var sb strings.Builder

	writeChecksumLevels(&sb, ob.Asks)
	writeChecksumLevels(&sb, ob.Bids)

	return crc32.ChecksumIEEE([]byte(sb.String()))
}

func writeChecksumLevels(sb *strings.Builder, side []Level) {
	for i, level := range side {
		if i == checksumDepth {
			break
		}
		sb.WriteString(checksumField(level.Price, 5))
		sb.WriteString(checksumField(level.Volume, 8))
	}
}

// checksumField can legitimately return "" for a value whose every formatted
// character is zero; the upstream encoding trims that far too.
func checksumField(value float64, decimals int) string {
	s := strconv.FormatFloat(value, 'f', decimals, 64)
	s = strings.Replace(s, ".", "", 1)
	return strings.TrimLeft(s, "0")
}
