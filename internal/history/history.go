package history

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reading is one observation for one symbol at one point in time.
// OpenInterest is optional: spot-only venues cannot report it.
type Reading struct {
	Price        decimal.Decimal
	QuoteVolume  decimal.Decimal
	OpenInterest decimal.NullDecimal
	At           time.Time
}

// Field selects which metric a Series call extracts.
type Field int

const (
	FieldPrice Field = iota
	FieldQuoteVolume
	FieldOpenInterest
)

// History keeps a bounded FIFO of readings per symbol. It is owned by a
// single monitor loop; access must be serialized by the owner.
type History struct {
	capacity int
	buffers  map[string][]Reading
}

// New constructs a History with the given per-symbol capacity.
func New(capacity int) *History {
	if capacity <= 0 {
		panic("history capacity must be positive")
	}
	return &History{
		capacity: capacity,
		buffers:  make(map[string][]Reading),
	}
}

// Record appends a reading for the symbol, evicting the oldest entry when
// the buffer is full.
func (h *History) Record(symbol string, r Reading) {
	buf := h.buffers[symbol]
	if len(buf) == h.capacity {
		copy(buf, buf[1:])
		buf[len(buf)-1] = r
	} else {
		buf = append(buf, r)
	}
	h.buffers[symbol] = buf
}

// Latest returns the most recent reading for the symbol.
func (h *History) Latest(symbol string) (Reading, bool) {
	buf := h.buffers[symbol]
	if len(buf) == 0 {
		return Reading{}, false
	}
	return buf[len(buf)-1], true
}

// Len reports how many readings are currently buffered for the symbol.
func (h *History) Len(symbol string) int {
	return len(h.buffers[symbol])
}

// Snapshot returns a copy of the symbol's buffered readings, oldest first.
func (h *History) Snapshot(symbol string) []Reading {
	buf := h.buffers[symbol]
	if len(buf) == 0 {
		return nil
	}
	out := make([]Reading, len(buf))
	copy(out, buf)
	return out
}

// Series extracts up to window values of the given field, most-recent-last.
// Readings without a recorded open interest are skipped for
// FieldOpenInterest; a symbol with fewer readings than the window yields a
// shorter series, never padded.
func (h *History) Series(symbol string, field Field, window int) []decimal.Decimal {
	buf := h.buffers[symbol]
	if len(buf) == 0 || window <= 0 {
		return nil
	}

	values := make([]decimal.Decimal, 0, window)
	for i := len(buf) - 1; i >= 0 && len(values) < window; i-- {
		v, ok := fieldValue(buf[i], field)
		if !ok {
			continue
		}
		values = append(values, v)
	}

	// collected newest-first, flip to most-recent-last
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
	return values
}

func fieldValue(r Reading, field Field) (decimal.Decimal, bool) {
	switch field {
	case FieldPrice:
		return r.Price, true
	case FieldQuoteVolume:
		return r.QuoteVolume, true
	case FieldOpenInterest:
		if !r.OpenInterest.Valid {
			return decimal.Decimal{}, false
		}
		return r.OpenInterest.Decimal, true
	default:
		return decimal.Decimal{}, false
	}
}
