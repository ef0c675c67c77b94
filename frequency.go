package huffz

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/seiflotfy/huffz/tree"
)

// FrequencyTable maps byte values to occurrence counts.
// A symbol with a zero count is absent from the table.
type FrequencyTable struct {
	counts [256]uint64
	n      int
}

// Analyze counts every byte of src. The zero value of FrequencyTable is the result
// for empty input.
func Analyze(src []byte) FrequencyTable {
	var f FrequencyTable
	for _, b := range src {
		f.counts[b]++
	}
	for _, c := range f.counts {
		if c > 0 {
			f.n++
		}
	}
	return f
}

// Count returns the occurrence count of sym and whether sym is present.
func (f *FrequencyTable) Count(sym byte) (uint64, bool) {
	c := f.counts[sym]
	return c, c > 0
}

// Set records count occurrences of sym. A zero count removes sym.
func (f *FrequencyTable) Set(sym byte, count uint64) {
	switch {
	case f.counts[sym] == 0 && count > 0:
		f.n++
	case f.counts[sym] > 0 && count == 0:
		f.n--
	}
	f.counts[sym] = count
}

// Len returns the number of distinct symbols.
func (f *FrequencyTable) Len() int {
	return f.n
}

// Total returns the sum of all counts, which is the length of the analyzed input.
func (f *FrequencyTable) Total() uint64 {
	var total uint64
	for _, c := range f.counts {
		total += c
	}
	return total
}

// Entries returns the present symbols in ascending order.
func (f *FrequencyTable) Entries() []tree.Entry {
	entries := make([]tree.Entry, 0, f.n)
	for sym, c := range f.counts {
		if c > 0 {
			entries = append(entries, tree.Entry{Symbol: byte(sym), Count: c})
		}
	}
	return entries
}

// appendFrequencies serializes f as a uvarint symbol count followed by
// (raw byte, uvarint count) pairs in ascending symbol order.
func appendFrequencies(dst []byte, f *FrequencyTable) []byte {
	dst = binary.AppendUvarint(dst, uint64(f.n))
	for sym, c := range f.counts {
		if c == 0 {
			continue
		}
		dst = append(dst, byte(sym))
		dst = binary.AppendUvarint(dst, c)
	}
	return dst
}

func decodeFrequencies(payload []byte) (FrequencyTable, error) {
	var f FrequencyTable
	n, read := binary.Uvarint(payload)
	if read <= 0 {
		return f, fmt.Errorf("frequencies: malformed symbol count")
	}
	if n > 256 {
		return f, fmt.Errorf("frequencies: symbol count out of range: %d", n)
	}
	pos := read
	var total uint64
	for i := uint64(0); i < n; i++ {
		if pos >= len(payload) {
			return f, fmt.Errorf("frequencies: truncated at entry %d", i)
		}
		sym := payload[pos]
		pos++
		count, read := binary.Uvarint(payload[pos:])
		if read <= 0 {
			return f, fmt.Errorf("frequencies: malformed count for symbol %d at entry %d", sym, i)
		}
		pos += read
		if count == 0 {
			return f, fmt.Errorf("frequencies: zero count for symbol %d at entry %d", sym, i)
		}
		if f.counts[sym] != 0 {
			return f, fmt.Errorf("frequencies: duplicate symbol %d at entry %d", sym, i)
		}
		var carry uint64
		total, carry = bits.Add64(total, count, 0)
		if carry != 0 {
			return f, fmt.Errorf("frequencies: total count overflows at entry %d", i)
		}
		f.Set(sym, count)
	}
	if pos != len(payload) {
		return f, fmt.Errorf("frequencies: trailing bytes: %d", len(payload)-pos)
	}
	return f, nil
}
