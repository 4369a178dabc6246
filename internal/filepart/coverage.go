package filepart

import (
	"slices"
	"sync"
)

// Part is a half-open byte window [Start, End).
type Part struct {
	Start int64
	End   int64
}

// Len returns End-Start.
func (p Part) Len() int64 { return p.End - p.Start }

// Split cuts [0, size) into consecutive parts of at most chunk bytes.
// A zero size yields no parts.
func Split(size, chunk int64) []Part {
	if size <= 0 {
		return nil
	}
	if chunk <= 0 || chunk > size {
		chunk = size
	}
	parts := make([]Part, 0, (size+chunk-1)/chunk)
	for start := int64(0); start < size; start += chunk {
		parts = append(parts, Part{Start: start, End: min(start+chunk, size)})
	}
	return parts
}

// Coverage records which parts of a file of known size have been received.
// Parts may arrive in any order and may overlap. Safe for concurrent use.
type Coverage struct {
	mu    sync.Mutex
	size  int64
	parts []Part
}

// NewCoverage returns an empty Coverage for a file of size bytes.
func NewCoverage(size int64) *Coverage {
	return &Coverage{size: size}
}

// Size returns the expected file size.
func (c *Coverage) Size() int64 { return c.size }

// Add records [start, end) as received. Empty or inverted windows are ignored.
func (c *Coverage) Add(start, end int64) {
	if end <= start {
		return
	}
	c.mu.Lock()
	c.parts = append(c.parts, Part{Start: start, End: end})
	c.mu.Unlock()
}

// Complete reports whether [0, size) is fully covered.
func (c *Coverage) Complete() bool {
	return len(c.Missing()) == 0
}

// Received returns the number of distinct bytes covered within [0, size).
func (c *Coverage) Received() int64 {
	var total int64
	for _, p := range c.merged() {
		total += p.Len()
	}
	return total
}

// Missing returns the gaps of [0, size) not yet covered, in order.
func (c *Coverage) Missing() []Part {
	var gaps []Part
	var cur int64
	for _, p := range c.merged() {
		if p.Start > cur {
			gaps = append(gaps, Part{Start: cur, End: p.Start})
		}
		cur = max(cur, p.End)
	}
	if cur < c.size {
		gaps = append(gaps, Part{Start: cur, End: c.size})
	}
	return gaps
}

// merged returns the recorded parts clipped to [0, size), sorted and with
// overlapping or touching parts joined.
func (c *Coverage) merged() []Part {
	c.mu.Lock()
	parts := slices.Clone(c.parts)
	c.mu.Unlock()

	slices.SortFunc(parts, func(a, b Part) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})

	var out []Part
	for _, p := range parts {
		p.Start = max(p.Start, 0)
		p.End = min(p.End, c.size)
		if p.End <= p.Start {
			continue
		}
		if n := len(out); n > 0 && p.Start <= out[n-1].End {
			out[n-1].End = max(out[n-1].End, p.End)
			continue
		}
		out = append(out, p)
	}
	return out
}
