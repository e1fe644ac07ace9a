// Package idalloc hands out record identifiers of the form <Prefix><N>.
//
// Each prefix owns a counter that starts at a configured value and only ever
// moves forward. Loading existing data raises the counter past the highest
// numeric suffix seen, so freshly allocated ids never collide with persisted
// ones. Deleted ids are not reused.
//
// An Allocator is not safe for concurrent use; callers serialise access.
package idalloc

import (
	"strconv"
	"strings"
)

// Allocator tracks the next numeric suffix per prefix.
type Allocator struct {
	start map[string]int
	next  map[string]int
}

// New returns an Allocator whose counters begin at the given start values.
// Prefixes absent from starts begin at zero.
func New(starts map[string]int) *Allocator {
	a := &Allocator{
		start: make(map[string]int, len(starts)),
		next:  make(map[string]int, len(starts)),
	}
	for prefix, n := range starts {
		a.start[prefix] = n
		a.next[prefix] = n
	}
	return a
}

// Seed raises the counter for prefix to one past the largest numeric suffix
// found among ids that carry the prefix. Ids whose digits do not parse are
// skipped. The counter never decreases.
//
// Only ids matching prefix* count: the next P id is one past the largest
// P-numbered id, so an id from a longer series such as PRC2000 is ignored.
func (a *Allocator) Seed(prefix string, ids []string) {
	next := a.Peek(prefix)
	for _, id := range ids {
		if !carriesPrefix(id, prefix) {
			continue
		}
		n, ok := NumericSuffix(id)
		if !ok {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	a.next[prefix] = next
}

// Next returns prefix followed by the current counter and advances it.
func (a *Allocator) Next(prefix string) string {
	n := a.Peek(prefix)
	a.next[prefix] = n + 1
	return prefix + strconv.Itoa(n)
}

// Peek reports the value Next would use without consuming it.
func (a *Allocator) Peek(prefix string) int {
	if n, ok := a.next[prefix]; ok {
		return n
	}
	return a.start[prefix]
}

// carriesPrefix reports whether id starts with prefix and the prefix is not
// the head of a longer alphabetic series.
func carriesPrefix(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return false
	}
	if rest == "" {
		return true
	}
	c := rest[0]
	return !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z')
}

// NumericSuffix strips every non-digit character from id and parses what is
// left. It reports false when no digits remain or the number overflows.
func NumericSuffix(id string) (int, bool) {
	var b strings.Builder
	for _, r := range id {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}
