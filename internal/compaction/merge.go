package compaction

import (
	"bytes"

	"github.com/lanterndb/lanterndb/internal/table"
)

// priorityMerge merges several key-ordered sources into one ordered
// stream. When more than one source holds the same key, the entry
// from the lowest-indexed source wins — callers order sources
// highest-priority first, per SPEC_FULL §4.4 ("the entry from the
// source with the highest write priority wins"). Losing entries for a
// duplicated key are dropped, not just shadowed, since they can never
// be read again once this merge's output replaces their sources.
type priorityMerge struct {
	sources           []table.EntryIterator
	discardTombstones bool
	current           table.Entry
	has               bool
	dropped           uint64
}

// newPriorityMerge returns a lazy EntryIterator over sources, highest
// priority first. If discardTombstones is set, tombstone entries are
// dropped from the output entirely rather than passed through.
func newPriorityMerge(sources []table.EntryIterator, discardTombstones bool) *priorityMerge {
	m := &priorityMerge{sources: sources, discardTombstones: discardTombstones}
	m.advance()
	return m
}

func (m *priorityMerge) advance() {
	for {
		bestIdx := -1
		var bestKey []byte
		for i, s := range m.sources {
			e, ok := s.Peek()
			if !ok {
				continue
			}
			if bestIdx == -1 || bytes.Compare(e.Key, bestKey) < 0 {
				bestIdx, bestKey = i, e.Key
			}
		}
		if bestIdx == -1 {
			m.has = false
			return
		}

		winner, _ := m.sources[bestIdx].Peek()
		winner = table.Entry{Key: append([]byte(nil), winner.Key...), Value: append([]byte(nil), winner.Value...)}

		for _, s := range m.sources {
			if e, ok := s.Peek(); ok && bytes.Equal(e.Key, bestKey) {
				s.Next()
			}
		}

		if m.discardTombstones && winner.Value == nil {
			m.dropped++
			continue
		}
		m.current, m.has = winner, true
		return
	}
}

func (m *priorityMerge) Peek() (table.Entry, bool) {
	return m.current, m.has
}

func (m *priorityMerge) Next() (table.Entry, bool) {
	e, ok := m.current, m.has
	if ok {
		m.advance()
	}
	return e, ok
}
