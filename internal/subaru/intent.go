package subaru

import (
	"fmt"
	"sort"
)

// IntentStore holds the authoritative mark state for every known package.
// It is keyed strictly by PackageID; callers passing an ID the store has
// never seen indicates a bookkeeping bug, so lookups panic rather than
// silently inventing a record.
type IntentStore struct {
	records map[PackageID]*PackageRecord
	order   []PackageID
}

// NewIntentStore builds a store from the fully derived record set. The
// records are copied so the caller's slice stays untouched.
func NewIntentStore(records []PackageRecord) *IntentStore {
	s := &IntentStore{
		records: make(map[PackageID]*PackageRecord, len(records)),
		order:   make([]PackageID, 0, len(records)),
	}
	for i := range records {
		r := records[i]
		if _, dup := s.records[r.ID]; dup {
			continue
		}
		s.records[r.ID] = &r
		s.order = append(s.order, r.ID)
	}
	sort.Slice(s.order, func(i, j int) bool {
		return s.records[s.order[i]].Name < s.records[s.order[j]].Name
	})
	return s
}

func (s *IntentStore) mustGet(id PackageID) *PackageRecord {
	r, ok := s.records[id]
	if !ok {
		panic(fmt.Sprintf("intent store: unknown package id %q", id))
	}
	return r
}

// Has reports whether the store tracks the given ID.
func (s *IntentStore) Has(id PackageID) bool {
	_, ok := s.records[id]
	return ok
}

// Get returns a copy of the record for id. Panics on an unknown ID.
func (s *IntentStore) Get(id PackageID) PackageRecord {
	return *s.mustGet(id)
}

// SetMark attaches a pending mark to id. The mark must be compatible with
// the record's base state.
func (s *IntentStore) SetMark(id PackageID, mark Mark, tag IntentTag) error {
	r := s.mustGet(id)
	if !compatibleMark(r.Base, mark) {
		return fmt.Errorf("mark %d not valid for %s in base state %d", mark, r.Name, r.Base)
	}
	r.Mark = mark
	r.Tag = tag
	return nil
}

// ClearMark removes any pending mark from id.
func (s *IntentStore) ClearMark(id PackageID) {
	r := s.mustGet(id)
	r.Mark = MarkNone
	r.Tag = TagUserInitiated
}

// Marks returns the current pending marks as a snapshot the oracle can
// evaluate against.
func (s *IntentStore) Marks() MarkSnapshot {
	snap := make(MarkSnapshot)
	for id, r := range s.records {
		if r.Mark != MarkNone {
			snap[id] = r.Mark
		}
	}
	return snap
}

// AllMarked returns copies of every record with a pending mark, in
// display order.
func (s *IntentStore) AllMarked() []PackageRecord {
	var out []PackageRecord
	for _, id := range s.order {
		if r := s.records[id]; r.Mark != MarkNone {
			out = append(out, *r)
		}
	}
	return out
}

// Records returns copies of all records in display order.
func (s *IntentStore) Records() []PackageRecord {
	out := make([]PackageRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.records[id])
	}
	return out
}

// Dirty reports whether any pending mark exists.
func (s *IntentStore) Dirty() bool {
	for _, r := range s.records {
		if r.Mark != MarkNone {
			return true
		}
	}
	return false
}
