package domain

import (
	"fmt"
	"sort"
)

// MedicationSet is the working medication state of one evaluation pass.
// It is exclusively owned by the pass that created it and is not safe for concurrent use.
type MedicationSet struct {
	members map[DrugClass]struct{}
}

// NewMedicationSet copies classes into a fresh set, failing fast on any class
// missing from the registry.
func NewMedicationSet(classes []DrugClass) (*MedicationSet, error) {
	for _, dc := range classes {
		if _, ok := registry[dc]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDrugClass, string(dc))
		}
	}
	return NewMedicationSetUnchecked(classes), nil
}

// NewMedicationSetUnchecked copies classes without registry checks.
func NewMedicationSetUnchecked(classes []DrugClass) *MedicationSet {
	s := &MedicationSet{members: make(map[DrugClass]struct{}, len(classes))}
	for _, dc := range classes {
		s.members[dc] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s *MedicationSet) Has(dc DrugClass) bool {
	_, ok := s.members[dc]
	return ok
}

// HasAny reports whether at least one of classes is a member.
func (s *MedicationSet) HasAny(classes ...DrugClass) bool {
	for _, dc := range classes {
		if s.Has(dc) {
			return true
		}
	}
	return false
}

// Add inserts dc and reports whether the set changed.
func (s *MedicationSet) Add(dc DrugClass) bool {
	if s.Has(dc) {
		return false
	}
	s.members[dc] = struct{}{}
	return true
}

// Remove deletes dc and reports whether the set changed.
func (s *MedicationSet) Remove(dc DrugClass) bool {
	if !s.Has(dc) {
		return false
	}
	delete(s.members, dc)
	return true
}

// Replace removes from and adds to in one step.
func (s *MedicationSet) Replace(from, to DrugClass) {
	s.Remove(from)
	s.Add(to)
}

// Len returns the number of members.
func (s *MedicationSet) Len() int {
	return len(s.members)
}

// Classes returns the members in canonical order. Classes outside the closed set
// sort after it, by identifier.
func (s *MedicationSet) Classes() []DrugClass {
	out := make([]DrugClass, 0, len(s.members))
	for dc := range s.members {
		out = append(out, dc)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := out[i].ordinal(), out[j].ordinal()
		switch {
		case oi >= 0 && oj >= 0:
			return oi < oj
		case oi >= 0:
			return true
		case oj >= 0:
			return false
		default:
			return out[i] < out[j]
		}
	})
	return out
}

// Clone returns an independent copy.
func (s *MedicationSet) Clone() *MedicationSet {
	return NewMedicationSetUnchecked(s.Classes())
}
