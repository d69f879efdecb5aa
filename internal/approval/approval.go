package approval

import (
	"encoding/json"
	"sort"

	"reelsmith/internal/stage"
)

// Set tracks which stages a human has signed off on. It is a checklist,
// not a correctness gate: it has no access to artifacts and regeneration
// of a stage does not clear its mark.
type Set map[stage.Stage]struct{}

// NewSet returns an empty approval set.
func NewSet() Set {
	return make(Set)
}

// Approve marks a stage approved.
func (s Set) Approve(st stage.Stage) {
	if !st.Known() {
		return
	}
	s[st] = struct{}{}
}

// Unapprove clears a stage's approval mark.
func (s Set) Unapprove(st stage.Stage) {
	delete(s, st)
}

// IsApproved reports whether a stage carries an approval mark.
func (s Set) IsApproved(st stage.Stage) bool {
	_, ok := s[st]
	return ok
}

// List returns the approved stages in pipeline order.
func (s Set) List() []stage.Stage {
	out := make([]stage.Stage, 0, len(s))
	for st := range s {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	cp := make(Set, len(s))
	for st := range s {
		cp[st] = struct{}{}
	}
	return cp
}

// MarshalJSON encodes the set as an ordered array of stage tags.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// UnmarshalJSON decodes an array of stage tags, ignoring unknown entries.
func (s *Set) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	out := make(Set, len(tags))
	for _, tag := range tags {
		if st, ok := stage.Parse(tag); ok {
			out[st] = struct{}{}
		}
	}
	*s = out
	return nil
}
