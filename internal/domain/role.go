package domain

import (
	"slices"

	"github.com/bytedance/sonic"
)

// RoleSet is a set of role identifiers. An empty set places no restriction.
type RoleSet map[string]struct{}

// NewRoleSet builds a set from the given roles, ignoring blanks.
func NewRoleSet(roles ...string) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		if r != "" {
			s[r] = struct{}{}
		}
	}
	return s
}

// Has reports whether role is in the set.
func (s RoleSet) Has(role string) bool {
	_, ok := s[role]
	return ok
}

// Allows reports whether a caller holding roles may use something guarded by
// s: true when s is empty or shares at least one role.
func (s RoleSet) Allows(roles ...string) bool {
	if len(s) == 0 {
		return true
	}
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Sorted returns the roles in lexical order.
func (s RoleSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy of s.
func (s RoleSet) Clone() RoleSet {
	if s == nil {
		return nil
	}
	c := make(RoleSet, len(s))
	for r := range s {
		c[r] = struct{}{}
	}
	return c
}

// MarshalJSON encodes the set as a sorted array.
func (s RoleSet) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of role identifiers; duplicates collapse.
func (s *RoleSet) UnmarshalJSON(data []byte) error {
	var roles []string
	if err := sonic.Unmarshal(data, &roles); err != nil {
		return err
	}
	*s = NewRoleSet(roles...)
	return nil
}
