package mcp

import "strings"

// NameKey folds a server name for cross-host matching.
func NameKey(name string) string {
	return strings.ToLower(name)
}

// NameSet is a case-insensitive set of server names that remembers the
// first spelling added for each key.
type NameSet map[string]string

// NewNameSet returns a set containing names.
func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name unless a case-insensitive match is already present.
func (s NameSet) Add(name string) {
	k := NameKey(name)
	if _, ok := s[k]; !ok {
		s[k] = name
	}
}

// Has reports whether name is present, ignoring case.
func (s NameSet) Has(name string) bool {
	_, ok := s[NameKey(name)]
	return ok
}

// Names returns the original spellings in unspecified order.
func (s NameSet) Names() []string {
	out := make([]string, 0, len(s))
	for _, n := range s {
		out = append(out, n)
	}
	return out
}

// Names returns the names of servers in order.
func Names(servers []*Server) []string {
	out := make([]string, 0, len(servers))
	for _, s := range servers {
		out = append(out, s.Name)
	}
	return out
}
