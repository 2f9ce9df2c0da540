package kg

import "sort"

// Triple is a single subject-predicate-object statement. It is comparable and
// is used directly as a map key for deduplication.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// Link is a predicate-object pair hanging off an implicit subject, the shape
// returned by a 1-hop resource query.
type Link struct {
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// NodeSet is a membership-only collection of node identifiers.
type NodeSet map[string]struct{}

// NewNodeSet builds a set from the provided nodes, ignoring duplicates.
func NewNodeSet(nodes ...string) NodeSet {
	set := make(NodeSet, len(nodes))
	for _, node := range nodes {
		set[node] = struct{}{}
	}
	return set
}

// Has reports whether node is a member of the set.
func (s NodeSet) Has(node string) bool {
	_, ok := s[node]
	return ok
}

// Add inserts node into the set.
func (s NodeSet) Add(node string) {
	s[node] = struct{}{}
}

// Len returns the number of members.
func (s NodeSet) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order.
func (s NodeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for node := range s {
		out = append(out, node)
	}
	sort.Strings(out)
	return out
}
