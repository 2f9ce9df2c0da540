package domain

// PathEdge is one LINK relationship on a path, in stored direction.
type PathEdge struct {
	Subject   string
	Predicate string
	Object    string
}

// ResourcePath connects two resources of an exported graph.
type ResourcePath struct {
	Graph  string
	Source string
	Target string
	Nodes  []string
	Edges  []PathEdge
	Hops   int
}

// Found reports whether a path was found.
func (p ResourcePath) Found() bool {
	return len(p.Nodes) > 0
}
