// Package kg holds the in-memory knowledge graph model and the reduction
// pipeline applied to harvested graphs: deduplication, node frequency
// counting, node selection, filtering, merging and N3 serialization.
//
// Every operation returns a new Graph; a Graph is never mutated after
// construction.
package kg

// Graph is a named, deduplicated set of triples.
type Graph struct {
	name    string
	triples []Triple
}

// NewGraph deduplicates triples by value and stores them under name. The first
// occurrence of each triple determines its position.
func NewGraph(name string, triples []Triple) *Graph {
	seen := make(map[Triple]struct{}, len(triples))
	unique := make([]Triple, 0, len(triples))
	for _, t := range triples {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}
	return &Graph{name: name, triples: unique}
}

// NewGraphFromLinks builds a graph whose triples all share subject.
func NewGraphFromLinks(name, subject string, links []Link) *Graph {
	triples := make([]Triple, 0, len(links))
	for _, l := range links {
		triples = append(triples, Triple{Subject: subject, Predicate: l.Predicate, Object: l.Object})
	}
	return NewGraph(name, triples)
}

// Name returns the origin name of the graph, typically the search term.
func (g *Graph) Name() string {
	return g.name
}

// Len returns the number of distinct triples.
func (g *Graph) Len() int {
	return len(g.triples)
}

// Triples returns a copy of the stored triples.
func (g *Graph) Triples() []Triple {
	return append([]Triple(nil), g.triples...)
}

// UniqueNodes returns every subject and object referenced by the graph.
func (g *Graph) UniqueNodes() NodeSet {
	nodes := make(NodeSet, len(g.triples))
	for _, t := range g.triples {
		nodes.Add(t.Subject)
		nodes.Add(t.Object)
	}
	return nodes
}

// NodeOccurrences lists the subject and the object of every triple. Nodes are
// repeated once per edge they take part in, so a self-loop yields its node twice.
func (g *Graph) NodeOccurrences() []string {
	out := make([]string, 0, 2*len(g.triples))
	for _, t := range g.triples {
		out = append(out, t.Subject, t.Object)
	}
	return out
}

// NodeFrequencies counts NodeOccurrences per node, most frequent first.
func (g *Graph) NodeFrequencies() []NodeCount {
	counts := make(map[string]int)
	for _, node := range g.NodeOccurrences() {
		counts[node]++
	}
	return sortedCounts(counts)
}

// FilterByNodes keeps the triples whose subject and object both belong to
// target. Edges touching a node outside target are dropped entirely.
func (g *Graph) FilterByNodes(target NodeSet) *Graph {
	kept := make([]Triple, 0, len(g.triples))
	for _, t := range g.triples {
		if target.Has(t.Subject) && target.Has(t.Object) {
			kept = append(kept, t)
		}
	}
	return &Graph{name: g.name, triples: kept}
}

// FilterByPatterns narrows the graph to nodes matching include and not matching
// exclude, then applies FilterByNodes.
func (g *Graph) FilterByPatterns(include, exclude *PatternSet) *Graph {
	target := make(NodeSet)
	for node := range g.UniqueNodes() {
		if acceptNode(node, include, exclude) {
			target.Add(node)
		}
	}
	return g.FilterByNodes(target)
}

// Merge concatenates the triples of every graph into a new graph called name.
// Triples present in more than one input appear once.
func Merge(name string, graphs ...*Graph) *Graph {
	total := 0
	for _, g := range graphs {
		total += g.Len()
	}
	all := make([]Triple, 0, total)
	for _, g := range graphs {
		all = append(all, g.triples...)
	}
	return NewGraph(name, all)
}
