package kg

import "sort"

// NodeCount records how many triple endpoints reference a node.
type NodeCount struct {
	Node  string `json:"node"`
	Count int    `json:"count"`
}

// Reduce sums the counts of each node across all tables and returns the
// combined table, most frequent first.
func Reduce(tables ...[]NodeCount) []NodeCount {
	counts := make(map[string]int)
	for _, table := range tables {
		for _, nc := range table {
			counts[nc.Node] += nc.Count
		}
	}
	return sortedCounts(counts)
}

// ReduceGraphs is Reduce over the NodeFrequencies of each graph.
func ReduceGraphs(graphs ...*Graph) []NodeCount {
	tables := make([][]NodeCount, 0, len(graphs))
	for _, g := range graphs {
		tables = append(tables, g.NodeFrequencies())
	}
	return Reduce(tables...)
}

// sortedCounts orders by count descending, then by node ascending.
func sortedCounts(counts map[string]int) []NodeCount {
	out := make([]NodeCount, 0, len(counts))
	for node, count := range counts {
		out = append(out, NodeCount{Node: node, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Node < out[j].Node
	})
	return out
}
