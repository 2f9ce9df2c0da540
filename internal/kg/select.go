package kg

// Select returns the nodes whose count reaches minCount, that match include and
// that do not match exclude. The result carries membership only.
func Select(counts []NodeCount, minCount int, include, exclude *PatternSet) NodeSet {
	target := make(NodeSet)
	for _, nc := range counts {
		if nc.Count < minCount {
			continue
		}
		if !acceptNode(nc.Node, include, exclude) {
			continue
		}
		target.Add(nc.Node)
	}
	return target
}
