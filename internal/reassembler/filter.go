package reassembler

// FilterResult splits aggregated nodes into the ones kept as key nodes and the count
// of short-lived ones that were dropped as background.
type FilterResult struct {
	Retained  []IntermediateNode
	Discarded int
}

// FilterNodes keeps nodes whose observed activity lasted longer than minDuration
// seconds.
func FilterNodes(nodes []IntermediateNode, minDuration float64) FilterResult {
	var res FilterResult
	for _, n := range nodes {
		if n.DurationSeconds <= minDuration {
			res.Discarded++
			continue
		}
		res.Retained = append(res.Retained, n)
	}
	return res
}
