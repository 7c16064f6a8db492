package schedule

// extractCriticalPath returns the longest duration-weighted source-to-sink
// path through the DAG. Ties are broken deterministically: the smallest sink
// index wins, and on equal path length the earliest-listed predecessor is
// kept, so identical input always yields the identical path.
//
// If extraction fails for any reason the zero-slack task positions are
// returned in ascending order instead; this fallback never fails.
func (e *Engine) extractCriticalPath(g *graph, order []int, expected, slack []float64) (path []int) {
	defer func() {
		if r := recover(); r != nil {
			path = zeroSlackIndices(slack, e.Tolerance)
		}
	}()
	return longestPath(g, order, expected)
}

// longestPath computes, for every node in topological order, the length of
// the heaviest path ending at that node and the predecessor realizing it,
// then reconstructs the path from the best sink.
func longestPath(g *graph, order []int, expected []float64) []int {
	dist := make([]float64, g.n)
	prev := make([]int, g.n)

	for _, i := range order {
		prev[i] = -1
		var through float64
		for _, p := range g.pred[i] {
			// Strict comparison: on ties the predecessor already
			// stored (the earliest-listed one) is kept.
			if prev[i] == -1 || dist[p] > through {
				through = dist[p]
				prev[i] = p
			}
		}
		dist[i] = through + expected[i]
	}

	sink := -1
	for i := range dist {
		if sink == -1 || dist[i] > dist[sink] {
			sink = i
		}
	}
	if sink == -1 {
		return []int{}
	}

	var reversed []int
	for i := sink; i != -1; i = prev[i] {
		reversed = append(reversed, i)
	}

	path := make([]int, 0, len(reversed))
	for k := len(reversed) - 1; k >= 0; k-- {
		path = append(path, reversed[k])
	}
	return path
}

// zeroSlackIndices returns the positions of all tasks whose slack is within
// tolerance of zero, in ascending order.
func zeroSlackIndices(slack []float64, tolerance float64) []int {
	indices := make([]int, 0, len(slack))
	for i := range slack {
		if isZeroSlack(slack[i], tolerance) {
			indices = append(indices, i)
		}
	}
	return indices
}
