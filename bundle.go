package pgrtk

import "sort"

// GetPrincipalBundles extracts the principal bundles of a minimizer
// graph: it runs a weighted DFS from the first edge's source, splits the
// walk into paths at each leaf, keeps only paths longer than
// pathLenCutoff, restricts the graph to vertices on a kept path, marks
// terminal vertices (branch points), then repeatedly DFS-walks from a
// source to the nearest terminal, removing the walked vertices and their
// twins, until the restricted graph is empty. It returns the bundles
// sorted by length descending, along with the adjacency list the bundles
// were computed from (restricted to the kept vertices).
func GetPrincipalBundles(fragMap ShmmrToFrags, adj AdjList, pathLenCutoff int) ([][]GraphNode, AdjList) {
	if len(adj) == 0 {
		return nil, nil
	}

	weight := map[GraphNode]uint32{}
	for _, e := range adj {
		ensureWeight(fragMap, weight, e.V)
		ensureWeight(fragMap, weight, e.W)
	}

	walker := NewBiDiGraphWeightedDFS(adj, weight, adj[0].V)
	var paths [][]GraphNode
	var path []GraphNode
	for {
		step, ok := walker.Next()
		if !ok {
			break
		}
		path = append(path, step.Node)
		if step.IsLeaf {
			paths = append(paths, path)
			path = nil
		}
	}

	mainVertices := map[ShmmrPair]bool{}
	for _, p := range paths {
		if len(p) > pathLenCutoff {
			for _, v := range p {
				mainVertices[ShmmrPair{H0: v.H0, H1: v.H1}] = true
			}
		}
	}

	var filtered AdjList
	for _, e := range adj {
		if mainVertices[ShmmrPair{H0: e.V.H0, H1: e.V.H1}] && mainVertices[ShmmrPair{H0: e.W.H0, H1: e.W.H1}] {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == 0 {
		return nil, nil
	}

	g0 := buildAdjGraph(filtered)
	terminal := map[GraphNode]bool{}
	for _, e := range filtered {
		if g0.outDegree(e.V) > 1 {
			terminal[e.V] = true
		}
		if g0.inDegree(e.W) > 1 {
			terminal[e.W] = true
		}
	}

	g1 := buildAdjGraph(filtered)
	starts := zeroInDegreeNodes(g1)
	if len(starts) == 0 {
		if ns := g1.nodes(); len(ns) > 0 {
			starts = []GraphNode{ns[0]}
		}
	}

	var bundles [][]GraphNode
	for len(starts) > 0 {
		s := starts[len(starts)-1]
		starts = starts[:len(starts)-1]

		p := dfsToTerminal(g1, s, terminal)
		if len(p) > 0 {
			for _, v := range p {
				g1.removeNode(v)
				g1.removeNode(v.Twin())
			}
			bundles = append(bundles, p)
		}

		starts = zeroInDegreeNodes(g1)
		if len(starts) == 0 {
			if ns := g1.nodes(); len(ns) > 0 {
				starts = []GraphNode{ns[0]}
			}
		}
	}

	sort.Slice(bundles, func(i, j int) bool { return len(bundles[i]) > len(bundles[j]) })
	return bundles, filtered
}

func ensureWeight(fragMap ShmmrToFrags, weight map[GraphNode]uint32, v GraphNode) {
	if _, ok := weight[v]; ok {
		return
	}
	sigs, _ := fragMap.Get(v.H0, v.H1)
	weight[v] = uint32(len(sigs))
}

func zeroInDegreeNodes(g *adjGraph) []GraphNode {
	var out []GraphNode
	for _, v := range g.nodes() {
		if g.inDegree(v) == 0 {
			out = append(out, v)
		}
	}
	return out
}

// dfsToTerminal walks g depth-first from start, following the
// lexicographically smallest unvisited neighbor at each step, stopping
// (inclusive) at the first terminal vertex encountered or when no
// unvisited neighbor remains.
func dfsToTerminal(g *adjGraph, start GraphNode, terminal map[GraphNode]bool) []GraphNode {
	var path []GraphNode
	visited := map[GraphNode]bool{}
	cur := start
	for {
		path = append(path, cur)
		visited[cur] = true
		if terminal[cur] {
			break
		}
		next, ok := firstUnvisitedNeighbor(g, cur, visited)
		if !ok {
			break
		}
		cur = next
	}
	return path
}

func firstUnvisitedNeighbor(g *adjGraph, v GraphNode, visited map[GraphNode]bool) (GraphNode, bool) {
	neighbors := append([]GraphNode(nil), g.out[v]...)
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].less(neighbors[j]) })
	for _, n := range neighbors {
		if !visited[n] {
			return n, true
		}
	}
	return GraphNode{}, false
}

// SMPOccurrence is one minimizer-pair occurrence along a sequence's
// SHIMMER stream, with the 1-based begin/end positions it brackets.
type SMPOccurrence struct {
	Pair        ShmmrPair
	P0, P1      uint32
	Orientation uint8
}

// SMPOccurrencesForSeq recomputes seq's minimizer-pair walk under spec,
// the same adjacent-pair-canonicalization step GenerateAdjListForSeq
// uses, but returned as a flat ordered occurrence list rather than graph
// edges. Used by query.Query to label a range with its bundle runs
// without persisting the walk at build time.
func SMPOccurrencesForSeq(seq []byte, spec ShmmrSpec) []SMPOccurrence {
	shmmrs := SequenceToShmmrs(0, seq, spec, false)
	if len(shmmrs) < 2 {
		return nil
	}
	out := make([]SMPOccurrence, 0, len(shmmrs)-1)
	for i := 0; i+1 < len(shmmrs); i++ {
		m0, m1 := shmmrs[i], shmmrs[i+1]
		pair, orientation := CanonicalizePair(m0.Hash(), m1.Hash())
		out = append(out, SMPOccurrence{
			Pair:        pair,
			P0:          m0.Pos() + 1,
			P1:          m1.Pos() + 1,
			Orientation: orientation,
		})
	}
	return out
}

// BundleAssignment is a minimizer-pair node's position within a principal
// bundle: which bundle, the node's orientation inside it, and its rank.
type BundleAssignment struct {
	BundleID    int
	Orientation uint8
	Pos         int
}

// VertexToBundleMap maps a canonical minimizer pair to its principal
// bundle assignment. A pair may appear in at most one bundle once
// GetPrincipalBundles has been run.
type VertexToBundleMap map[ShmmrPair]BundleAssignment

// BuildVertexToBundleMap enumerates each bundle's vertices into a lookup
// table keyed by minimizer pair.
func BuildVertexToBundleMap(bundles [][]GraphNode) VertexToBundleMap {
	m := VertexToBundleMap{}
	for bid, bundle := range bundles {
		for pos, v := range bundle {
			m[ShmmrPair{H0: v.H0, H1: v.H1}] = BundleAssignment{BundleID: bid, Orientation: v.Orientation, Pos: pos}
		}
	}
	return m
}

// BundleRunItem is one minimizer-pair occurrence tagged with the
// principal bundle it was grouped into and the local direction (0 if the
// occurrence's orientation agrees with the bundle vertex's, 1 otherwise).
type BundleRunItem struct {
	SMP       SMPOccurrence
	BundleID  int
	Direction uint32
	Pos       int
}

// GroupByPrincipalBundle partitions an ordered SMP stream into maximal
// runs sharing the same (bundle id, direction), dropping SMPs outside any
// bundle, dropping runs whose span does not exceed bundleLengthCutoff, and merging
// consecutive accepted runs of the same (bundle id, direction) whose gap
// is smaller than bundleMergeDistance. This mirrors
// group_smps_by_principle_bundle_id exactly.
func GroupByPrincipalBundle(smps []SMPOccurrence, vmap VertexToBundleMap, bundleLengthCutoff, bundleMergeDistance int) [][]BundleRunItem {
	var allPartitions [][]BundleRunItem
	var cur []BundleRunItem
	var preBundleID *int
	var preDirection *uint32

	acceptIfLongEnough := func(run []BundleRunItem) {
		if len(run) == 0 {
			return
		}
		span := int(run[len(run)-1].SMP.P1) - int(run[0].SMP.P0)
		if span > bundleLengthCutoff {
			allPartitions = append(allPartitions, append([]BundleRunItem(nil), run...))
		}
	}

	for _, smp := range smps {
		info, ok := vmap[smp.Pair]
		if !ok {
			continue
		}
		d := uint32(0)
		if smp.Orientation != info.Orientation {
			d = 1
		}
		bid := info.BundleID

		if preBundleID == nil {
			cur = []BundleRunItem{{SMP: smp, BundleID: bid, Direction: d, Pos: info.Pos}}
			b, dd := bid, d
			preBundleID, preDirection = &b, &dd
			continue
		}

		if bid != *preBundleID || d != *preDirection {
			acceptIfLongEnough(cur)
			cur = nil
			b, dd := bid, d
			preBundleID, preDirection = &b, &dd
		}
		cur = append(cur, BundleRunItem{SMP: smp, BundleID: bid, Direction: d, Pos: info.Pos})
	}
	acceptIfLongEnough(cur)

	if len(allPartitions) == 0 {
		return nil
	}

	var result [][]BundleRunItem
	partition := allPartitions[0]
	for idx := 1; idx < len(allPartitions); idx++ {
		p := allPartitions[idx]
		last := partition[len(partition)-1]
		np := p[0]
		gap := int(np.SMP.P0) - int(last.SMP.P1)
		if gap < 0 {
			gap = -gap
		}
		if last.BundleID == np.BundleID && last.Direction == np.Direction && gap < bundleMergeDistance {
			partition = append(partition, p...)
		} else {
			result = append(result, partition)
			partition = p
		}
	}
	result = append(result, partition)
	return result
}
