package pgrtk

import "sort"

// GraphNode is a node in the minimizer-pair graph: a canonical minimizer
// pair plus the orientation under which it occurs. Each canonical pair
// therefore has two nodes, (h0,h1,0) and (h0,h1,1), which are always
// twins of one another.
type GraphNode struct {
	H0, H1      uint64
	Orientation uint8
}

// Twin returns the other orientation of the same minimizer pair.
func (n GraphNode) Twin() GraphNode {
	return GraphNode{H0: n.H0, H1: n.H1, Orientation: 1 - n.Orientation}
}

func (n GraphNode) less(o GraphNode) bool {
	if n.H0 != o.H0 {
		return n.H0 < o.H0
	}
	if n.H1 != o.H1 {
		return n.H1 < o.H1
	}
	return n.Orientation < o.Orientation
}

// AdjPair is one directed edge of the minimizer graph, tagged with the
// sequence id it was observed on.
type AdjPair struct {
	SeqID uint32
	V, W  GraphNode
}

// AdjList is an edge list for the minimizer graph. Every edge implies a
// twin edge in the reverse orientation (W.Twin() -> V.Twin()), making the
// graph bidirected: a walk in one orientation always has a mirror walk in
// the other.
type AdjList []AdjPair

// fragHit is an occurrence of a minimizer-pair node used to build
// adjacency, carrying enough of FragmentSignature to detect adjacency
// (same sequence, one's end equals the next's begin).
type fragHit struct {
	seqID uint32
	bgn   uint32
	end   uint32
	node  GraphNode
}

// FragMapToAdjList builds the minimizer graph's edge list from a
// minimizer-pair index: pair occurrences are sorted by (seq id, begin,
// end, node), keys with fewer than minCount occurrences are dropped
// (unless their sequence id is in keeps), and adjacent same-sequence
// occurrences whose ranges touch end-to-begin become an edge (plus its
// twin edge).
func FragMapToAdjList(fragMap ShmmrToFrags, minCount int, keeps map[uint32]bool) AdjList {
	var hits []fragHit
	for pair, sigs := range fragMap {
		for _, sig := range sigs {
			hits = append(hits, fragHit{
				seqID: sig.SeqID, bgn: sig.Bgn, end: sig.End,
				node: GraphNode{H0: pair.H0, H1: pair.H1, Orientation: sig.Orientation},
			})
		}
	}
	if len(hits) < 2 {
		return nil
	}
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.seqID != b.seqID {
			return a.seqID < b.seqID
		}
		if a.bgn != b.bgn {
			return a.bgn < b.bgn
		}
		if a.end != b.end {
			return a.end < b.end
		}
		return a.node.less(b.node)
	})

	kept := make([]*fragHit, len(hits))
	for i := range hits {
		h := hits[i]
		n := fragMap[ShmmrPair{H0: h.node.H0, H1: h.node.H1}]
		if len(n) >= minCount || keeps[h.seqID] {
			kept[i] = &hits[i]
		}
	}

	var out AdjList
	for i := 0; i+1 < len(kept); i++ {
		v, w := kept[i], kept[i+1]
		if v == nil || w == nil {
			continue
		}
		if v.seqID != w.seqID || v.end != w.bgn {
			continue
		}
		out = append(out,
			AdjPair{SeqID: v.seqID, V: v.node, W: w.node},
			AdjPair{SeqID: v.seqID, V: w.node.Twin(), W: v.node.Twin()},
		)
	}
	return out
}

// GenerateAdjListForSeq builds the minimizer-graph edges implied by a
// single sequence's own minimizer stream, independent of any existing
// index: consecutive minimizer pairs along seq become an edge (plus its
// twin) as long as both pairs meet minCount in fragMap and the first
// pair's second position equals the second pair's first position.
func GenerateAdjListForSeq(seq []byte, sid uint32, fragMap ShmmrToFrags, spec ShmmrSpec, minCount int) AdjList {
	shmmrs := SequenceToShmmrs(0, seq, spec, false)
	if len(shmmrs) < 2 {
		return nil
	}

	type pairedNode struct {
		node       GraphNode
		pos0, pos1 uint32
	}
	pairs := make([]pairedNode, 0, len(shmmrs)-1)
	for i := 0; i+1 < len(shmmrs); i++ {
		m0, m1 := shmmrs[i], shmmrs[i+1]
		pair, orientation := CanonicalizePair(m0.Hash(), m1.Hash())
		pairs = append(pairs, pairedNode{
			node: GraphNode{H0: pair.H0, H1: pair.H1, Orientation: orientation},
			pos0: m0.Pos() + 1, pos1: m1.Pos() + 1,
		})
	}

	var out AdjList
	for i := 0; i+1 < len(pairs); i++ {
		v, w := pairs[i], pairs[i+1]
		vSigs, vOK := fragMap.Get(v.node.H0, v.node.H1)
		wSigs, wOK := fragMap.Get(w.node.H0, w.node.H1)
		if !vOK || !wOK || len(vSigs) < minCount || len(wSigs) < minCount {
			continue
		}
		if v.pos1 != w.pos0 {
			continue
		}
		out = append(out,
			AdjPair{SeqID: sid, V: v.node, W: w.node},
			AdjPair{SeqID: sid, V: w.node.Twin(), W: v.node.Twin()},
		)
	}
	return out
}

// adjGraph is the in-memory directed graph built from an AdjList, keyed
// by node for O(1) neighbor lookup.
type adjGraph struct {
	out map[GraphNode][]GraphNode
	in  map[GraphNode][]GraphNode
}

func buildAdjGraph(adj AdjList) *adjGraph {
	g := &adjGraph{out: map[GraphNode][]GraphNode{}, in: map[GraphNode][]GraphNode{}}
	seen := map[[2]GraphNode]bool{}
	for _, e := range adj {
		key := [2]GraphNode{e.V, e.W}
		if seen[key] {
			continue
		}
		seen[key] = true
		g.out[e.V] = append(g.out[e.V], e.W)
		g.in[e.W] = append(g.in[e.W], e.V)
	}
	return g
}

func (g *adjGraph) nodes() []GraphNode {
	set := map[GraphNode]bool{}
	for v := range g.out {
		set[v] = true
	}
	for v := range g.in {
		set[v] = true
	}
	out := make([]GraphNode, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

func (g *adjGraph) outDegree(v GraphNode) int { return len(g.out[v]) }
func (g *adjGraph) inDegree(v GraphNode) int  { return len(g.in[v]) }

func (g *adjGraph) removeNode(v GraphNode) {
	for _, w := range g.out[v] {
		g.in[w] = removeFromSlice(g.in[w], v)
	}
	for _, u := range g.in[v] {
		g.out[u] = removeFromSlice(g.out[u], v)
	}
	delete(g.out, v)
	delete(g.in, v)
}

func removeFromSlice(s []GraphNode, v GraphNode) []GraphNode {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// WeightedDFSStep is one step emitted by BiDiGraphWeightedDFS.
type WeightedDFSStep struct {
	Node       GraphNode
	Parent     *GraphNode
	IsLeaf     bool
	Rank       uint32
	BranchID   uint32
	BranchRank uint32
}

// BiDiGraphWeightedDFS walks a bidirected minimizer graph depth-first,
// always descending into the unvisited neighbor with the highest node
// weight (ties broken by the smaller node, lexicographically), and mints
// a new branch id every time it emits a leaf (a node with no unvisited
// outgoing neighbor); the walk then backtracks to the nearest earlier node
// that still has an unvisited neighbor and continues from there.
type BiDiGraphWeightedDFS struct {
	g       *adjGraph
	weight  map[GraphNode]uint32
	visited map[GraphNode]bool
	stack   []GraphNode
	parent  map[GraphNode]*GraphNode
	rank    uint32
	branch  uint32
}

// NewBiDiGraphWeightedDFS starts a weighted DFS walk from start.
func NewBiDiGraphWeightedDFS(adj AdjList, weight map[GraphNode]uint32, start GraphNode) *BiDiGraphWeightedDFS {
	return &BiDiGraphWeightedDFS{
		g:       buildAdjGraph(adj),
		weight:  weight,
		visited: map[GraphNode]bool{},
		parent:  map[GraphNode]*GraphNode{},
		stack:   []GraphNode{start},
	}
}

// Next returns the next node in the walk, or ok=false when the walk is
// exhausted (every node reachable from the start node has been visited).
func (w *BiDiGraphWeightedDFS) Next() (step WeightedDFSStep, ok bool) {
	for len(w.stack) > 0 {
		cur := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]
		if w.visited[cur] {
			// backtracking: descend into cur's next unvisited neighbor, if any
			if next, found := w.bestUnvisitedNeighbor(cur); found {
				p := cur
				w.parent[next] = &p
				w.stack = append(w.stack, cur, next)
			}
			continue
		}
		w.visited[cur] = true
		w.rank++

		next, found := w.bestUnvisitedNeighbor(cur)
		isLeaf := !found
		if found {
			p := cur
			w.parent[next] = &p
			w.stack = append(w.stack, cur, next)
		} else {
			w.branch++
		}

		var parentPtr *GraphNode
		if p, ok := w.parent[cur]; ok {
			parentPtr = p
		}

		return WeightedDFSStep{
			Node:       cur,
			Parent:     parentPtr,
			IsLeaf:     isLeaf,
			Rank:       w.rank,
			BranchID:   w.branch,
			BranchRank: w.rank,
		}, true
	}
	return WeightedDFSStep{}, false
}

func (w *BiDiGraphWeightedDFS) bestUnvisitedNeighbor(v GraphNode) (GraphNode, bool) {
	var best GraphNode
	var bestWeight uint32
	found := false
	for _, n := range w.g.out[v] {
		if w.visited[n] {
			continue
		}
		ww := w.weight[n]
		if !found || ww > bestWeight || (ww == bestWeight && n.less(best)) {
			best, bestWeight, found = n, ww, true
		}
	}
	return best, found
}
