package pgrtk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildRelatedFamily returns n sequences that are noisy copies of a shared
// backbone, so the minimizer graph they induce has a long principal path.
func buildRelatedFamily(n, length int, seed uint64) [][]byte {
	backbone := randomDNA(length, seed)
	out := make([][]byte, n)
	for i := range out {
		cp := append([]byte{}, backbone...)
		// perturb a handful of positions so sequences aren't byte-identical
		x := seed + uint64(i)*97
		bases := []byte{'A', 'C', 'G', 'T'}
		for k := 0; k < 5; k++ {
			x = x*6364136223846793005 + 1
			pos := int(x>>33) % length
			cp[pos] = bases[(x>>17)&0x3]
		}
		out[i] = cp
	}
	return out
}

func buildBundleGraph(t *testing.T, seqs [][]byte, spec ShmmrSpec, minCov int) (ShmmrToFrags, AdjList, [][]GraphNode, VertexToBundleMap) {
	t.Helper()
	fragMap := ShmmrToFrags{}
	for sid, seq := range seqs {
		shmmrs := SequenceToShmmrs(uint32(sid), seq, spec, false)
		for i := 0; i+1 < len(shmmrs); i++ {
			m0, m1 := shmmrs[i], shmmrs[i+1]
			pair, orientation := CanonicalizePair(m0.Hash(), m1.Hash())
			fragMap.Append(pair, FragmentSignature{
				SeqID: uint32(sid), Bgn: m0.Pos() + 1, End: m1.Pos() + 1, Orientation: orientation,
			})
		}
	}
	adj := FragMapToAdjList(fragMap, minCov, nil)
	bundles, filtered := GetPrincipalBundles(fragMap, adj, 5)
	vmap := BuildVertexToBundleMap(bundles)
	return fragMap, filtered, bundles, vmap
}

// TestBundleTwinClosure covers property 9: a node's twin never lands in
// the same bundle as the node itself.
func TestBundleTwinClosure(t *testing.T) {
	seqs := buildRelatedFamily(20, 2000, 12345)
	spec := ShmmrSpec{W: 16, K: 16, R: 2, MinSpan: 16}
	_, _, bundles, _ := buildBundleGraph(t, seqs, spec, 0)
	require.NotEmpty(t, bundles)

	for _, bundle := range bundles {
		inBundle := map[GraphNode]bool{}
		for _, v := range bundle {
			inBundle[v] = true
		}
		for _, v := range bundle {
			require.Falsef(t, inBundle[v.Twin()], "node %v and its twin share a bundle", v)
		}
	}
}

// TestBundleCoverageBound covers property 8: the runs GroupByPrincipalBundle
// emits for a sequence never cover more positions than the sequence itself.
func TestBundleCoverageBound(t *testing.T) {
	seqs := buildRelatedFamily(30, 3000, 777)
	spec := ShmmrSpec{W: 16, K: 16, R: 2, MinSpan: 16}
	_, _, bundles, vmap := buildBundleGraph(t, seqs, spec, 0)
	require.NotEmpty(t, bundles)

	smps := SMPOccurrencesForSeq(seqs[0], spec)
	runs := GroupByPrincipalBundle(smps, vmap, 0, 0)

	var totalSpan int
	for _, run := range runs {
		first, last := run[0], run[len(run)-1]
		totalSpan += int(last.SMP.P1) - int(first.SMP.P0)
	}
	require.LessOrEqual(t, totalSpan, len(seqs[0]))
}

// TestPrincipalBundleDecompositionCoversMostOfLongestSequence adapts
// scenario S5: over a family of related sequences with min_cov=0 (and
// buildBundleGraph's path-length cutoff of 5), the longest sequence's
// pre-merge bundle runs cover at least 60% of its length.
func TestPrincipalBundleDecompositionCoversMostOfLongestSequence(t *testing.T) {
	seqs := buildRelatedFamily(100, 5000, 9001)
	spec := ShmmrSpec{W: 16, K: 16, R: 2, MinSpan: 16}
	_, _, bundles, vmap := buildBundleGraph(t, seqs, spec, 0)
	require.NotEmpty(t, bundles)

	longest := seqs[0]
	smps := SMPOccurrencesForSeq(longest, spec)
	runs := GroupByPrincipalBundle(smps, vmap, 0, 0)
	require.NotEmpty(t, runs)

	var covered int
	for _, run := range runs {
		first, last := run[0], run[len(run)-1]
		covered += int(last.SMP.P1) - int(first.SMP.P0)
	}
	require.Greater(t, covered, 0)
	require.GreaterOrEqual(t, covered*10, len(longest)*6)
	require.LessOrEqual(t, covered, len(longest))
}

// TestPrincipalBundlesSplitAtMergeVertexNotPredecessor pins the terminal
// marking in GetPrincipalBundles to the vertex whose in-degree exceeds 1,
// not its predecessor. The graph below has two routes into n2 (directly
// from n1, and via n1->n4->n2), so n2 has in-degree 2 once both
// predecessors survive into the restricted graph. Marking the wrong
// vertex as terminal lets the walk run one step past the merge point,
// splitting n4 and n1's twin off into singleton bundles instead of
// stopping the walk at n2 itself.
func TestPrincipalBundlesSplitAtMergeVertexNotPredecessor(t *testing.T) {
	n1 := GraphNode{H0: 1, H1: 2, Orientation: 0}
	n2 := GraphNode{H0: 2, H1: 3, Orientation: 0}
	n3 := GraphNode{H0: 3, H1: 4, Orientation: 0}
	n4 := GraphNode{H0: 4, H1: 5, Orientation: 0}

	fragMap := ShmmrToFrags{}
	addSigs := func(h0, h1 uint64, n int) {
		for i := 0; i < n; i++ {
			fragMap.Append(ShmmrPair{H0: h0, H1: h1}, FragmentSignature{SeqID: 0, Bgn: uint32(i), End: uint32(i + 1)})
		}
	}
	addSigs(1, 2, 2)
	addSigs(4, 5, 5) // outweighs n2 so the walk from n1 goes via n4 first
	addSigs(2, 3, 3)
	addSigs(3, 4, 1)

	adj := AdjList{
		{SeqID: 0, V: n1, W: n2},
		{SeqID: 0, V: n2.Twin(), W: n1.Twin()},
		{SeqID: 0, V: n1, W: n4},
		{SeqID: 0, V: n4.Twin(), W: n1.Twin()},
		{SeqID: 0, V: n4, W: n2},
		{SeqID: 0, V: n2.Twin(), W: n4.Twin()},
		{SeqID: 0, V: n2, W: n3},
		{SeqID: 0, V: n3.Twin(), W: n2.Twin()},
	}

	bundles, _ := GetPrincipalBundles(fragMap, adj, 0)
	require.Len(t, bundles, 2)
	for _, b := range bundles {
		require.GreaterOrEqualf(t, len(b), 2, "bundle %v should not be split at the merge vertex's predecessor", b)
	}

	pairsOf := func(b []GraphNode) map[ShmmrPair]bool {
		m := map[ShmmrPair]bool{}
		for _, v := range b {
			m[ShmmrPair{H0: v.H0, H1: v.H1}] = true
		}
		return m
	}
	var mergeBundle, branchBundle map[ShmmrPair]bool
	for _, b := range bundles {
		p := pairsOf(b)
		if p[ShmmrPair{H0: 2, H1: 3}] {
			mergeBundle = p
		} else {
			branchBundle = p
		}
	}
	require.NotNil(t, mergeBundle)
	require.True(t, mergeBundle[ShmmrPair{H0: 3, H1: 4}], "the merge vertex should stay grouped with its downstream neighbor")
	require.NotNil(t, branchBundle)
	require.True(t, branchBundle[ShmmrPair{H0: 1, H1: 2}])
	require.True(t, branchBundle[ShmmrPair{H0: 4, H1: 5}], "n4 should stay grouped with n1, not split off alone")
}
