package pgrtk

import (
	"fmt"
	"io"
	"sort"
)

// SMPFragRecord is one minimizer-pair occurrence along a contig's
// principal-bundle projection, keyed by a stable fragment key (typically
// a string encoding of the minimizer pair) rather than the pair itself,
// matching the reference implementation's string-keyed shmmr id.
type SMPFragRecord struct {
	FragKey     string
	Bgn, End    uint32
	Orientation uint8
}

const mergeLengthOffset = 16

// AlignSMPs scores the similarity of two contigs' SMP streams by
// matching shared (fragment, orientation) keys, exactly mirroring
// align_smps: fragments present on both sides with equal multiplicity
// contribute their summed length to the match score and (if unique)
// their begin-position offset to an offset-clustering pass; fragments
// with mismatched multiplicity contribute the smaller length minus the
// absolute length difference; fragments unique to one side subtract
// their length. It returns the normalized distance, the total
// differing length, the best offset cluster's covered length, the raw
// match score, and the best cluster's average offset.
func AlignSMPs(smps0, smps1 []SMPFragRecord) (dist float32, diffLen int, maxLen int, bestScore int64, bestOffset int) {
	type key struct {
		frag string
		or   uint8
	}
	frags0 := map[key][][2]uint32{}
	frags1 := map[key][][2]uint32{}
	all := map[key]bool{}
	var length0, length1 uint32

	for _, s := range smps0 {
		k := key{s.FragKey, s.Orientation}
		frags0[k] = append(frags0[k], [2]uint32{s.Bgn, s.End})
		all[k] = true
		length0 += s.End - s.Bgn
	}
	for _, s := range smps1 {
		k := key{s.FragKey, s.Orientation}
		frags1[k] = append(frags1[k], [2]uint32{s.Bgn, s.End})
		all[k] = true
		length1 += s.End - s.Bgn
	}

	var matchScore int64
	var diff uint32
	type offsetEntry struct {
		offset int32
		length uint32
	}
	var offsets []offsetEntry

	keys := make([]key, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].frag != keys[j].frag {
			return keys[i].frag < keys[j].frag
		}
		return keys[i].or < keys[j].or
	})

	for _, k := range keys {
		f0, ok0 := frags0[k]
		f1, ok1 := frags1[k]
		switch {
		case ok0 && ok1:
			l0 := sumSpans(f0)
			l1 := sumSpans(f1)
			if len(f0) == len(f1) {
				matchScore += int64(l0 + l1)
				if len(f0) == 1 {
					offsets = append(offsets, offsetEntry{
						offset: int32(f1[0][0]) - int32(f0[0][0]),
						length: l0 + l1,
					})
				}
			} else {
				matchScore += int64(minU32(l0, l1)) - int64(absDiffU32(l0, l1))
				diff += absDiffU32(l0, l1)
			}
		case ok0:
			l0 := sumSpans(f0)
			matchScore -= int64(l0)
			diff += l0
		case ok1:
			l1 := sumSpans(f1)
			matchScore -= int64(l1)
			diff += l1
		}
	}

	sort.Slice(offsets, func(i, j int) bool { return offsets[i].offset < offsets[j].offset })

	var clusters [][]offsetEntry
	var cur []offsetEntry
	var curOffset *int32
	for _, o := range offsets {
		if curOffset != nil && o.offset-*curOffset < mergeLengthOffset {
			v := o.offset
			curOffset = &v
			cur = append(cur, o)
		} else {
			if len(cur) > 0 {
				clusters = append(clusters, cur)
			}
			cur = []offsetEntry{o}
			v := o.offset
			curOffset = &v
		}
	}
	if len(cur) > 0 {
		clusters = append(clusters, cur)
	}

	if len(clusters) == 0 {
		return 1.0, int(diff), -1, matchScore, 0
	}

	sort.Slice(clusters, func(i, j int) bool { return len(clusters[i]) > len(clusters[j]) })
	best := clusters[0]
	var sumOffset int64
	var sumLen uint32
	for _, o := range best {
		sumOffset += int64(o.offset)
		sumLen += o.length
	}
	aveOffset := int(sumOffset / int64(len(best)))

	total := length0 + length1
	var d float32 = 1.0
	if total > 0 {
		d = 1.0 - 0.5*(float32(matchScore)/float32(total)+1.0)
	}
	return d, int(diff), int(sumLen), matchScore, aveOffset
}

func sumSpans(spans [][2]uint32) uint32 {
	var total uint32
	for _, s := range spans {
		total += s[1] - s[0]
	}
	return total
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func absDiffU32(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// LinkageStep is one merge event of an agglomerative clustering
// dendrogram, matching kodama's Dendrogram::steps() shape.
type LinkageStep struct {
	Cluster1, Cluster2 int
	Dissimilarity      float64
	Size               int
}

// AverageLinkage runs average-linkage (UPGMA) agglomerative clustering
// over a condensed distance matrix for n items (dist[i][j], i<j, holds
// the pairwise distance), returning the n-1 merge steps in merge order.
// New clusters are numbered n, n+1, ... in merge order, matching kodama's
// Method::Average numbering convention. No ecosystem clustering package
// surfaced by the retrieved examples implements average-linkage
// dendrogram construction, so this is a direct, if unoptimized, O(n^3)
// implementation of the textbook algorithm.
func AverageLinkage(dist [][]float64, n int) []LinkageStep {
	if n <= 1 {
		return nil
	}

	active := make([]int, n)
	for i := range active {
		active[i] = i
	}
	size := map[int]int{}
	for i := 0; i < n; i++ {
		size[i] = 1
	}

	d := map[[2]int]float64{}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d[[2]int{i, j}] = dist[i][j]
		}
	}
	pairDist := func(a, b int) float64 {
		if a > b {
			a, b = b, a
		}
		return d[[2]int{a, b}]
	}
	setDist := func(a, b int, v float64) {
		if a > b {
			a, b = b, a
		}
		d[[2]int{a, b}] = v
	}

	var steps []LinkageStep
	nextID := n

	for len(active) > 1 {
		bi, bj := 0, 1
		best := pairDist(active[0], active[1])
		for i := 0; i < len(active); i++ {
			for j := i + 1; j < len(active); j++ {
				v := pairDist(active[i], active[j])
				if v < best {
					best, bi, bj = v, i, j
				}
			}
		}
		a, b := active[bi], active[bj]
		sa, sb := size[a], size[b]
		newID := nextID
		nextID++

		for k, c := range active {
			if k == bi || k == bj {
				continue
			}
			dac := pairDist(a, c)
			dbc := pairDist(b, c)
			merged := (float64(sa)*dac + float64(sb)*dbc) / float64(sa+sb)
			setDist(newID, c, merged)
		}

		steps = append(steps, LinkageStep{Cluster1: a, Cluster2: b, Dissimilarity: best, Size: sa + sb})
		size[newID] = sa + sb

		var remaining []int
		for k, c := range active {
			if k != bi && k != bj {
				remaining = append(remaining, c)
			}
		}
		remaining = append(remaining, newID)
		active = remaining
	}
	return steps
}

// BuildNewick renders a dendrogram's merge steps as a Newick tree string
// (without the trailing semicolon), using branch lengths derived from
// each merge's dissimilarity minus the height already accumulated by its
// children, and orders each pair so the larger subtree prints first,
// exactly mirroring the reference tree-string construction.
func BuildNewick(steps []LinkageStep, n int, leafName func(int) string) string {
	type node struct {
		label  string
		leaves []int
		height float64
	}
	data := make(map[int]node, n)
	for i := 0; i < n; i++ {
		data[i] = node{label: leafName(i), leaves: []int{i}, height: 0}
	}

	lastID := -1
	for c, s := range steps {
		n1 := data[s.Cluster1]
		n2 := data[s.Cluster2]
		delete(data, s.Cluster1)
		delete(data, s.Cluster2)
		newID := c + n

		var label string
		var leaves []int
		if len(n1.leaves) > len(n2.leaves) {
			leaves = append(leaves, n1.leaves...)
			leaves = append(leaves, n2.leaves...)
			label = fmt.Sprintf("(%s:%g, %s:%g)", n1.label, s.Dissimilarity-n1.height, n2.label, s.Dissimilarity-n2.height)
		} else {
			leaves = append(leaves, n2.leaves...)
			leaves = append(leaves, n1.leaves...)
			label = fmt.Sprintf("(%s:%g, %s:%g)", n2.label, s.Dissimilarity-n2.height, n1.label, s.Dissimilarity-n1.height)
		}
		data[newID] = node{label: label, leaves: leaves, height: s.Dissimilarity}
		lastID = newID
	}
	if lastID == -1 {
		return ""
	}
	return data[lastID].label
}

// WriteDendrogram writes the ".ddg" text format: one "L sid name" line
// per leaf in the final tree's leaf order, then one "I id c1 c2 size
// dissimilarity" line per merge step, then one "P vid pos height size"
// line per node giving its horizontal dendrogram position.
func WriteDendrogram(w io.Writer, steps []LinkageStep, n int, leafName func(int) string) error {
	leaves := dendrogramLeafOrder(steps, n)

	for _, id := range leaves {
		if _, err := fmt.Fprintf(w, "L\t%d\t%s\n", id, leafName(id)); err != nil {
			return wrapf(err, "ddg: write leaf")
		}
	}

	positionSize := map[int][2]float64{}
	position := 0.0
	for _, id := range leaves {
		positionSize[id] = [2]float64{position, 0}
		position++
	}

	for c, s := range steps {
		if _, err := fmt.Fprintf(w, "I\t%d\t%d\t%d\t%d\t%g\n", c+n, s.Cluster1, s.Cluster2, s.Size, s.Dissimilarity); err != nil {
			return wrapf(err, "ddg: write merge")
		}
		pos0, pos1 := positionSize[s.Cluster1][0], positionSize[s.Cluster2][0]
		sz0, sz1 := nodeSize(s.Cluster1, n, steps), nodeSize(s.Cluster2, n, steps)
		pos := (float64(sz0)*pos0 + float64(sz1)*pos1) / float64(sz0+sz1)
		positionSize[c+n] = [2]float64{pos, s.Dissimilarity}
	}

	ids := make([]int, 0, len(positionSize))
	for id := range positionSize {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		ps := positionSize[id]
		sz := nodeSize(id, n, steps)
		if _, err := fmt.Fprintf(w, "P\t%d\t%g\t%g\t%d\n", id, ps[0], ps[1], sz); err != nil {
			return wrapf(err, "ddg: write position")
		}
	}
	return nil
}

// nodeSize returns the number of leaves under a dendrogram node id (a
// leaf index below n, or n+step-index for internal nodes).
func nodeSize(id, n int, steps []LinkageStep) int {
	if id < n {
		return 1
	}
	return steps[id-n].Size
}

// dendrogramLeafOrder returns the leaf ids in the order they appear in
// the final Newick tree (left to right), matching the order WriteOffsets
// walks when emitting contig offsets.
func dendrogramLeafOrder(steps []LinkageStep, n int) []int {
	type node struct{ leaves []int }
	data := make(map[int]node, n)
	for i := 0; i < n; i++ {
		data[i] = node{leaves: []int{i}}
	}
	lastID := -1
	for c, s := range steps {
		n1, n2 := data[s.Cluster1], data[s.Cluster2]
		delete(data, s.Cluster1)
		delete(data, s.Cluster2)
		newID := c + n
		var leaves []int
		if len(n1.leaves) > len(n2.leaves) {
			leaves = append(append([]int{}, n1.leaves...), n2.leaves...)
		} else {
			leaves = append(append([]int{}, n2.leaves...), n1.leaves...)
		}
		data[newID] = node{leaves: leaves}
		lastID = newID
	}
	if lastID == -1 {
		if n == 1 {
			return []int{0}
		}
		return nil
	}
	return data[lastID].leaves
}

// WriteOffsets writes the ".offset" file: contigs are walked in
// dendrogram leaf order, accumulating a running alignment offset between
// consecutive contigs whose pairwise distance is below 0.25 (closely
// related enough that the offset is meaningful); each run of closely
// related contigs is normalized so its minimum offset is zero before
// being written as "name\toffset" lines.
func WriteOffsets(w io.Writer, steps []LinkageStep, n int, leafName func(int) string, dist func(i, j int) float64, offset func(i, j int) int) error {
	leaves := dendrogramLeafOrder(steps, n)

	type entry struct {
		idx    int
		offset int
	}
	var group []entry
	groupMin := 100000
	runningOffset := 0
	var prev *int

	flush := func() error {
		for _, e := range group {
			if _, err := fmt.Fprintf(w, "%s\t%d\n", leafName(e.idx), e.offset-groupMin); err != nil {
				return wrapf(err, "offset: write")
			}
		}
		return nil
	}

	for _, idx := range leaves {
		if prev != nil {
			lo, hi := *prev, idx
			if lo > hi {
				lo, hi = hi, lo
			}
			if dist(lo, hi) < 0.25 {
				runningOffset += offset(*prev, idx)
				group = append(group, entry{idx: idx, offset: runningOffset})
				if runningOffset < groupMin {
					groupMin = runningOffset
				}
			} else {
				if err := flush(); err != nil {
					return err
				}
				group = nil
				runningOffset = 0
				group = append(group, entry{idx: idx, offset: 0})
				groupMin = 0
			}
		} else {
			group = append(group, entry{idx: idx, offset: 0})
			groupMin = 0
		}
		p := idx
		prev = &p
	}
	return flush()
}
