package pgrtk

import "sort"

// AlignSegment is one matched minimizer-pair hit between a query and a
// target sequence: (QBgn, QEnd, QOrientation) on the query side and
// (TBgn, TEnd, TOrientation) on the target side, both as 0-based
// half-open ranges over the original sequence coordinates.
type AlignSegment struct {
	QBgn, QEnd   uint32
	QOrientation uint8
	TBgn, TEnd   uint32
	TOrientation uint8
}

// chainNode augments a hit with the DAG state needed by the longest-path
// chainer: accumulated score and a predecessor index (-1 if none).
type chainNode struct {
	seg   AlignSegment
	score float64
	prev  int
}

// hitOrientation returns the combined orientation of a hit: 0 if query
// and target orientations agree, 1 otherwise.
func hitOrientation(seg AlignSegment) uint8 {
	return seg.QOrientation ^ seg.TOrientation
}

// ChainHits finds the best-scoring chain of compatible hits between a
// query and a target using a DAG longest-path dynamic program: hits are
// sorted by target position, an edge exists from hit i to hit j (i before
// j) when both query and target coordinates advance and the positional
// gap does not exceed cfg.MaxGap, and edge weight is the overlap length
// minus a gap penalty proportional to the larger of the two coordinate
// gaps. At most cfg.MaxAlnChainSpan preceding hits are considered per
// node, bounding the DP to O(n * span).
func ChainHits(hits []AlignSegment, cfg ChainConfig) []AlignSegment {
	if len(hits) == 0 {
		return nil
	}
	sorted := make([]AlignSegment, len(hits))
	copy(sorted, hits)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TBgn != sorted[j].TBgn {
			return sorted[i].TBgn < sorted[j].TBgn
		}
		return sorted[i].QBgn < sorted[j].QBgn
	})

	nodes := make([]chainNode, len(sorted))
	for i, seg := range sorted {
		nodes[i] = chainNode{seg: seg, score: float64(seg.TEnd - seg.TBgn), prev: -1}
	}

	span := int(cfg.MaxAlnChainSpan)
	if span <= 0 {
		span = len(nodes)
	}

	for j := range nodes {
		lo := j - span
		if lo < 0 {
			lo = 0
		}
		for i := lo; i < j; i++ {
			if !chainCompatible(nodes[i].seg, nodes[j].seg, cfg) {
				continue
			}
			dq := int64(nodes[j].seg.QBgn) - int64(nodes[i].seg.QEnd)
			dt := int64(nodes[j].seg.TBgn) - int64(nodes[i].seg.TEnd)
			gap := absInt64(dq)
			if absInt64(dt) > gap {
				gap = absInt64(dt)
			}
			weight := float64(nodes[j].seg.TEnd-nodes[j].seg.TBgn) - cfg.GapPenaltyFactor*float64(gap)
			candidate := nodes[i].score + weight
			if candidate > nodes[j].score {
				nodes[j].score = candidate
				nodes[j].prev = i
			}
		}
	}

	best := 0
	for i := range nodes {
		if nodes[i].score > nodes[best].score {
			best = i
		}
	}

	var chain []AlignSegment
	for i := best; i != -1; i = nodes[i].prev {
		chain = append(chain, nodes[i].seg)
	}
	reverseSegments(chain)
	return chain
}

// chainCompatible reports whether b may directly follow a in a chain:
// both orientations must agree between the two hits, coordinates must
// advance on both sequences (allowing for reverse-orientation hits, where
// the query coordinate runs backward relative to the target), and the
// gap on either axis must not exceed cfg.MaxGap.
func chainCompatible(a, b AlignSegment, cfg ChainConfig) bool {
	if hitOrientation(a) != hitOrientation(b) {
		return false
	}
	if b.TBgn < a.TEnd {
		return false
	}
	if hitOrientation(a) == 0 {
		if b.QBgn < a.QEnd {
			return false
		}
		if uint32(cfg.MaxGap) > 0 && b.QBgn-a.QEnd > cfg.MaxGap {
			return false
		}
	} else {
		if b.QEnd > a.QBgn {
			return false
		}
		if uint32(cfg.MaxGap) > 0 && a.QBgn-b.QEnd > cfg.MaxGap {
			return false
		}
	}
	if uint32(cfg.MaxGap) > 0 && b.TBgn-a.TEnd > cfg.MaxGap {
		return false
	}
	return true
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func reverseSegments(s []AlignSegment) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// AlnBlock is a maximal run of forward-strand-consistent coverage
// produced by FilterChain/FilterChainRev: the target and query ranges it
// spans, after collapsing overlapping or out-of-order hits.
type AlnBlock struct {
	TBgn, TEnd uint32
	QBgn, QEnd uint32
}

// FilterChain collapses a sorted chain of same-orientation hits into
// maximal forward-consistent alignment blocks, grounded directly on the
// reference implementation's filter_aln: a new block starts whenever a
// hit's target begin moves past the last block's target end, merging
// everything in between into one span.
func FilterChain(segs []AlignSegment) []AlnBlock {
	if len(segs) == 0 {
		return nil
	}
	lastTs, lastTe := segs[0].TBgn, segs[0].TEnd
	lastQs, lastQe := segs[0].QBgn, segs[0].QEnd

	out := []AlnBlock{{TBgn: lastTs, TEnd: lastTe, QBgn: lastQs, QEnd: lastQe}}
	for _, seg := range segs {
		if seg.TEnd < seg.TBgn {
			continue
		}
		if seg.QOrientation != seg.TOrientation {
			continue
		}
		if seg.TBgn > lastTe {
			lastTs = lastTe
			lastTe = seg.TEnd
			lastQs = lastQe
			lastQe = seg.QEnd
			if lastTs == lastTe {
				continue
			}
			out = append(out, AlnBlock{TBgn: lastTs, TEnd: lastTe, QBgn: lastQs, QEnd: lastQe})
		}
	}
	return out
}

// FilterChainRev is FilterChain run over the reversed hit list, collecting
// blocks only from hits whose query and target orientations differ
// (reverse-orientation hits), grounded on the reference implementation's filter_aln_rev.
func FilterChainRev(segs []AlignSegment) []AlnBlock {
	if len(segs) == 0 {
		return nil
	}
	rev := make([]AlignSegment, len(segs))
	for i, s := range segs {
		rev[len(segs)-1-i] = s
	}

	lastTs, lastTe := rev[0].TBgn, rev[0].TEnd
	lastQs, lastQe := rev[0].QBgn, rev[0].QEnd

	out := []AlnBlock{{TBgn: lastTs, TEnd: lastTe, QBgn: lastQs, QEnd: lastQe}}
	for _, seg := range rev {
		if seg.TEnd < seg.TBgn {
			continue
		}
		if seg.QOrientation == seg.TOrientation {
			continue
		}
		if seg.TBgn >= lastTe {
			lastTs = lastTe
			lastTe = seg.TEnd
			lastQe = lastQs
			lastQs = seg.QBgn
			if lastTs == lastTe {
				continue
			}
			out = append(out, AlnBlock{TBgn: lastTs, TEnd: lastTe, QBgn: lastQs, QEnd: lastQe})
		}
	}
	return out
}
