// Package query implements the read-side lookup API over a built index:
// given a sequence name/source and a coordinate range, return the
// bundle-labeled minimizer-pair walk covering it, padded and merged the
// way a genome-browser range query expects.
package query

import (
	"sort"

	"github.com/pgrtk-go/pgrtk"
)

// Result is the answer to one range query.
type Result struct {
	SeqID   uint32
	Name    string
	Source  string
	Bgn     uint32
	End     uint32
	Bundles []BundleSpan
}

// BundleSpan is one principal-bundle run intersecting the queried range,
// clamped to the sequence's own length.
type BundleSpan struct {
	BundleID  int
	Direction uint32
	Bgn, End  uint32
}

// Store is the subset of a built index a query needs: sequence lookup by
// name, sequence length and SMP walk. The vertex-to-bundle map computed
// for that index's minimizer graph is passed to Query separately.
type Store interface {
	pgrtk.SeqSource
	LookupByName(name, source string) (uint32, bool)
	SeqLen(sid uint32) (uint32, bool)
	SeqSMPs(sid uint32) ([]pgrtk.SMPOccurrence, bool)
}

// Query answers a range lookup: it clamps [begin-padding, end+padding] to
// [0, seqLen], finds the principal-bundle runs whose span intersects the
// clamped range, and merges consecutive runs of the same bundle and
// direction separated by at most mergeRangeTol, mirroring the reference implementation's browser
// track query.
func Query(store Store, bmap pgrtk.VertexToBundleMap, source, contig string, begin, end, padding, mergeRangeTol uint32) (Result, error) {
	sid, ok := store.LookupByName(contig, source)
	if !ok {
		return Result{}, pgrtk.ErrUnknownSeqID
	}
	seqLen, ok := store.SeqLen(sid)
	if !ok {
		return Result{}, pgrtk.ErrUnknownSeqID
	}

	bgn := clampSub(begin, padding)
	e := end + padding
	if e > seqLen {
		e = seqLen
	}
	if bgn > e {
		bgn = e
	}

	smps, _ := store.SeqSMPs(sid)

	var spans []BundleSpan
	for _, smp := range smps {
		info, ok := bmap[smp.Pair]
		if !ok {
			continue
		}
		if smp.P1 <= bgn || smp.P0 >= e {
			continue
		}
		spans = append(spans, BundleSpan{
			BundleID:  info.BundleID,
			Direction: directionOf(smp, info),
			Bgn:       maxU32(smp.P0, bgn),
			End:       minU32(smp.P1, e),
		})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].Bgn < spans[j].Bgn })
	merged := mergeSpans(spans, mergeRangeTol)

	return Result{
		SeqID: sid, Name: contig, Source: source,
		Bgn: bgn, End: e, Bundles: merged,
	}, nil
}

func directionOf(smp pgrtk.SMPOccurrence, info pgrtk.BundleAssignment) uint32 {
	if smp.Orientation != info.Orientation {
		return 1
	}
	return 0
}

func mergeSpans(spans []BundleSpan, tol uint32) []BundleSpan {
	if len(spans) == 0 {
		return nil
	}
	out := spans[:1]
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if last.BundleID == s.BundleID && last.Direction == s.Direction && s.Bgn <= last.End+tol {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

func clampSub(v, d uint32) uint32 {
	if d > v {
		return 0
	}
	return v - d
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
