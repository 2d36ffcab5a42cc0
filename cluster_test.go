package pgrtk

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func fragRecordsForSeq(t *testing.T, seq []byte, spec ShmmrSpec) []SMPFragRecord {
	t.Helper()
	smps := SMPOccurrencesForSeq(seq, spec)
	out := make([]SMPFragRecord, 0, len(smps))
	for _, s := range smps {
		out = append(out, SMPFragRecord{
			FragKey:     shmmrPairKey(s.Pair),
			Bgn:         s.P0,
			End:         s.P1,
			Orientation: s.Orientation,
		})
	}
	return out
}

func shmmrPairKey(p ShmmrPair) string {
	buf := make([]byte, 0, 32)
	buf = appendUint64(buf, p.H0)
	buf = append(buf, ':')
	buf = appendUint64(buf, p.H1)
	return string(buf)
}

func appendUint64(buf []byte, v uint64) []byte {
	if v == 0 {
		return append(buf, '0')
	}
	var digits [20]byte
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return append(buf, digits[i:]...)
}

// TestAlignSMPsIdenticalSequencesIsZeroDistance covers scenario S6's first
// half: a sequence aligned against itself has distance 0.
func TestAlignSMPsIdenticalSequencesIsZeroDistance(t *testing.T) {
	spec := ShmmrSpec{W: 16, K: 16, R: 2, MinSpan: 16}
	seq := randomDNA(3000, 51)
	records := fragRecordsForSeq(t, seq, spec)

	dist, _, _, _, _ := AlignSMPs(records, records)
	require.InDelta(t, 0.0, dist, 0.01)
}

// TestAlignSMPsIsSymmetric covers scenario S6's comparison setup at the
// pairwise-distance level: swapping which sequence is first/second leaves
// the normalized distance unchanged, since the caller's dist matrix must
// be symmetric for average-linkage clustering to be well-defined.
func TestAlignSMPsIsSymmetric(t *testing.T) {
	spec := ShmmrSpec{W: 16, K: 16, R: 2, MinSpan: 16}
	r0 := fragRecordsForSeq(t, randomDNA(3000, 61), spec)
	r1 := fragRecordsForSeq(t, randomDNA(3000, 62), spec)

	d01, _, _, _, _ := AlignSMPs(r0, r1)
	d10, _, _, _, _ := AlignSMPs(r1, r0)
	require.InDelta(t, float64(d01), float64(d10), 1e-6)
}

func TestAverageLinkageAndNewickOnFourPoints(t *testing.T) {
	// two close pairs, far from each other
	dist := [][]float64{
		{0, 0.1, 0.9, 0.95},
		{0.1, 0, 0.92, 0.97},
		{0.9, 0.92, 0, 0.12},
		{0.95, 0.97, 0.12, 0},
	}
	steps := AverageLinkage(dist, 4)
	require.Len(t, steps, 3)

	names := []string{"a", "b", "c", "d"}
	newick := BuildNewick(steps, 4, func(i int) string { return names[i] })
	require.Contains(t, newick, "a")
	require.Contains(t, newick, "d")

	var buf bytes.Buffer
	require.NoError(t, WriteDendrogram(&buf, steps, 4, func(i int) string { return names[i] }))
	require.Contains(t, buf.String(), "L\t0\ta\n")
}

func TestAverageLinkageSinglePointIsEmpty(t *testing.T) {
	require.Nil(t, AverageLinkage([][]float64{{0}}, 1))
}

func TestWriteOffsetsNormalizesWithinRelatedGroups(t *testing.T) {
	dist := func(i, j int) float64 {
		if i == j {
			return 0
		}
		return 0.1
	}
	offset := func(i, j int) int { return j - i }
	names := []string{"x", "y", "z"}
	steps := []LinkageStep{{Cluster1: 0, Cluster2: 1, Dissimilarity: 0.1, Size: 2}, {Cluster1: 3, Cluster2: 2, Dissimilarity: 0.1, Size: 3}}

	var buf bytes.Buffer
	require.NoError(t, WriteOffsets(&buf, steps, 3, func(i int) string { return names[i] }, dist, offset))
	require.NotEmpty(t, buf.String())
}
