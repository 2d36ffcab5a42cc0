package pgrtk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefineGapEmptyGapIsDiffNone(t *testing.T) {
	result := RefineGap(nil, nil, 1024)
	require.Equal(t, DiffNone, result.Kind)
	require.Empty(t, result.Variants)
}

func TestRefineGapIdenticalSequencesYieldsNoVariants(t *testing.T) {
	seq := randomDNA(200, 71)
	result := RefineGap(seq, seq, 1024)
	require.Equal(t, DiffAligned, result.Kind)
	require.Empty(t, result.Variants)
}

// TestRefineGapSubstitution covers property 7: every emitted variant's
// target position falls strictly within [0, len(tSeq)).
func TestRefineGapSubstitution(t *testing.T) {
	t1 := randomDNA(120, 81)
	q1 := append([]byte{}, t1...)
	mid := len(q1) / 2
	if q1[mid] == 'A' {
		q1[mid] = 'C'
	} else {
		q1[mid] = 'A'
	}

	result := RefineGap(t1, q1, 1024)
	require.Equal(t, DiffAligned, result.Kind)
	require.NotEmpty(t, result.Variants)
	for _, v := range result.Variants {
		require.Less(t, v.TPos, uint32(len(t1)))
	}
}

func TestRefineGapLengthDiffBeyondBandFails(t *testing.T) {
	t1 := randomDNA(2000, 91)
	// keep the first/last 16 bases identical so the end-match gate passes
	// and the length-diff check downstream is what actually fires.
	q1 := append([]byte{}, t1[:16]...)
	q1 = append(q1, randomDNA(1768, 94)...)
	q1 = append(q1, t1[len(t1)-16:]...)

	result := RefineGap(t1, q1, 256)
	require.Equal(t, FailLengthDiff, result.Kind)
}

func TestRefineGapOneSidedShortSeqFails(t *testing.T) {
	t1 := randomDNA(5000, 93)
	result := RefineGap(t1, nil, 256)
	require.Equal(t, FailShortSeq, result.Kind)
}

// TestRefineGapBothSidesShortFails pins the dispatch-table's FailShortSeq
// gate ahead of alignment: two short, non-empty sides must fail short
// rather than being handed to an aligner.
func TestRefineGapBothSidesShortFails(t *testing.T) {
	t1 := randomDNA(10, 95)
	q1 := randomDNA(10, 96)
	result := RefineGap(t1, q1, 1024)
	require.Equal(t, FailShortSeq, result.Kind)
	require.Empty(t, result.Variants)
}

// TestRefineGapEndMismatchFails covers the end-match gate: both sides are
// well above the short-seq floor and within length-diff tolerance, but
// their leading/trailing 16 bases disagree, so the gap boundary itself is
// unreliable and alignment must not be attempted.
func TestRefineGapEndMismatchFails(t *testing.T) {
	t1 := randomDNA(200, 97)
	q1 := randomDNA(200, 98)
	result := RefineGap(t1, q1, 1024)
	require.Equal(t, FailEndMatch, result.Kind)
	require.Empty(t, result.Variants)
}
