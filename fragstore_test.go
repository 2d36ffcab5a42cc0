package pgrtk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildTestDB(t *testing.T, seqs map[uint32][]byte, spec ShmmrSpec) *CompactSeqDB {
	t.Helper()
	db := NewCompactSeqDB(spec)
	for sid := uint32(0); sid < uint32(len(seqs)); sid++ {
		seq := seqs[sid]
		minimizers := SequenceToShmmrs(sid, seq, spec, false)
		_, err := db.Ingest(sid, "seq", nil, seq, minimizers)
		require.NoError(t, err)
	}
	return db
}

// TestReconstructionFidelity covers property 1 and scenario S1: every
// ingested sequence reconstructs byte-exact, whole and in every subrange.
func TestReconstructionFidelity(t *testing.T) {
	spec := ShmmrSpec{W: 16, K: 16, R: 2, MinSpan: 16}
	seqs := map[uint32][]byte{
		0: randomDNA(3000, 101),
		1: randomDNA(1500, 202),
		2: randomDNA(50, 303), // short: only two minimizers survive, so a single internal fragment
	}
	db := buildTestDB(t, seqs, spec)
	require.NoError(t, db.SealAll())

	for sid, original := range seqs {
		got, err := db.GetByID(sid)
		require.NoError(t, err)
		require.Equal(t, original, got)

		for b := 0; b <= len(original); b += 37 {
			for e := b; e <= len(original); e += 53 {
				sub, err := db.GetSubRange(sid, uint32(b), uint32(e))
				require.NoError(t, err)
				require.Equal(t, original[b:e], sub)
			}
		}
	}
}

// TestSubRangeScenarioS4 mirrors scenario S4's fixed probe ranges against a
// store with at least the sids it names, asserting byte-equality with the
// full reconstruction's corresponding slice.
func TestSubRangeScenarioS4(t *testing.T) {
	spec := DefaultShmmrSpec
	seqs := map[uint32][]byte{}
	for sid := uint32(0); sid < 6; sid++ {
		seqs[sid] = randomDNA(1600, uint64(900+sid))
	}
	db := buildTestDB(t, seqs, spec)
	require.NoError(t, db.SealAll())

	ranges := [][2]uint32{{0, 105}, {105, 286}, {104, 286}, {105, 287}, {250, 1423}}
	for _, sid := range []uint32{0, 5} {
		full, err := db.GetByID(sid)
		require.NoError(t, err)
		for _, r := range ranges {
			sub, err := db.GetSubRange(sid, r[0], r[1])
			require.NoError(t, err)
			require.Equal(t, full[r[0]:r[1]], sub)
		}
	}
}

// TestIndexSelfConsistency covers property 2: every signature's target
// range, widened by k on the left, reconstructs to bytes whose canonical
// hash pair matches the key it is stored under.
func TestIndexSelfConsistency(t *testing.T) {
	spec := ShmmrSpec{W: 12, K: 14, R: 1, MinSpan: 12}
	seqs := map[uint32][]byte{
		0: randomDNA(4000, 555),
	}
	db := buildTestDB(t, seqs, spec)
	require.NoError(t, db.SealAll())

	k := int(spec.K)
	for pair, sigs := range db.FragMap {
		for _, sig := range sigs {
			require.GreaterOrEqual(t, int(sig.Bgn), k)
			frag, err := db.GetSubRange(sig.SeqID, sig.Bgn-uint32(k), sig.End)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(frag), k+int(spec.MinSpan))

			h0, _, ok0 := hashKmer(frag, k-1, k)
			require.True(t, ok0)
			h1, _, ok1 := hashKmer(frag, len(frag)-1, k)
			require.True(t, ok1)

			if sig.Orientation == 0 {
				require.Equal(t, pair.H0, h0)
				require.Equal(t, pair.H1, h1)
			} else {
				require.Equal(t, pair.H1, h0)
				require.Equal(t, pair.H0, h1)
			}
		}
	}
}

func TestFragmentGroupSealIsIdempotentAndRejectsFurtherInserts(t *testing.T) {
	g := NewFragmentGroup()
	_, ok := g.AddFrag([]byte("hello"))
	require.True(t, ok)
	require.NoError(t, g.Seal())
	require.NoError(t, g.Seal()) // idempotent

	_, ok = g.AddFrag([]byte("world"))
	require.False(t, ok)

	got, err := g.GetFrag(0)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestFragmentGroupFillsUpToMax(t *testing.T) {
	g := NewFragmentGroup()
	for i := 0; i < FragGroupMax; i++ {
		_, ok := g.AddFrag([]byte{byte(i)})
		require.True(t, ok)
	}
	_, ok := g.AddFrag([]byte{0})
	require.False(t, ok, "group should reject inserts past FragGroupMax")
}

func TestGetByIDUnknownSeqIDPanics(t *testing.T) {
	db := NewCompactSeqDB(DefaultShmmrSpec)
	require.Panics(t, func() { db.GetByID(0) })
}
