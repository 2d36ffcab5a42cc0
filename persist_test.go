package pgrtk

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMDBRoundTrip(t *testing.T) {
	spec := ShmmrSpec{W: 16, K: 16, R: 2, MinSpan: 16}
	seqs := map[uint32][]byte{0: randomDNA(3000, 1), 1: randomDNA(2000, 2)}
	db := buildTestDB(t, seqs, spec)

	var buf bytes.Buffer
	require.NoError(t, WriteMDB(&buf, db.Spec, db.FragMap))

	gotSpec, gotFrags, err := ReadMDB(&buf)
	require.NoError(t, err)
	require.Equal(t, db.Spec, gotSpec)
	require.Equal(t, len(db.FragMap), len(gotFrags))
	for k, v := range db.FragMap {
		require.Equal(t, v, gotFrags[k])
	}
}

func TestPDBRoundTrip(t *testing.T) {
	bundles := [][]GraphNode{
		{{H0: 1, H1: 2, Orientation: 0}, {H0: 2, H1: 3, Orientation: 0}},
		{{H0: 5, H1: 9, Orientation: 1}},
	}
	vmap := BuildVertexToBundleMap(bundles)
	spec := DefaultShmmrSpec

	var buf bytes.Buffer
	require.NoError(t, WritePDB(&buf, spec, 8, 2, bundles, vmap))

	gotSpec, gotMinBranch, gotMinCov, gotBundles, gotVmap, err := ReadPDB(&buf)
	require.NoError(t, err)
	require.Equal(t, ShmmrSpec{W: spec.W, K: spec.K, R: spec.R, MinSpan: spec.MinSpan}, gotSpec)
	require.Equal(t, 8, gotMinBranch)
	require.Equal(t, 2, gotMinCov)
	require.Equal(t, bundles, gotBundles)
	require.Equal(t, vmap, gotVmap)
}

func TestReadPDBRejectsBadMagic(t *testing.T) {
	_, _, _, _, _, err := ReadPDB(bytes.NewReader([]byte("not a pdb file at all")))
	require.Error(t, err)
}

// TestMmapSeqStoreRoundTrip builds a small fragment store, writes the full
// four-file artifact set, reopens it via OpenMmapSeqStore, and checks it
// reconstructs identically to the in-memory build-time store.
func TestMmapSeqStoreRoundTrip(t *testing.T) {
	spec := ShmmrSpec{W: 16, K: 16, R: 2, MinSpan: 16}
	seqs := map[uint32][]byte{
		0: randomDNA(3000, 5),
		1: randomDNA(2200, 6),
	}
	db := buildTestDB(t, seqs, spec)
	require.NoError(t, db.SealAll())

	dir := t.TempDir()
	prefix := filepath.Join(dir, "idx")

	mdbFile, err := os.Create(prefix + ".mdb")
	require.NoError(t, err)
	require.NoError(t, WriteMDB(mdbFile, db.Spec, db.FragMap))
	require.NoError(t, mdbFile.Close())

	frgFile, err := os.Create(prefix + ".frg")
	require.NoError(t, err)
	offsets, err := WriteFRG(frgFile, db.FragGroups)
	require.NoError(t, err)
	require.NoError(t, frgFile.Close())

	sdxFile, err := os.Create(prefix + ".sdx")
	require.NoError(t, err)
	require.NoError(t, WriteSDX(sdxFile, offsets, db.Seqs))
	require.NoError(t, sdxFile.Close())

	midxFile, err := os.Create(prefix + ".midx")
	require.NoError(t, err)
	require.NoError(t, WriteMIDX(midxFile, db.Seqs))
	require.NoError(t, midxFile.Close())

	store, err := OpenMmapSeqStore(prefix)
	require.NoError(t, err)
	defer store.Close()

	require.Equal(t, db.Spec, store.Spec)
	for sid, original := range seqs {
		got, err := store.GetByID(sid)
		require.NoError(t, err)
		require.Equal(t, original, got)

		sub, err := store.GetSubRange(sid, 10, 200)
		require.NoError(t, err)
		require.Equal(t, original[10:200], sub)
	}
}

func TestWriteMIDXUsesDashForAbsentSource(t *testing.T) {
	seqs := []CompactSeq{{ID: 0, Name: "chr1", Source: nil, Len: 10}}
	var buf bytes.Buffer
	require.NoError(t, WriteMIDX(&buf, seqs))
	require.Contains(t, buf.String(), "0\t10\tchr1\t-\n")
}
