package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pgrtk-go/pgrtk"
)

func sampleChain() ChainRecord {
	return ChainRecord{
		Target: "chr1", Query: "ctg1",
		Block:       pgrtk.AlnBlock{TBgn: 100, TEnd: 200, QBgn: 0, QEnd: 100},
		Orientation: 0, TDup: false, TOvlp: true, QDup: false, QOvlp: false,
	}
}

func sampleSV() SVCandidate {
	return SVCandidate{
		Target: "chr1", Query: "ctg1",
		TBgn: 500, TEnd: 520, QBgn: 10, QEnd: 30,
		Kind: pgrtk.FailLengthDiff,
		TSeq: []byte("ACGT"), QSeq: []byte("ACGG"),
	}
}

func TestWriteCtgMapBEDEmitsZeroBasedTargetCoordinates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCtgMapBED(&buf, []ChainRecord{sampleChain()}))
	require.True(t, strings.HasPrefix(buf.String(), "chr1\t100\t200\t"))
}

// TestWriteSVCndBEDUsesOneBasedCoordinates pins the (ts+1, te+1) 1-based
// convention for SV-candidate BED rows.
func TestWriteSVCndBEDUsesOneBasedCoordinates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSVCndBED(&buf, []SVCandidate{sampleSV()}))
	require.True(t, strings.HasPrefix(buf.String(), "chr1\t501\t521\t"))
}

func TestWriteCtgSVBEDProjectsOntoQueryAxis(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCtgSVBED(&buf, []SVCandidate{sampleSV()}))
	require.True(t, strings.HasPrefix(buf.String(), "ctg1\t11\t31\t"))
}

func TestWriteSVCndSeqsEmitsPairedFastaRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSVCndSeqs(&buf, []SVCandidate{sampleSV()}))
	out := buf.String()
	require.Contains(t, out, ">0_t_chr1:500-520_FailLengthDiff\nACGT\n")
	require.Contains(t, out, ">0_q_ctg1:10-30_FailLengthDiff\nACGG\n")
}

func TestWriteAlnMapOrdersChainsThenVariantsThenSVs(t *testing.T) {
	var buf bytes.Buffer
	chains := []ChainRecord{sampleChain()}
	variants := []VariantRecord{{Target: "chr1", Query: "ctg1", TPos: 150, Kind: 'S', Ref: "A", Alt: "C"}}
	svs := []SVCandidate{sampleSV()}
	require.NoError(t, WriteAlnMap(&buf, chains, variants, svs))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "C\t"))
	require.True(t, strings.HasPrefix(lines[1], "V\t"))
	require.True(t, strings.HasPrefix(lines[2], "S\t"))
}

func TestWriteDistEmitsUpperTriangleOnly(t *testing.T) {
	dist := func(i, j int) float64 { return float64(i + j) }
	names := []string{"a", "b", "c"}
	var buf bytes.Buffer
	require.NoError(t, WriteDist(&buf, 3, func(i int) string { return names[i] }, dist))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3) // (0,1) (0,2) (1,2)
	require.Equal(t, "a\tb\t1\n", lines[0]+"\n")
}

func TestWriteNewickTerminatesWithSemicolon(t *testing.T) {
	steps := []pgrtk.LinkageStep{{Cluster1: 0, Cluster2: 1, Dissimilarity: 0.5, Size: 2}}
	names := []string{"x", "y"}
	var buf bytes.Buffer
	require.NoError(t, WriteNewick(&buf, steps, 2, func(i int) string { return names[i] }))
	require.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), ";"))
}

func TestChainsToCtgMapPreservesAnnotations(t *testing.T) {
	entries := ChainsToCtgMap([]ChainRecord{sampleChain()})
	require.Len(t, entries, 1)
	require.Equal(t, "chr1", entries[0].Target)
	require.True(t, entries[0].TOvlp)
	require.False(t, entries[0].TDup)
}

func TestWriteJSONProducesIndentedValidDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, ChainsToCtgMap([]ChainRecord{sampleChain()})))
	require.Contains(t, buf.String(), "  \"target\": \"chr1\"")
}
