package fastaio

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte, gzipped bool) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if !gzipped {
		require.NoError(t, os.WriteFile(path, data, 0o644))
		return path
	}
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(data)
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

const fastaBody = ">seq1 haplotype1\nACGTACGT\nACGT\n>seq2 haplotype2\nTTTTGGGG\n"

func TestOpenReaderReadsPlainFastaRecords(t *testing.T) {
	path := writeFile(t, t.TempDir(), "in.fa", []byte(fastaBody), false)
	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	rec1, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, "seq1", rec1.Name)
	require.Equal(t, "haplotype1", rec1.Source)
	require.Equal(t, []byte("ACGTACGTACGT"), rec1.Seq)

	rec2, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, "seq2", rec2.Name)
	require.Equal(t, []byte("TTTTGGGG"), rec2.Seq)

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestOpenReaderTransparentlyDecompressesGzip(t *testing.T) {
	path := writeFile(t, t.TempDir(), "in.fa.gz", []byte(fastaBody), true)
	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, "seq1", rec.Name)
	require.Equal(t, []byte("ACGTACGTACGT"), rec.Seq)
}

func TestOpenReaderMissingFileReturnsError(t *testing.T) {
	_, err := OpenReader(filepath.Join(t.TempDir(), "missing.fa"))
	require.Error(t, err)
}
