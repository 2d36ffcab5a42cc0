// Package fastaio reads FASTA and gzipped-FASTA sequence files, wrapping
// biogo's FASTA reader the way the reference implementation's own FASTA
// ingestion path does: detect gzip by magic bytes, decode through a
// buffered reader, and hand back plain (name, source, sequence) records
// rather than biogo's own sequence type, so the rest of the package never
// depends on biogo directly.
package fastaio

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/pkg/errors"
)

// Record is one ingested sequence: its name (the part of the header line
// before the first whitespace), an optional source label (the remainder
// of the header line, used the way the reference implementation tags
// sequences by origin assembly/haplotype), and its residues.
type Record struct {
	Name   string
	Source string
	Seq    []byte
}

// OpenReader opens path, transparently decompressing it if it looks
// gzip-compressed, and returns a Reader over its FASTA records. The
// caller must Close the returned Reader when done.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "fastaio: open %s", path)
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, errors.Wrapf(err, "fastaio: peek %s", path)
	}

	var r io.Reader = br
	var gz *gzip.Reader
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err = gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "fastaio: gzip %s", path)
		}
		r = gz
	}

	template := linear.NewSeq("", nil, alphabet.DNAgapped)
	return &Reader{f: f, gz: gz, fr: fasta.NewReader(r, template)}, nil
}

// Reader reads successive FASTA records.
type Reader struct {
	f  *os.File
	gz *gzip.Reader
	fr *fasta.Reader
}

// Next returns the next record, or io.EOF when the file is exhausted.
func (r *Reader) Next() (Record, error) {
	s, err := r.fr.Read()
	if err != nil {
		return Record{}, err
	}
	seq, ok := s.(*linear.Seq)
	if !ok {
		return Record{}, errors.New("fastaio: unexpected sequence type from fasta reader")
	}

	name, source := splitHeader(seq.Annotation.ID, seq.Annotation.Desc)
	residues := make([]byte, seq.Len())
	for i := 0; i < seq.Len(); i++ {
		residues[i] = byte(seq.Seq[i])
	}
	return Record{Name: name, Source: source, Seq: residues}, nil
}

// splitHeader separates the record id from its free-text description,
// treating the description as the source label.
func splitHeader(id, desc string) (string, string) {
	desc = strings.TrimSpace(desc)
	return id, desc
}

// Close releases the underlying file handle and any gzip reader.
func (r *Reader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.f.Close()
}
