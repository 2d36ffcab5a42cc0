package pgrtk

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"
)

// mdbMagic is the 3-byte magic prefix of a minimizer-pair index file.
var mdbMagic = [3]byte{'m', 'd', 'b'}

// WriteMDB serializes a minimizer-pair index to w in the on-disk binary
// format: a "mdb" magic, the five spec fields as little-endian u32s, a u64
// key count, then per key h0, h1, n_sigs (three u64s) followed by n_sigs
// fixed-size signature records (FragID, SeqID, Bgn, End as little-endian
// u32s, Orientation as a single byte).
func WriteMDB(w io.Writer, spec ShmmrSpec, frags ShmmrToFrags) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(mdbMagic[:]); err != nil {
		return wrapf(err, "mdb: write magic")
	}
	for _, v := range []uint32{spec.W, spec.K, spec.R, spec.MinSpan, boolToU32(spec.Sketch)} {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return wrapf(err, "mdb: write spec")
		}
	}

	keys := make([]ShmmrPair, 0, len(frags))
	for k := range frags {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].H0 != keys[j].H0 {
			return keys[i].H0 < keys[j].H0
		}
		return keys[i].H1 < keys[j].H1
	})

	if err := binary.Write(bw, binary.LittleEndian, uint64(len(keys))); err != nil {
		return wrapf(err, "mdb: write key count")
	}
	for _, key := range keys {
		sigs := frags[key]
		if err := binary.Write(bw, binary.LittleEndian, [3]uint64{key.H0, key.H1, uint64(len(sigs))}); err != nil {
			return wrapf(err, "mdb: write key header")
		}
		for _, sig := range sigs {
			if err := writeSignature(bw, sig); err != nil {
				return err
			}
		}
	}
	return wrapf(bw.Flush(), "mdb: flush")
}

func writeSignature(w io.Writer, sig FragmentSignature) error {
	var buf [17]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(sig.FragID))
	binary.LittleEndian.PutUint32(buf[4:8], sig.SeqID)
	binary.LittleEndian.PutUint32(buf[8:12], sig.Bgn)
	binary.LittleEndian.PutUint32(buf[12:16], sig.End)
	buf[16] = sig.Orientation
	_, err := w.Write(buf[:])
	return wrapf(err, "mdb: write signature")
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// ReadMDB reads a minimizer-pair index previously written by WriteMDB.
func ReadMDB(r io.Reader) (ShmmrSpec, ShmmrToFrags, error) {
	br := bufio.NewReader(r)
	var magic [3]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return ShmmrSpec{}, nil, wrapf(err, "mdb: read magic")
	}
	if magic != mdbMagic {
		return ShmmrSpec{}, nil, ErrCorruptFormat
	}
	var fields [5]uint32
	for i := range fields {
		if err := binary.Read(br, binary.LittleEndian, &fields[i]); err != nil {
			return ShmmrSpec{}, nil, wrapf(err, "mdb: read spec")
		}
	}
	spec := ShmmrSpec{W: fields[0], K: fields[1], R: fields[2], MinSpan: fields[3], Sketch: fields[4] != 0}

	var keyCount uint64
	if err := binary.Read(br, binary.LittleEndian, &keyCount); err != nil {
		return ShmmrSpec{}, nil, wrapf(err, "mdb: read key count")
	}

	frags := make(ShmmrToFrags, keyCount)
	for i := uint64(0); i < keyCount; i++ {
		var header [3]uint64
		if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
			return ShmmrSpec{}, nil, wrapf(err, "mdb: read key header")
		}
		key := ShmmrPair{H0: header[0], H1: header[1]}
		n := header[2]
		sigs := make([]FragmentSignature, n)
		for j := uint64(0); j < n; j++ {
			sig, err := readSignature(br)
			if err != nil {
				return ShmmrSpec{}, nil, err
			}
			sigs[j] = sig
		}
		frags[key] = sigs
	}
	return spec, frags, nil
}

func readSignature(r io.Reader) (FragmentSignature, error) {
	var buf [17]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return FragmentSignature{}, wrapf(err, "mdb: read signature")
	}
	return FragmentSignature{
		FragID:      FragID(binary.LittleEndian.Uint32(buf[0:4])),
		SeqID:       binary.LittleEndian.Uint32(buf[4:8]),
		Bgn:         binary.LittleEndian.Uint32(buf[8:12]),
		End:         binary.LittleEndian.Uint32(buf[12:16]),
		Orientation: buf[16],
	}, nil
}

// mdbKeyOffset locates one key's signature block inside a .mdb file.
type mdbKeyOffset struct {
	key   ShmmrPair
	start int64 // byte offset of the first signature record
	nSigs uint64
}

// ReadMDBParallel reads a .mdb file the way the reference implementation's
// parallel reader does: it first walks the file sequentially to build a
// table of (key, byte offset, count), then decodes each key's fixed-size
// signature block concurrently.
func ReadMDBParallel(path string) (ShmmrSpec, ShmmrToFrags, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ShmmrSpec{}, nil, wrapf(err, "mdb: read file %s", path)
	}
	if len(data) < 3+5*4+8 || !bytes.Equal(data[:3], mdbMagic[:]) {
		return ShmmrSpec{}, nil, ErrCorruptFormat
	}
	pos := 3
	var fields [5]uint32
	for i := range fields {
		fields[i] = binary.LittleEndian.Uint32(data[pos : pos+4])
		pos += 4
	}
	spec := ShmmrSpec{W: fields[0], K: fields[1], R: fields[2], MinSpan: fields[3], Sketch: fields[4] != 0}

	keyCount := binary.LittleEndian.Uint64(data[pos : pos+8])
	pos += 8

	offsets := make([]mdbKeyOffset, keyCount)
	for i := uint64(0); i < keyCount; i++ {
		if pos+24 > len(data) {
			return ShmmrSpec{}, nil, ErrCorruptFormat
		}
		h0 := binary.LittleEndian.Uint64(data[pos : pos+8])
		h1 := binary.LittleEndian.Uint64(data[pos+8 : pos+16])
		n := binary.LittleEndian.Uint64(data[pos+16 : pos+24])
		pos += 24
		offsets[i] = mdbKeyOffset{key: ShmmrPair{H0: h0, H1: h1}, start: int64(pos), nSigs: n}
		pos += int(n) * 17
		if pos > len(data) {
			return ShmmrSpec{}, nil, ErrCorruptFormat
		}
	}

	results := make([][]FragmentSignature, keyCount)
	var g errgroup.Group
	g.SetLimit(WorkerCount(0))
	for i := range offsets {
		i := i
		g.Go(func() error {
			off := offsets[i]
			sigs := make([]FragmentSignature, off.nSigs)
			base := int(off.start)
			for j := uint64(0); j < off.nSigs; j++ {
				rec := data[base+int(j)*17 : base+int(j)*17+17]
				sigs[j] = FragmentSignature{
					FragID:      FragID(binary.LittleEndian.Uint32(rec[0:4])),
					SeqID:       binary.LittleEndian.Uint32(rec[4:8]),
					Bgn:         binary.LittleEndian.Uint32(rec[8:12]),
					End:         binary.LittleEndian.Uint32(rec[12:16]),
					Orientation: rec[16],
				}
			}
			results[i] = sigs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ShmmrSpec{}, nil, err
	}

	frags := make(ShmmrToFrags, keyCount)
	for i, off := range offsets {
		frags[off.key] = results[i]
	}
	return spec, frags, nil
}

// fragGroupAddr records a sealed fragment group's byte range inside a .frg
// file (offset and compressed size) plus the uncompressed length of each
// of its sub-fragments, needed to slice the group's decompressed blob.
type fragGroupAddr struct {
	Offset  int64
	Size    int64
	Lengths []int
}

// sdxPayload is the gob-encoded body of a .sdx file: the fragment-group
// address table (parallel to the .frg file) plus the sequence list. Go's
// ecosystem has no bincode-equivalent compact binary codec among the
// libraries surfaced by the retrieved examples, so this format uses
// encoding/gob, a documented exception to the "use the library, not
// the stdlib" rule (see the grounding ledger).
type sdxPayload struct {
	Offsets []fragGroupAddr
	Seqs    []CompactSeq
}

// WriteSDX serializes the fragment-group address table and sequence list.
func WriteSDX(w io.Writer, offsets []fragGroupAddr, seqs []CompactSeq) error {
	return wrapf(gob.NewEncoder(w).Encode(sdxPayload{Offsets: offsets, Seqs: seqs}), "sdx: encode")
}

// ReadSDX deserializes a .sdx payload.
func ReadSDX(r io.Reader) ([]fragGroupAddr, []CompactSeq, error) {
	var p sdxPayload
	if err := gob.NewDecoder(r).Decode(&p); err != nil {
		return nil, nil, wrapf(err, "sdx: decode")
	}
	return p.Offsets, p.Seqs, nil
}

// WriteFRG writes every fragment group's sealed (zstd-compressed) blob to
// w back to back, sealing any group that is not sealed yet, and returns
// the per-group (offset, size) address table in group-id order.
func WriteFRG(w io.Writer, groups []*FragmentGroup) ([]fragGroupAddr, error) {
	offsets := make([]fragGroupAddr, len(groups))
	var cur int64
	for i, g := range groups {
		if err := g.Seal(); err != nil {
			return nil, err
		}
		n, err := w.Write(g.blob)
		if err != nil {
			return nil, wrapf(err, "frg: write group %d", i)
		}
		lens := make([]int, len(g.lengths))
		copy(lens, g.lengths)
		offsets[i] = fragGroupAddr{Offset: cur, Size: int64(n), Lengths: lens}
		cur += int64(n)
	}
	return offsets, nil
}

// WriteMIDX writes the per-sequence index file: one "sid\tlen\tname\tsource"
// line per sequence.
func WriteMIDX(w io.Writer, seqs []CompactSeq) error {
	bw := bufio.NewWriter(w)
	for _, s := range seqs {
		source := "-"
		if s.Source != nil && *s.Source != "" {
			source = *s.Source
		}
		if _, err := fmt.Fprintf(bw, "%d\t%d\t%s\t%s\n", s.ID, s.Len, s.Name, source); err != nil {
			return wrapf(err, "midx: write line")
		}
	}
	return wrapf(bw.Flush(), "midx: flush")
}

// pdbMagic is the ASCII magic prefix of a precomputed-bundles file.
const pdbMagic = "PDB:0.5"

// pdbPayload is the gob-encoded body of a .pdb file, following
// sdxPayload's precedent of using encoding/gob as the stdlib exception
// for a bincode-shaped compact binary codec (see DESIGN.md).
type pdbPayload struct {
	W, K, R, MinSpan uint32
	MinBranchSize    int
	MinCov           int
	Bundles          [][]GraphNode
	VertexMap        map[ShmmrPair]BundleAssignment
}

// WritePDB serializes a precomputed principal-bundle decomposition: the
// w, k, r and min_span of the minimizer spec it was built under (the
// sketch flag is not stored), the decomposer's min_branch_size and
// min_cov parameters, the bundles themselves (ordered, per GetPrincipalBundles'
// length-descending sort), and the vertex-to-bundle lookup table, behind
// the "PDB:0.5" ASCII magic.
func WritePDB(w io.Writer, spec ShmmrSpec, minBranchSize, minCov int, bundles [][]GraphNode, vmap VertexToBundleMap) error {
	if _, err := io.WriteString(w, pdbMagic); err != nil {
		return wrapf(err, "pdb: write magic")
	}
	payload := pdbPayload{
		W: spec.W, K: spec.K, R: spec.R, MinSpan: spec.MinSpan,
		MinBranchSize: minBranchSize, MinCov: minCov,
		Bundles: bundles, VertexMap: vmap,
	}
	return wrapf(gob.NewEncoder(w).Encode(payload), "pdb: encode")
}

// ReadPDB reads a precomputed bundle decomposition previously written by
// WritePDB. The returned spec carries w, k, r and min_span only; its Sketch
// field is always false.
func ReadPDB(r io.Reader) (ShmmrSpec, int, int, [][]GraphNode, VertexToBundleMap, error) {
	magic := make([]byte, len(pdbMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return ShmmrSpec{}, 0, 0, nil, nil, wrapf(err, "pdb: read magic")
	}
	if string(magic) != pdbMagic {
		return ShmmrSpec{}, 0, 0, nil, nil, ErrCorruptFormat
	}
	var payload pdbPayload
	if err := gob.NewDecoder(r).Decode(&payload); err != nil {
		return ShmmrSpec{}, 0, 0, nil, nil, wrapf(err, "pdb: decode")
	}
	spec := ShmmrSpec{W: payload.W, K: payload.K, R: payload.R, MinSpan: payload.MinSpan}
	return spec, payload.MinBranchSize, payload.MinCov, payload.Bundles, payload.VertexMap, nil
}
