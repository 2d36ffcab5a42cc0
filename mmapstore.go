package pgrtk

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/klauspost/compress/zstd"
)

// MmapSeqStore is the read-only counterpart of CompactSeqDB: it opens a
// previously built index (.mdb, .sdx, .frg, .midx) and serves byte-exact
// sequence reconstruction without loading fragment bytes into the Go heap
// up front, mirroring the reference implementation's mmap-backed storage.
type MmapSeqStore struct {
	Spec    ShmmrSpec
	Seqs    []CompactSeq
	FragMap ShmmrToFrags

	frgFile *os.File
	frgMap  mmap.MMap
	offsets []fragGroupAddr

	seqIndex map[seqKey]uint32
	seqInfo  map[uint32]seqMeta

	decoder *zstd.Decoder
}

type seqKey struct {
	name   string
	source string
}

type seqMeta struct {
	Name   string
	Source string
	Len    uint32
}

// OpenMmapSeqStore opens the four files sharing the given path prefix
// (prefix+".mdb", ".sdx", ".frg", ".midx") and returns a store ready to
// serve queries. The caller must Close it when done.
func OpenMmapSeqStore(prefix string) (*MmapSeqStore, error) {
	spec, fragMap, err := ReadMDBParallel(prefix + ".mdb")
	if err != nil {
		return nil, wrapf(err, "mmapstore: read mdb")
	}

	sdxFile, err := os.Open(prefix + ".sdx")
	if err != nil {
		return nil, wrapf(err, "mmapstore: open sdx")
	}
	defer sdxFile.Close()
	offsets, seqs, err := ReadSDX(sdxFile)
	if err != nil {
		return nil, wrapf(err, "mmapstore: read sdx")
	}

	frgFile, err := os.Open(prefix + ".frg")
	if err != nil {
		return nil, wrapf(err, "mmapstore: open frg")
	}
	frgMap, err := mmap.Map(frgFile, mmap.RDONLY, 0)
	if err != nil {
		frgFile.Close()
		return nil, wrapf(err, "mmapstore: mmap frg")
	}

	midxFile, err := os.Open(prefix + ".midx")
	if err != nil {
		frgMap.Unmap()
		frgFile.Close()
		return nil, wrapf(err, "mmapstore: open midx")
	}
	seqIndex, seqInfo, err := readMIDX(midxFile)
	midxFile.Close()
	if err != nil {
		frgMap.Unmap()
		frgFile.Close()
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		frgMap.Unmap()
		frgFile.Close()
		return nil, wrapf(err, "mmapstore: create zstd reader")
	}

	return &MmapSeqStore{
		Spec:     spec,
		Seqs:     seqs,
		FragMap:  fragMap,
		frgFile:  frgFile,
		frgMap:   frgMap,
		offsets:  offsets,
		seqIndex: seqIndex,
		seqInfo:  seqInfo,
		decoder:  dec,
	}, nil
}

func readMIDX(f *os.File) (map[seqKey]uint32, map[uint32]seqMeta, error) {
	seqIndex := map[seqKey]uint32{}
	seqInfo := map[uint32]seqMeta{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.SplitN(sc.Text(), "\t", 4)
		if len(fields) != 4 {
			return nil, nil, ErrCorruptFormat
		}
		sid, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return nil, nil, wrapf(err, "midx: parse sid")
		}
		length, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, nil, wrapf(err, "midx: parse len")
		}
		name, source := fields[2], fields[3]
		seqIndex[seqKey{name: name, source: source}] = uint32(sid)
		seqInfo[uint32(sid)] = seqMeta{Name: name, Source: source, Len: uint32(length)}
	}
	return seqIndex, seqInfo, wrapf(sc.Err(), "midx: scan")
}

// Close releases the mmap and underlying file handle.
func (s *MmapSeqStore) Close() error {
	s.decoder.Close()
	if err := s.frgMap.Unmap(); err != nil {
		return wrapf(err, "mmapstore: unmap")
	}
	return wrapf(s.frgFile.Close(), "mmapstore: close frg")
}

// LookupByName returns the sequence id for a (name, source) pair.
func (s *MmapSeqStore) LookupByName(name, source string) (uint32, bool) {
	sid, ok := s.seqIndex[seqKey{name: name, source: source}]
	return sid, ok
}

// fetchFrag returns the decompressed bytes of one sub-fragment, slicing
// the group's blob using the length table recorded at build time.
func (s *MmapSeqStore) fetchFrag(groupID, subIdx uint32) ([]byte, error) {
	if int(groupID) >= len(s.offsets) {
		return nil, ErrCorruptFormat
	}
	addr := s.offsets[groupID]
	if int(subIdx) >= len(addr.Lengths) {
		return nil, ErrCorruptFormat
	}
	blob := s.frgMap[addr.Offset : addr.Offset+addr.Size]
	data, err := s.decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, wrapf(err, "mmapstore: zstd decode group %d", groupID)
	}
	offset := 0
	for i := 0; i < int(subIdx); i++ {
		offset += addr.Lengths[i]
	}
	end := offset + addr.Lengths[subIdx]
	if end > len(data) {
		return nil, ErrCorruptFormat
	}
	return data[offset:end], nil
}

// GetByID reconstructs the byte-exact sequence for sid from the
// memory-mapped fragment file.
func (s *MmapSeqStore) GetByID(sid uint32) ([]byte, error) {
	if int(sid) >= len(s.Seqs) {
		panic(ErrUnknownSeqID)
	}
	cs := s.Seqs[sid]
	return reconstructFromFragIDs(cs.SeqFrags, int(s.Spec.K), s.fetchFrag)
}

// GetSubRange returns seq[bgn:end] for sid.
func (s *MmapSeqStore) GetSubRange(sid uint32, bgn, end uint32) ([]byte, error) {
	full, err := s.GetByID(sid)
	if err != nil {
		return nil, err
	}
	if end > uint32(len(full)) || bgn > end {
		return nil, ErrCorruptFormat
	}
	return full[bgn:end], nil
}

var _ SeqSource = (*MmapSeqStore)(nil)
var _ SeqSource = (*CompactSeqDB)(nil)
