package pgrtk

import (
	"bytes"

	"github.com/klauspost/compress/zstd"
)

// FragGroupMax is the maximum number of raw fragments a fragment group may
// hold before it must be sealed, matching the reference implementation's
// FRAG_GROUP_MAX (1 << FRAG_SHIFT, 4 sub-index bits => 16).
const FragGroupMax = 1 << fragSubIndexShift

// FragmentGroup is a batch of up to FragGroupMax raw fragment byte-strings.
// It starts open (raw bytes held, appendable) and becomes sealed exactly
// once (raw cleared, bytes concatenated and zstd-compressed, plus a table
// of per-sub-index lengths). The transition is one-way; a sealed group
// rejects further inserts.
type FragmentGroup struct {
	raw     [][]byte
	lengths []int
	sealed  bool
	blob    []byte
}

// NewFragmentGroup returns a fresh, open fragment group.
func NewFragmentGroup() *FragmentGroup {
	return &FragmentGroup{}
}

// AddFrag appends a raw fragment and returns its sub-index, or false if the
// group is full or already sealed.
func (g *FragmentGroup) AddFrag(b []byte) (uint32, bool) {
	if g.sealed || len(g.raw) >= FragGroupMax {
		return 0, false
	}
	idx := len(g.raw)
	cp := make([]byte, len(b))
	copy(cp, b)
	g.raw = append(g.raw, cp)
	g.lengths = append(g.lengths, len(cp))
	return uint32(idx), true
}

// Sealed reports whether the group has transitioned to sealed.
func (g *FragmentGroup) Sealed() bool { return g.sealed }

// Seal concatenates the group's raw fragments and zstd-compresses them,
// clearing the raw storage. Calling Seal twice is a no-op, matching
// FragmentGroup::compress's idempotence.
func (g *FragmentGroup) Seal() error {
	if g.sealed {
		return nil
	}
	var buf bytes.Buffer
	for _, f := range g.raw {
		buf.Write(f)
	}
	w, err := zstd.NewWriter(nil)
	if err != nil {
		return wrapf(err, "fragment group: create zstd writer")
	}
	defer w.Close()
	g.blob = w.EncodeAll(buf.Bytes(), nil)
	g.sealed = true
	g.raw = nil
	return nil
}

// GetFrag returns the raw bytes of sub-index idx, decompressing the
// group's blob if sealed.
func (g *FragmentGroup) GetFrag(idx uint32) ([]byte, error) {
	if !g.sealed {
		if int(idx) >= len(g.raw) {
			return nil, ErrCorruptFormat
		}
		return g.raw[idx], nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, wrapf(err, "fragment group: create zstd reader")
	}
	defer dec.Close()
	data, err := dec.DecodeAll(g.blob, nil)
	if err != nil {
		return nil, wrapf(err, "fragment group: zstd decode")
	}
	offset := 0
	for i := 0; i < int(idx); i++ {
		offset += g.lengths[i]
	}
	if int(idx) >= len(g.lengths) || offset+g.lengths[idx] > len(data) {
		return nil, ErrCorruptFormat
	}
	return data[offset : offset+g.lengths[idx]], nil
}

// CompactSeq is a sequence stored as an ordered list of fragment ids. len
// equals the byte-exact reconstructed length.
type CompactSeq struct {
	Source   *string
	Name     string
	ID       uint32
	SeqFrags []FragID
	Len      int
}

// SeqSource is the small interface that decouples the rest of the core
// from whichever sequence storage backs it: the in-memory build-time store
// (CompactSeqDB) or the memory-mapped on-disk store (MmapSeqStore).
type SeqSource interface {
	GetByID(sid uint32) ([]byte, error)
	GetSubRange(sid uint32, bgn, end uint32) ([]byte, error)
}

// CompactSeqDB is the writable, in-memory fragment store used during index
// build. It stores sequences as sequences of fragment ids, dedup'ing
// fragments by minimizer-pair key, and can reconstruct byte-exact
// sequences and subranges.
type CompactSeqDB struct {
	Spec       ShmmrSpec
	Seqs       []CompactSeq
	FragMap    ShmmrToFrags
	FragGroups []*FragmentGroup
}

// NewCompactSeqDB returns an empty fragment store under the given spec.
func NewCompactSeqDB(spec ShmmrSpec) *CompactSeqDB {
	return &CompactSeqDB{
		Spec:    spec,
		FragMap: ShmmrToFrags{},
	}
}

// Ingest stores seq under sid/name/source, using minimizers (already
// extracted under db.Spec) to split it into fragments, deduplicating
// against existing fragment groups by minimizer-pair key and orientation.
func (db *CompactSeqDB) Ingest(sid uint32, name string, source *string, seq []byte, minimizers []Minimizer) (CompactSeq, error) {
	var seqFrags []FragID

	if len(minimizers) == 0 {
		g := NewFragmentGroup()
		idx, ok := g.AddFrag(seq)
		if !ok || idx != 0 {
			return CompactSeq{}, ErrCorruptFormat
		}
		groupID := uint32(len(db.FragGroups))
		db.FragGroups = append(db.FragGroups, g)
		seqFrags = append(seqFrags, NewFragID(FragPrefix, 0, groupID))
		cs := CompactSeq{Source: source, Name: name, ID: sid, SeqFrags: seqFrags, Len: len(seq)}
		db.Seqs = append(db.Seqs, cs)
		return cs, nil
	}

	k := int(db.Spec.K)
	seqLen := 0

	// prefix: bytes[0 .. pos(m[0])+1]
	end0 := int(minimizers[0].Pos()) + 1
	{
		g := NewFragmentGroup()
		idx, ok := g.AddFrag(seq[:end0])
		if !ok || idx != 0 {
			return CompactSeq{}, ErrCorruptFormat
		}
		groupID := uint32(len(db.FragGroups))
		db.FragGroups = append(db.FragGroups, g)
		seqFrags = append(seqFrags, NewFragID(FragPrefix, 0, groupID))
		seqLen += end0
	}

	for i := 0; i+1 < len(minimizers); i++ {
		m0, m1 := minimizers[i], minimizers[i+1]
		pair, orientation := CanonicalizePair(m0.Hash(), m1.Hash())
		bgn := m0.Pos() + 1
		end := m1.Pos() + 1
		fragBytes := seq[int(bgn)-k : int(end)]

		fragID, added, err := db.tryAppendToExistingGroup(pair, orientation, fragBytes)
		if err != nil {
			return CompactSeq{}, err
		}
		if !added {
			g := NewFragmentGroup()
			idx, ok := g.AddFrag(fragBytes)
			if !ok || idx != 0 {
				return CompactSeq{}, ErrCorruptFormat
			}
			groupID := uint32(len(db.FragGroups))
			db.FragGroups = append(db.FragGroups, g)
			fragID = NewFragID(FragInternal, 0, groupID)
		}
		seqFrags = append(seqFrags, fragID)
		seqLen += int(end - bgn)
		db.FragMap.Append(pair, FragmentSignature{FragID: fragID, SeqID: sid, Bgn: bgn, End: end, Orientation: orientation})
	}

	// suffix: bytes[pos(m_last)+1 ..]
	lastBgn := int(minimizers[len(minimizers)-1].Pos()) + 1
	{
		fragBytes := seq[lastBgn:]
		g := NewFragmentGroup()
		idx, ok := g.AddFrag(fragBytes)
		if !ok || idx != 0 {
			return CompactSeq{}, ErrCorruptFormat
		}
		groupID := uint32(len(db.FragGroups))
		db.FragGroups = append(db.FragGroups, g)
		seqFrags = append(seqFrags, NewFragID(FragSuffix, 0, groupID))
		seqLen += len(fragBytes)
	}

	if seqLen != len(seq) {
		return CompactSeq{}, ErrCorruptFormat
	}

	cs := CompactSeq{Source: source, Name: name, ID: sid, SeqFrags: seqFrags, Len: len(seq)}
	db.Seqs = append(db.Seqs, cs)
	return cs, nil
}

// tryAppendToExistingGroup looks up pair in the index and, for each
// existing signature with matching orientation, attempts to append
// fragBytes to that signature's fragment group. If none accept (all full
// or sealed), it reports added=false so the caller opens a new group.
func (db *CompactSeqDB) tryAppendToExistingGroup(pair ShmmrPair, orientation uint8, fragBytes []byte) (FragID, bool, error) {
	existing, ok := db.FragMap.Get(pair.H0, pair.H1)
	if !ok {
		return 0, false, nil
	}
	for _, sig := range existing {
		if sig.Orientation != orientation {
			continue
		}
		groupID := sig.FragID.GroupID()
		if int(groupID) >= len(db.FragGroups) {
			continue
		}
		group := db.FragGroups[groupID]
		if idx, ok := group.AddFrag(fragBytes); ok {
			return NewFragID(FragInternal, idx, groupID), true, nil
		}
	}
	return 0, false, nil
}

// reconstructFromFragIDs rebuilds a sequence's bytes from its fragment id
// list, resolving each fragment group through resolve. Internal fragments
// drop their leading k bytes, which overlap the previous fragment's
// trailing minimizer.
func reconstructFromFragIDs(frags []FragID, k int, resolve func(groupID uint32, subIdx uint32) ([]byte, error)) ([]byte, error) {
	var out []byte
	for _, f := range frags {
		b, err := resolve(f.GroupID(), f.SubIndex())
		if err != nil {
			return nil, err
		}
		switch f.Kind() {
		case FragPrefix, FragSuffix:
			out = append(out, b...)
		case FragInternal:
			if len(b) < k {
				return nil, ErrCorruptFormat
			}
			out = append(out, b[k:]...)
		}
	}
	return out, nil
}

// GetByID reconstructs the byte-exact original sequence for sid.
func (db *CompactSeqDB) GetByID(sid uint32) ([]byte, error) {
	if int(sid) >= len(db.Seqs) {
		panic(ErrUnknownSeqID)
	}
	cs := db.Seqs[sid]
	return reconstructFromFragIDs(cs.SeqFrags, int(db.Spec.K), func(groupID, subIdx uint32) ([]byte, error) {
		if int(groupID) >= len(db.FragGroups) {
			return nil, ErrCorruptFormat
		}
		return db.FragGroups[groupID].GetFrag(subIdx)
	})
}

// GetSubRange returns seq[bgn:end] for sid by reconstructing the full
// sequence and slicing it.
func (db *CompactSeqDB) GetSubRange(sid uint32, bgn, end uint32) ([]byte, error) {
	full, err := db.GetByID(sid)
	if err != nil {
		return nil, err
	}
	if end > uint32(len(full)) || bgn > end {
		return nil, ErrCorruptFormat
	}
	return full[bgn:end], nil
}

// SealAll seals every open fragment group, preparing the store for
// persistence. Sealing is idempotent per group.
func (db *CompactSeqDB) SealAll() error {
	for _, g := range db.FragGroups {
		if err := g.Seal(); err != nil {
			return err
		}
	}
	return nil
}
