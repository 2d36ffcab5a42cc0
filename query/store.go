package query

import "github.com/pgrtk-go/pgrtk"

// IndexStore adapts a built fragment store (CompactSeqDB or MmapSeqStore)
// plus the minimizer spec used to build it into the Store interface Query needs: it
// resolves sequence names to ids, reports sequence length, and recomputes
// a sequence's SMP walk on demand rather than persisting it: bundle
// labelings are derived, not stored on disk.
type IndexStore struct {
	pgrtk.SeqSource
	Spec     pgrtk.ShmmrSpec
	Seqs     []pgrtk.CompactSeq
	byName   map[nameKey]uint32
	smpCache map[uint32][]pgrtk.SMPOccurrence
}

type nameKey struct{ name, source string }

// NewIndexStore builds an IndexStore over seqs, indexing them by
// (name, source) for LookupByName.
func NewIndexStore(src pgrtk.SeqSource, spec pgrtk.ShmmrSpec, seqs []pgrtk.CompactSeq) *IndexStore {
	byName := make(map[nameKey]uint32, len(seqs))
	for _, s := range seqs {
		source := ""
		if s.Source != nil {
			source = *s.Source
		}
		byName[nameKey{name: s.Name, source: source}] = s.ID
	}
	return &IndexStore{SeqSource: src, Spec: spec, Seqs: seqs, byName: byName, smpCache: map[uint32][]pgrtk.SMPOccurrence{}}
}

// LookupByName resolves a (name, source) pair to a sequence id.
func (s *IndexStore) LookupByName(name, source string) (uint32, bool) {
	sid, ok := s.byName[nameKey{name: name, source: source}]
	return sid, ok
}

// SeqLen returns the reconstructed length of sid.
func (s *IndexStore) SeqLen(sid uint32) (uint32, bool) {
	if int(sid) >= len(s.Seqs) {
		return 0, false
	}
	return uint32(s.Seqs[sid].Len), true
}

// SeqSMPs returns sid's minimizer-pair walk, computing and caching it on
// first use. The walk is never persisted: recomputing it from the
// reconstructed sequence keeps the on-disk format free of derived data.
func (s *IndexStore) SeqSMPs(sid uint32) ([]pgrtk.SMPOccurrence, bool) {
	if cached, ok := s.smpCache[sid]; ok {
		return cached, true
	}
	if int(sid) >= len(s.Seqs) {
		return nil, false
	}
	seq, err := s.GetByID(sid)
	if err != nil {
		return nil, false
	}
	smps := pgrtk.SMPOccurrencesForSeq(seq, s.Spec)
	s.smpCache[sid] = smps
	return smps, true
}

var _ Store = (*IndexStore)(nil)
