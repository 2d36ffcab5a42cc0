package pgrtk

import "sort"

// Minimizer is an opaque 128-bit tuple carrying a 56-bit hash, a strand
// bit, a 32-bit position and a source id, packed into two 64-bit words the
// way the reference implementation's MM128 does: X holds hash<<8 | strand,
// Y holds pos<<32 | source id. Only Hash() and Pos() are meant to be used
// by consumers; the rest of the bit layout is an implementation detail.
type Minimizer struct {
	X uint64
	Y uint64
}

func newMinimizer(hash uint64, strand uint8, pos uint32, srcID uint32) Minimizer {
	return Minimizer{
		X: hash<<8 | uint64(strand&0xff),
		Y: uint64(pos)<<32 | uint64(srcID),
	}
}

// Hash returns the 56-bit minimizer hash.
func (m Minimizer) Hash() uint64 { return m.X >> 8 }

// Strand returns the strand bit (0 forward, 1 reverse) the minimizer was
// picked from.
func (m Minimizer) Strand() uint8 { return uint8(m.X & 0xff) }

// Pos returns the 0-based position of the minimizer's k-mer end in the
// source sequence.
func (m Minimizer) Pos() uint32 { return uint32(m.Y >> 32) }

// SrcID returns the source sequence id the minimizer was extracted from.
func (m Minimizer) SrcID() uint32 { return uint32(m.Y & 0xffffffff) }

var baseCode = [256]int8{}

func init() {
	for i := range baseCode {
		baseCode[i] = -1
	}
	baseCode['A'], baseCode['a'] = 0, 0
	baseCode['C'], baseCode['c'] = 1, 1
	baseCode['G'], baseCode['g'] = 2, 2
	baseCode['T'], baseCode['t'] = 3, 3
}

var complementBase = [256]byte{}

func init() {
	for i := range complementBase {
		complementBase[i] = 'N'
	}
	complementBase['A'], complementBase['a'] = 'T', 'T'
	complementBase['C'], complementBase['c'] = 'G', 'G'
	complementBase['G'], complementBase['g'] = 'C', 'C'
	complementBase['T'], complementBase['t'] = 'A', 'A'
}

// ReverseComplement returns the reverse complement of a DNA byte sequence.
func ReverseComplement(seq []byte) []byte {
	out := make([]byte, len(seq))
	n := len(seq)
	for i, b := range seq {
		out[n-1-i] = complementBase[b]
	}
	return out
}

// hashKmer computes a simple rolling invertible hash of the k-mer
// seq[pos-k+1 : pos+1] folded over both strands, picking the canonical
// (numerically smaller) strand's hash, mirroring the reference's
// canonical-kmer minimizer hash. Hashing both strands with the same
// function and taking the minimum is what makes the hash strand-agnostic:
// a sequence and its reverse complement yield identical minimizer hashes
// at the corresponding position.
func hashKmer(seq []byte, end int, k int) (hash uint64, strand uint8, ok bool) {
	begin := end - k + 1
	if begin < 0 {
		return 0, 0, false
	}
	var fwd, rev uint64
	const mul = 1099511628211 // FNV-ish odd multiplier
	for i := 0; i < k; i++ {
		c := baseCode[seq[begin+i]]
		if c < 0 {
			return 0, 0, false
		}
		fwd = fwd*mul + uint64(c)
		rc := 3 - baseCode[seq[end-i]]
		rev = rev*mul + uint64(rc)
	}
	if fwd <= rev {
		return fwd & ((1 << 56) - 1), 0, true
	}
	return rev & ((1 << 56) - 1), 1, true
}

// windowMinima applies a sliding-window minimum (by hash, ties broken by
// lower position) spanning w positions over the candidate list, returning the
// positions selected as level-(lvl) minimizers. cand is assumed sorted by
// position ascending.
func windowMinima(cand []Minimizer, w int) []Minimizer {
	if len(cand) == 0 {
		return nil
	}
	var out []Minimizer
	var lastEmitted = -1
	for i := range cand {
		lo := i
		// window of candidates whose positions fall within [pos-w+1, pos]
		p := cand[i].Pos()
		for lo > 0 && cand[lo-1].Pos()+uint32(w) > p {
			lo--
		}
		best := i
		for j := lo; j <= i; j++ {
			if cand[j].Hash() < cand[best].Hash() ||
				(cand[j].Hash() == cand[best].Hash() && cand[j].Pos() < cand[best].Pos()) {
				best = j
			}
		}
		if int(cand[best].Pos()) != lastEmitted {
			out = append(out, cand[best])
			lastEmitted = int(cand[best].Pos())
		}
	}
	return out
}

// SequenceToShmmrs turns a DNA sequence into an ordered list of sparse
// hierarchical minimizers: a sliding-window minimizer over k-mers produces
// level-0 candidates; r-1 further passes of the same window treat the
// previous level's positions as the input stream; adjacent pairs closer
// than minSpan are dropped. When reduction would leave fewer than two
// minimizers, the first and last survivors of the widest available level
// are emitted so that len(out) >= 2 whenever the sequence is long enough
// to have produced at least two candidates at level 0.
func SequenceToShmmrs(sid uint32, seq []byte, spec ShmmrSpec, withSpan bool) []Minimizer {
	k := int(spec.K)
	w := int(spec.W)
	if len(seq) < k {
		return nil
	}

	level := make([]Minimizer, 0, len(seq)-k+1)
	for end := k - 1; end < len(seq); end++ {
		hash, strand, ok := hashKmer(seq, end, k)
		if !ok {
			continue
		}
		level = append(level, newMinimizer(hash, strand, uint32(end), sid))
	}

	level = windowMinima(level, w)

	for r := uint32(1); r < spec.R; r++ {
		if len(level) < 2 {
			break
		}
		level = windowMinima(level, w)
	}

	level = dropCloseAdjacent(level, int(spec.MinSpan))

	if len(level) < 2 && len(seq) >= k+1 {
		level = bracketFirstLast(seq, spec, sid)
	}

	return level
}

// dropCloseAdjacent removes minimizers whose position difference from the
// previous surviving minimizer is less than minSpan.
func dropCloseAdjacent(in []Minimizer, minSpan int) []Minimizer {
	if len(in) == 0 {
		return in
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Pos() < in[j].Pos() })
	out := in[:1]
	for _, m := range in[1:] {
		if int(m.Pos())-int(out[len(out)-1].Pos()) >= minSpan {
			out = append(out, m)
		}
	}
	return out
}

// bracketFirstLast recomputes level-0 minimizers over the whole sequence
// and returns just the first and last, treating them as bracketed by
// virtual larger values: the extremes of the level-0 stream are the best
// approximation of what further reduction levels would have preserved,
// since a level's first/last element always survives a window-minimum
// pass over a window no larger than the sequence itself.
func bracketFirstLast(seq []byte, spec ShmmrSpec, sid uint32) []Minimizer {
	k := int(spec.K)
	var level []Minimizer
	for end := k - 1; end < len(seq); end++ {
		hash, strand, ok := hashKmer(seq, end, k)
		if !ok {
			continue
		}
		level = append(level, newMinimizer(hash, strand, uint32(end), sid))
	}
	if len(level) == 0 {
		return nil
	}
	if len(level) == 1 {
		return level
	}
	return []Minimizer{level[0], level[len(level)-1]}
}
