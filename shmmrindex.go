package pgrtk

// ShmmrPair is a canonicalized, ordered pair of adjacent minimizer hashes:
// the raw pair (a, b) is stored as (a, b) with Orientation 0 if a <= b, or
// as (b, a) with Orientation 1 otherwise. Every pair stored in an index
// satisfies H0 <= H1.
type ShmmrPair struct {
	H0, H1 uint64
}

// CanonicalizePair canonicalizes a raw adjacent-minimizer hash pair,
// returning the canonical pair and the orientation bit needed to recover
// the original order.
func CanonicalizePair(a, b uint64) (ShmmrPair, uint8) {
	if a <= b {
		return ShmmrPair{a, b}, 0
	}
	return ShmmrPair{b, a}, 1
}

// FragmentSignature is one occurrence of a minimizer pair: the fragment
// that contains it, the sequence it came from, its 1-based begin/end
// positions (the right edge of the flanking minimizers), and the
// orientation under which the pair was canonicalized.
type FragmentSignature struct {
	FragID      FragID
	SeqID       uint32
	Bgn, End    uint32
	Orientation uint8
}

// ShmmrToFrags maps a canonical minimizer pair to its ordered list of
// fragment occurrences. Insertion order is preserved within each key's
// slice, matching the reference implementation's FxHashMap<_, Vec<_>>.
type ShmmrToFrags map[ShmmrPair][]FragmentSignature

// Get returns the signatures under a key, and whether the key is present.
func (m ShmmrToFrags) Get(h0, h1 uint64) ([]FragmentSignature, bool) {
	v, ok := m[ShmmrPair{h0, h1}]
	return v, ok
}

// Append adds a new occurrence under a key, preserving insertion order.
func (m ShmmrToFrags) Append(p ShmmrPair, sig FragmentSignature) {
	m[p] = append(m[p], sig)
}
