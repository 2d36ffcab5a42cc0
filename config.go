package pgrtk

import "runtime"

// ShmmrSpec identifies a minimizer regime. Two minimizer-pair indexes are
// interoperable iff their specs are equal.
type ShmmrSpec struct {
	W       uint32
	K       uint32
	R       uint32
	MinSpan uint32
	Sketch  bool
}

// Equal reports whether two specs describe the same minimizer regime.
func (s ShmmrSpec) Equal(o ShmmrSpec) bool {
	return s.W == o.W && s.K == o.K && s.R == o.R && s.MinSpan == o.MinSpan && s.Sketch == o.Sketch
}

// DefaultShmmrSpec mirrors the reference implementation's SHMMRSPEC used by
// the index-build path: w=80, k=56, r=4, min_span=64, sketch on.
var DefaultShmmrSpec = ShmmrSpec{W: 80, K: 56, R: 4, MinSpan: 64, Sketch: true}

// AlignerParams is one of pgr-alnmap's named parameter bundles; PresetFast,
// PresetDefault and PresetDetail mirror its three presets.
type AlignerParams struct {
	W, K, R, MinSpan, MaxSWAlnSize uint32
}

var (
	PresetFast    = AlignerParams{W: 80, K: 55, R: 4, MinSpan: 64, MaxSWAlnSize: 1 << 10}
	PresetDefault = AlignerParams{W: 48, K: 55, R: 2, MinSpan: 16, MaxSWAlnSize: 1 << 10}
	PresetDetail  = AlignerParams{W: 48, K: 55, R: 2, MinSpan: 16, MaxSWAlnSize: 1 << 15}
)

// ChainConfig holds the tunables for the sparse alignment chainer.
type ChainConfig struct {
	MaxAlnChainSpan  uint32
	MaxGap           uint32
	GapPenaltyFactor float64
	MaxCount         int
	MaxCountQuery    int
	MaxCountTarget   int
}

var DefaultChainConfig = ChainConfig{
	MaxAlnChainSpan:  8,
	MaxGap:           100000,
	GapPenaltyFactor: 0.025,
	MaxCount:         32,
	MaxCountQuery:    32,
	MaxCountTarget:   32,
}

// BundleConfig holds the tunables for the principal bundle decomposer.
type BundleConfig struct {
	MinCov              int
	MinBranchSize       int
	PathLenCutoff       int
	BundleLengthCutoff  int
	BundleMergeDistance int
}

var DefaultBundleConfig = BundleConfig{
	MinCov:              2,
	MinBranchSize:       8,
	PathLenCutoff:       5,
	BundleLengthCutoff:  500,
	BundleMergeDistance: 20000,
}

// WorkerCount resolves the "0 = all cores" convention shared by the
// reference implementation's rayon thread-pool sizing.
func WorkerCount(configured int) int {
	if configured <= 0 {
		return runtime.NumCPU()
	}
	return configured
}
