package pgrtk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestChainMonotonicityForward covers property 6 for orientation 0: within
// a chained run of same-orientation hits, both t_bgn and q_bgn strictly
// increase.
func TestChainMonotonicityForward(t *testing.T) {
	hits := []AlignSegment{
		{QBgn: 0, QEnd: 100, TBgn: 1000, TEnd: 1100},
		{QBgn: 100, QEnd: 220, TBgn: 1100, TEnd: 1220},
		{QBgn: 220, QEnd: 340, TBgn: 1220, TEnd: 1340},
		// a decoy hit that would break monotonicity if chained in
		{QBgn: 50, QEnd: 90, TBgn: 5000, TEnd: 5040},
	}
	chain := ChainHits(hits, DefaultChainConfig)
	require.Len(t, chain, 3)
	for i := 1; i < len(chain); i++ {
		require.Greater(t, chain[i].TBgn, chain[i-1].TBgn)
		require.Greater(t, chain[i].QBgn, chain[i-1].QBgn)
	}
}

// TestChainMonotonicityReverse covers property 6 for orientation 1: t_bgn
// still increases, but q_bgn runs backward (reversed relative to target).
func TestChainMonotonicityReverse(t *testing.T) {
	hits := []AlignSegment{
		{QBgn: 300, QEnd: 400, QOrientation: 1, TBgn: 1000, TEnd: 1100, TOrientation: 0},
		{QBgn: 180, QEnd: 300, QOrientation: 1, TBgn: 1100, TEnd: 1220, TOrientation: 0},
		{QBgn: 60, QEnd: 180, QOrientation: 1, TBgn: 1220, TEnd: 1340, TOrientation: 0},
	}
	chain := ChainHits(hits, DefaultChainConfig)
	require.Len(t, chain, 3)
	for i := 1; i < len(chain); i++ {
		require.Greater(t, chain[i].TBgn, chain[i-1].TBgn)
		require.Less(t, chain[i].QBgn, chain[i-1].QBgn)
	}
}

func TestChainHitsEmptyInput(t *testing.T) {
	require.Nil(t, ChainHits(nil, DefaultChainConfig))
}

func TestFilterChainProducesNonDecreasingBlocks(t *testing.T) {
	chain := []AlignSegment{
		{QBgn: 0, QEnd: 100, TBgn: 1000, TEnd: 1100},
		{QBgn: 100, QEnd: 220, TBgn: 1100, TEnd: 1220},
	}
	blocks := FilterChain(chain)
	require.NotEmpty(t, blocks)
	for i := 1; i < len(blocks); i++ {
		require.GreaterOrEqual(t, blocks[i].TBgn, blocks[i-1].TEnd)
	}
}
