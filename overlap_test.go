package pgrtk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagBlocksSingleBlockLeavesGapsOnEitherSide(t *testing.T) {
	blocks := []AlnBlock{{TBgn: 100, TEnd: 200, QBgn: 0, QEnd: 100}}
	tagged := TagBlocks(blocks, 300, AxisTarget)

	require.Equal(t, []TaggedBlock{
		{Bgn: 0, End: 100, Kind: BlockGap},
		{Bgn: 100, End: 200, Kind: BlockAligned},
		{Bgn: 200, End: 300, Kind: BlockGap},
	}, tagged)
}

func TestTagBlocksOverlappingCoverageIsDuplicate(t *testing.T) {
	blocks := []AlnBlock{
		{TBgn: 0, TEnd: 100, QBgn: 0, QEnd: 100},
		{TBgn: 50, TEnd: 150, QBgn: 1000, QEnd: 1100},
	}
	tagged := TagBlocks(blocks, 150, AxisTarget)

	var sawDuplicate bool
	for _, b := range tagged {
		if b.Kind == BlockDuplicate {
			sawDuplicate = true
			require.GreaterOrEqual(t, b.Bgn, uint32(50))
			require.LessOrEqual(t, b.End, uint32(100))
		}
	}
	require.True(t, sawDuplicate)
}

func TestTagBlocksNoBlocksIsAllGap(t *testing.T) {
	tagged := TagBlocks(nil, 500, AxisTarget)
	require.Equal(t, []TaggedBlock{{Bgn: 0, End: 500, Kind: BlockGap}}, tagged)
}

func TestTagBlocksEmptyAxisWithNoBlocks(t *testing.T) {
	require.Nil(t, TagBlocks(nil, 0, AxisTarget))
}
