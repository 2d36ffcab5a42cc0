// Package output renders the core's in-memory results (chains, variants,
// SV candidates, bundle labelings, distance matrices) into on-disk
// artifact formats. None of these formats carry algorithmic weight;
// they are thin writers consumed by downstream tooling (genome browsers,
// VCF consumers, phylogenetic viewers).
package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pgrtk-go/pgrtk"
	"github.com/pkg/errors"
)

// ChainRecord is one reported match block between a query and a target,
// annotated with its duplication/overlap tags.
type ChainRecord struct {
	Target      string
	Query       string
	Block       pgrtk.AlnBlock
	Orientation uint8
	TDup, TOvlp bool
	QDup, QOvlp bool
}

// VariantRecord is one base-level difference recovered by the variant
// refiner, already resolved to absolute target coordinates.
type VariantRecord struct {
	Target string
	Query  string
	TPos   uint32
	Kind   byte
	Ref    string
	Alt    string
}

// SVCandidate is one inter-anchor gap the refiner could not resolve into
// base-level variants: a region flagged for downstream inspection.
type SVCandidate struct {
	Target     string
	Query      string
	TBgn, TEnd uint32
	QBgn, QEnd uint32
	Kind       pgrtk.AlnDiffKind
	TSeq, QSeq []byte
}

// svKindLabel renders an AlnDiffKind as the short tag the .alnmap and BED
// writers use, matching the reference implementation's AlnDiff variant
// names.
func svKindLabel(k pgrtk.AlnDiffKind) string {
	switch k {
	case pgrtk.FailShortSeq:
		return "FailShortSeq"
	case pgrtk.FailEndMatch:
		return "FailEndMatch"
	case pgrtk.FailLengthDiff:
		return "FailLengthDiff"
	case pgrtk.FailAln:
		return "FailAln"
	default:
		return "Unknown"
	}
}

// WriteAlnMap writes the ".alnmap" tab-separated record stream: one line
// per chain block ("C"), one per variant ("V"), and one per SV candidate
// ("S"), in that order, mirroring the reference tool's single append-only
// output stream.
func WriteAlnMap(w io.Writer, chains []ChainRecord, variants []VariantRecord, svs []SVCandidate) error {
	bw := bufio.NewWriter(w)
	for _, c := range chains {
		if _, err := fmt.Fprintf(bw, "C\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%t\t%t\t%t\t%t\n",
			c.Target, c.Query, c.Block.TBgn, c.Block.TEnd, c.Block.QBgn, c.Block.QEnd,
			c.Orientation, c.TDup, c.TOvlp, c.QDup, c.QOvlp); err != nil {
			return errors.Wrap(err, "alnmap: write chain record")
		}
	}
	for _, v := range variants {
		if _, err := fmt.Fprintf(bw, "V\t%s\t%s\t%d\t%c\t%s\t%s\n", v.Target, v.Query, v.TPos, v.Kind, v.Ref, v.Alt); err != nil {
			return errors.Wrap(err, "alnmap: write variant record")
		}
	}
	for _, s := range svs {
		if _, err := fmt.Fprintf(bw, "S\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			s.Target, s.Query, s.TBgn, s.TEnd, s.QBgn, s.QEnd, svKindLabel(s.Kind)); err != nil {
			return errors.Wrap(err, "alnmap: write sv record")
		}
	}
	return errors.Wrap(bw.Flush(), "alnmap: flush")
}
