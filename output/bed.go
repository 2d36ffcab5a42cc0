package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// writeBed3 writes the shared BED3+annotation shape: chrom, begin, end,
// then a caller-supplied annotation column. Coordinates are written as the
// caller formats them (0-based for chain blocks, 1-based for SV candidates).
func writeBed3(w io.Writer, rows [][4]string) error {
	bw := bufio.NewWriter(w)
	for _, r := range rows {
		if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\t%s\n", r[0], r[1], r[2], r[3]); err != nil {
			return errors.Wrap(err, "bed: write row")
		}
	}
	return errors.Wrap(bw.Flush(), "bed: flush")
}

// WriteCtgMapBED writes ".ctgmap.bed": one row per reported chain block,
// annotated with the query name, orientation, and duplication/overlap
// tags.
func WriteCtgMapBED(w io.Writer, chains []ChainRecord) error {
	rows := make([][4]string, 0, len(chains))
	for _, c := range chains {
		ann := fmt.Sprintf("%s:%d-%d;o=%d;tdup=%t;tovlp=%t;qdup=%t;qovlp=%t",
			c.Query, c.Block.QBgn, c.Block.QEnd, c.Orientation, c.TDup, c.TOvlp, c.QDup, c.QOvlp)
		rows = append(rows, [4]string{c.Target, fmt.Sprint(c.Block.TBgn), fmt.Sprint(c.Block.TEnd), ann})
	}
	return writeBed3(w, rows)
}

// WriteSVCndBED writes ".svcnd.bed": one row per SV candidate on the
// target axis, using a (ts+1, te+1) 1-based coordinate convention for
// SV-candidate records, distinct from the 0-based convention the chain
// blocks in WriteCtgMapBED use.
func WriteSVCndBED(w io.Writer, svs []SVCandidate) error {
	rows := make([][4]string, 0, len(svs))
	for _, s := range svs {
		ann := fmt.Sprintf("%s:%d-%d;%s", s.Query, s.QBgn, s.QEnd, svKindLabel(s.Kind))
		rows = append(rows, [4]string{s.Target, fmt.Sprint(s.TBgn + 1), fmt.Sprint(s.TEnd + 1), ann})
	}
	return writeBed3(w, rows)
}

// WriteCtgSVBED writes ".ctgsv.bed": the same SV candidates projected
// onto the query axis instead of the target axis.
func WriteCtgSVBED(w io.Writer, svs []SVCandidate) error {
	rows := make([][4]string, 0, len(svs))
	for _, s := range svs {
		ann := fmt.Sprintf("%s:%d-%d;%s", s.Target, s.TBgn+1, s.TEnd+1, svKindLabel(s.Kind))
		rows = append(rows, [4]string{s.Query, fmt.Sprint(s.QBgn + 1), fmt.Sprint(s.QEnd + 1), ann})
	}
	return writeBed3(w, rows)
}
