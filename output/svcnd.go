package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// WriteSVCndSeqs writes ".svcnd.seqs": for each SV candidate, a
// FASTA-like pair of records holding the raw target and query bytes
// bracketing the candidate, so a downstream short-range aligner or human
// reviewer can re-examine the region without re-running the chainer.
func WriteSVCndSeqs(w io.Writer, svs []SVCandidate) error {
	bw := bufio.NewWriter(w)
	for i, s := range svs {
		if _, err := fmt.Fprintf(bw, ">%d_t_%s:%d-%d_%s\n%s\n", i, s.Target, s.TBgn, s.TEnd, svKindLabel(s.Kind), s.TSeq); err != nil {
			return errors.Wrap(err, "svcnd: write target record")
		}
		if _, err := fmt.Fprintf(bw, ">%d_q_%s:%d-%d_%s\n%s\n", i, s.Query, s.QBgn, s.QEnd, svKindLabel(s.Kind), s.QSeq); err != nil {
			return errors.Wrap(err, "svcnd: write query record")
		}
	}
	return errors.Wrap(bw.Flush(), "svcnd: flush")
}
