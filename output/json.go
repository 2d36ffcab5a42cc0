package output

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// CtgMapEntry is one row of ".ctgmap.json": a contig's chain blocks
// against a target, with the same annotations as the BED writer.
type CtgMapEntry struct {
	Target      string `json:"target"`
	Query       string `json:"query"`
	TBgn        uint32 `json:"t_bgn"`
	TEnd        uint32 `json:"t_end"`
	QBgn        uint32 `json:"q_bgn"`
	QEnd        uint32 `json:"q_end"`
	Orientation uint8  `json:"orientation"`
	TDup        bool   `json:"t_dup"`
	TOvlp       bool   `json:"t_ovlp"`
	QDup        bool   `json:"q_dup"`
	QOvlp       bool   `json:"q_ovlp"`
}

// ChainsToCtgMap projects a chain-record slice into the ".ctgmap.json"
// shape.
func ChainsToCtgMap(chains []ChainRecord) []CtgMapEntry {
	out := make([]CtgMapEntry, 0, len(chains))
	for _, c := range chains {
		out = append(out, CtgMapEntry{
			Target: c.Target, Query: c.Query,
			TBgn: c.Block.TBgn, TEnd: c.Block.TEnd,
			QBgn: c.Block.QBgn, QEnd: c.Block.QEnd,
			Orientation: c.Orientation,
			TDup:        c.TDup, TOvlp: c.TOvlp, QDup: c.QDup, QOvlp: c.QOvlp,
		})
	}
	return out
}

// WriteJSON encodes v to w as indented JSON, shared by ".ctgmap.json" and
// ".target_len.json".
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "output: encode json")
}
