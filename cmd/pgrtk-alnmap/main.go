// Command pgrtk-alnmap aligns one or more query contigs against a
// prebuilt fragment store via the sparse alignment chainer, refines the
// gaps between chain anchors into base-level variants or SV candidates,
// tags duplicated/overlapping blocks, and writes the full
// output-artifact set as a single flag-driven binary.
package main

import (
	"fmt"
	"os"

	"github.com/pgrtk-go/pgrtk"
	"github.com/pgrtk-go/pgrtk/fastaio"
	"github.com/pgrtk-go/pgrtk/output"
	"github.com/spf13/cobra"
)

var (
	indexPrefix  string
	queryPath    string
	outPrefix    string
	preset       string
	maxSWAlnSize int
)

func main() {
	root := &cobra.Command{
		Use:   "pgrtk-alnmap",
		Short: "Chain-align query contigs against a prebuilt fragment store",
		RunE:  run,
	}
	root.Flags().StringVar(&indexPrefix, "index", "", "prebuilt index file prefix (required)")
	root.Flags().StringVar(&queryPath, "query", "", "query FASTA file (required)")
	root.Flags().StringVarP(&outPrefix, "out", "o", "pgrtk-alnmap", "output file prefix")
	root.Flags().StringVar(&preset, "preset", "default", "alignment preset: fast|default|detail (sets the default --max-sw-aln-size; minimizer parameters come from the index)")
	root.Flags().IntVar(&maxSWAlnSize, "max-sw-aln-size", 1<<10, "max gap size handled by the banded aligner")
	root.MarkFlagRequired("index")
	root.MarkFlagRequired("query")

	if err := root.Execute(); err != nil {
		pgrtk.Log.WithError(err).Error("pgrtk-alnmap failed")
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	params, ok := map[string]pgrtk.AlignerParams{
		"fast": pgrtk.PresetFast, "default": pgrtk.PresetDefault, "detail": pgrtk.PresetDetail,
	}[preset]
	if !ok {
		return fmt.Errorf("unknown preset %q", preset)
	}
	if !cmd.Flags().Changed("max-sw-aln-size") {
		maxSWAlnSize = int(params.MaxSWAlnSize)
	}

	store, err := pgrtk.OpenMmapSeqStore(indexPrefix)
	if err != nil {
		return err
	}
	defer store.Close()

	rdr, err := fastaio.OpenReader(queryPath)
	if err != nil {
		return err
	}
	defer rdr.Close()

	var chains []output.ChainRecord
	var variants []output.VariantRecord
	var svs []output.SVCandidate

	for {
		rec, err := rdr.Next()
		if err != nil {
			break
		}
		qChains, qVariants, qSVs, err := alignQuery(store, rec)
		if err != nil {
			return err
		}
		chains = append(chains, qChains...)
		variants = append(variants, qVariants...)
		svs = append(svs, qSVs...)
	}

	chains = tagOverlaps(chains)

	return writeArtifacts(store, chains, variants, svs)
}

// targetHit groups the raw minimizer-pair hits between one query and one
// target sequence id.
type targetHit struct {
	sid  uint32
	name string
	segs []pgrtk.AlignSegment
}

func alignQuery(store *pgrtk.MmapSeqStore, rec fastaio.Record) ([]output.ChainRecord, []output.VariantRecord, []output.SVCandidate, error) {
	qShmmrs := pgrtk.SequenceToShmmrs(0, rec.Seq, store.Spec, false)
	byTarget := map[uint32]*targetHit{}

	for i := 0; i+1 < len(qShmmrs); i++ {
		m0, m1 := qShmmrs[i], qShmmrs[i+1]
		pair, qOrient := pgrtk.CanonicalizePair(m0.Hash(), m1.Hash())
		qBgn, qEnd := m0.Pos()+1, m1.Pos()+1

		sigs, ok := store.FragMap.Get(pair.H0, pair.H1)
		if !ok {
			continue
		}
		for _, sig := range sigs {
			th := byTarget[sig.SeqID]
			if th == nil {
				th = &targetHit{sid: sig.SeqID, name: targetName(store, sig.SeqID)}
				byTarget[sig.SeqID] = th
			}
			th.segs = append(th.segs, pgrtk.AlignSegment{
				QBgn: qBgn, QEnd: qEnd, QOrientation: qOrient,
				TBgn: sig.Bgn, TEnd: sig.End, TOrientation: sig.Orientation,
			})
		}
	}

	var chains []output.ChainRecord
	var variants []output.VariantRecord
	var svs []output.SVCandidate

	for _, th := range byTarget {
		chain := pgrtk.ChainHits(th.segs, pgrtk.DefaultChainConfig)
		if len(chain) == 0 {
			continue
		}

		var blocks []pgrtk.AlnBlock
		if chain[0].QOrientation^chain[0].TOrientation == 0 {
			blocks = pgrtk.FilterChain(chain)
		} else {
			blocks = pgrtk.FilterChainRev(chain)
		}
		for _, b := range blocks {
			chains = append(chains, output.ChainRecord{
				Target: th.name, Query: rec.Name, Block: b,
				Orientation: chain[0].QOrientation ^ chain[0].TOrientation,
			})
		}

		gapVariants, gapSVs := refineGaps(store, th, rec, chain)
		variants = append(variants, gapVariants...)
		svs = append(svs, gapSVs...)
	}

	return chains, variants, svs, nil
}

func refineGaps(store *pgrtk.MmapSeqStore, th *targetHit, rec fastaio.Record, chain []pgrtk.AlignSegment) ([]output.VariantRecord, []output.SVCandidate) {
	var variants []output.VariantRecord
	var svs []output.SVCandidate
	k := int(store.Spec.K)

	for i := 0; i+1 < len(chain); i++ {
		a, b := chain[i], chain[i+1]
		tBgn, tEnd := clampPad(a.TEnd, b.TBgn, k)
		qBgn, qEnd := clampPad(a.QEnd, b.QBgn, k)
		if tEnd <= tBgn || qEnd <= qBgn {
			continue
		}

		tSeq, err := store.GetSubRange(th.sid, tBgn, tEnd)
		if err != nil {
			continue
		}
		qSeq := rec.Seq[qBgn:qEnd]

		result := pgrtk.RefineGap(tSeq, qSeq, maxSWAlnSize)
		switch result.Kind {
		case pgrtk.DiffAligned:
			for _, v := range result.Variants {
				variants = append(variants, output.VariantRecord{
					Target: th.name, Query: rec.Name,
					TPos: tBgn + v.TPos, Kind: v.Type, Ref: v.Ref, Alt: v.Alt,
				})
			}
		case pgrtk.DiffNone:
			// clean match, nothing to record
		default:
			svs = append(svs, output.SVCandidate{
				Target: th.name, Query: rec.Name,
				TBgn: tBgn, TEnd: tEnd, QBgn: qBgn, QEnd: qEnd,
				Kind: result.Kind, TSeq: tSeq, QSeq: qSeq,
			})
		}
	}
	return variants, svs
}

// clampPad widens [aEnd, bBgn) by k on each side to guarantee a flanking
// matched k-mer on both ends of the gap, clamping at zero.
func clampPad(aEnd, bBgn uint32, k int) (uint32, uint32) {
	bgn := aEnd
	if uint32(k) <= bgn {
		bgn -= uint32(k)
	} else {
		bgn = 0
	}
	end := bBgn + uint32(k)
	return bgn, end
}

func targetName(store *pgrtk.MmapSeqStore, sid uint32) string {
	if int(sid) < len(store.Seqs) {
		return store.Seqs[sid].Name
	}
	return fmt.Sprintf("seq-%d", sid)
}

func tagOverlaps(chains []output.ChainRecord) []output.ChainRecord {
	byTarget := map[string][]int{}
	for i, c := range chains {
		byTarget[c.Target] = append(byTarget[c.Target], i)
	}
	for _, idxs := range byTarget {
		blocks := make([]pgrtk.AlnBlock, len(idxs))
		for j, i := range idxs {
			blocks[j] = chains[i].Block
		}
		var maxEnd uint32
		for _, b := range blocks {
			if b.TEnd > maxEnd {
				maxEnd = b.TEnd
			}
		}
		tagged := pgrtk.TagBlocks(blocks, maxEnd, pgrtk.AxisTarget)
		for j, i := range idxs {
			b := blocks[j]
			for _, t := range tagged {
				if t.Bgn < b.TEnd && t.End > b.TBgn {
					if t.Kind == pgrtk.BlockDuplicate {
						chains[i].TDup = true
					}
					if t.Kind == pgrtk.BlockOverlap {
						chains[i].TOvlp = true
					}
				}
			}
		}
	}
	return chains
}

func writeArtifacts(store *pgrtk.MmapSeqStore, chains []output.ChainRecord, variants []output.VariantRecord, svs []output.SVCandidate) error {
	files := map[string]func(f *os.File) error{
		outPrefix + ".alnmap": func(f *os.File) error { return output.WriteAlnMap(f, chains, variants, svs) },
		outPrefix + ".ctgmap.bed": func(f *os.File) error { return output.WriteCtgMapBED(f, chains) },
		outPrefix + ".svcnd.bed": func(f *os.File) error { return output.WriteSVCndBED(f, svs) },
		outPrefix + ".ctgsv.bed": func(f *os.File) error { return output.WriteCtgSVBED(f, svs) },
		outPrefix + ".svcnd.seqs": func(f *os.File) error { return output.WriteSVCndSeqs(f, svs) },
		outPrefix + ".ctgmap.json": func(f *os.File) error { return output.WriteJSON(f, output.ChainsToCtgMap(chains)) },
	}
	for path, fn := range files {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		err = fn(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	contigs := make([]output.ContigLen, 0, len(store.Seqs))
	targetLen := map[string]int{}
	for _, s := range store.Seqs {
		contigs = append(contigs, output.ContigLen{Name: s.Name, Len: uint64(s.Len)})
		targetLen[s.Name] = s.Len
	}
	if f, err := os.Create(outPrefix + ".target_len.json"); err == nil {
		err = output.WriteJSON(f, targetLen)
		f.Close()
		if err != nil {
			return err
		}
	} else {
		return err
	}

	vcfFile, err := os.Create(outPrefix + ".vcf")
	if err != nil {
		return err
	}
	defer vcfFile.Close()
	err = output.WriteVCF(vcfFile, contigs, variants, func(v output.VariantRecord) (bool, bool) {
		for _, c := range chains {
			if c.Target == v.Target && c.Query == v.Query && c.Block.TBgn <= v.TPos && v.TPos < c.Block.TEnd {
				return c.TDup, c.TOvlp
			}
		}
		return false, false
	})
	if err != nil {
		return err
	}

	fmt.Printf("wrote %s.{alnmap,vcf,ctgmap.bed,svcnd.bed,ctgsv.bed,svcnd.seqs,ctgmap.json,target_len.json}\n", outPrefix)
	return nil
}
