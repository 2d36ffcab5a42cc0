// Command pgrtk-build ingests a collection of FASTA files into a
// minimizer-addressed fragment store, writing the four files (.mdb,
// .midx, .sdx, .frg) that share the output prefix: read FASTA, extract
// minimizers, pack fragments, then seal and persist.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pgrtk-go/pgrtk"
	"github.com/pgrtk-go/pgrtk/fastaio"
	"github.com/spf13/cobra"
)

var (
	outPrefix string
	specW     uint32
	specK     uint32
	specR     uint32
	specMinSp uint32
	sketch    bool
)

func main() {
	root := &cobra.Command{
		Use:   "pgrtk-build [fasta files...]",
		Short: "Build a minimizer-indexed fragment store from FASTA input",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBuild,
	}
	root.Flags().StringVarP(&outPrefix, "prefix", "o", "pgrtk-index", "output file prefix")
	root.Flags().Uint32Var(&specW, "w", pgrtk.DefaultShmmrSpec.W, "minimizer window size")
	root.Flags().Uint32Var(&specK, "k", pgrtk.DefaultShmmrSpec.K, "k-mer length")
	root.Flags().Uint32Var(&specR, "r", pgrtk.DefaultShmmrSpec.R, "SHIMMER reduction levels")
	root.Flags().Uint32Var(&specMinSp, "min-span", pgrtk.DefaultShmmrSpec.MinSpan, "minimum minimizer-pair span")
	root.Flags().BoolVar(&sketch, "sketch", pgrtk.DefaultShmmrSpec.Sketch, "use sketch minimizers")

	if err := root.Execute(); err != nil {
		pgrtk.Log.WithError(err).Error("pgrtk-build failed")
		os.Exit(1)
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	spec := pgrtk.ShmmrSpec{W: specW, K: specK, R: specR, MinSpan: specMinSp, Sketch: sketch}
	db := pgrtk.NewCompactSeqDB(spec)

	var sid uint32
	for _, path := range args {
		if err := ingestFile(db, path, &sid); err != nil {
			return err
		}
	}

	if err := db.SealAll(); err != nil {
		return err
	}

	return writeArtifacts(db)
}

func ingestFile(db *pgrtk.CompactSeqDB, path string, sid *uint32) error {
	r, err := fastaio.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		rec, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		minimizers := pgrtk.SequenceToShmmrs(*sid, rec.Seq, db.Spec, false)
		source := rec.Source
		if _, err := db.Ingest(*sid, rec.Name, &source, rec.Seq, minimizers); err != nil {
			return err
		}
		pgrtk.Log.WithFields(map[string]interface{}{"name": rec.Name, "sid": *sid, "len": len(rec.Seq)}).Info("ingested sequence")
		*sid++
	}
}

func writeArtifacts(db *pgrtk.CompactSeqDB) error {
	mdb, err := os.Create(outPrefix + ".mdb")
	if err != nil {
		return err
	}
	defer mdb.Close()
	if err := pgrtk.WriteMDB(mdb, db.Spec, db.FragMap); err != nil {
		return err
	}

	frg, err := os.Create(outPrefix + ".frg")
	if err != nil {
		return err
	}
	defer frg.Close()
	offsets, err := pgrtk.WriteFRG(frg, db.FragGroups)
	if err != nil {
		return err
	}

	sdx, err := os.Create(outPrefix + ".sdx")
	if err != nil {
		return err
	}
	defer sdx.Close()
	if err := pgrtk.WriteSDX(sdx, offsets, db.Seqs); err != nil {
		return err
	}

	midx, err := os.Create(outPrefix + ".midx")
	if err != nil {
		return err
	}
	defer midx.Close()
	if err := pgrtk.WriteMIDX(midx, db.Seqs); err != nil {
		return err
	}

	fmt.Printf("wrote %s.{mdb,sdx,frg,midx}: %d sequences, %d fragment groups\n", outPrefix, len(db.Seqs), len(db.FragGroups))
	return nil
}
