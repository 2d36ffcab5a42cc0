// Command pgrtk-pbundle-decomp builds the minimizer graph over a
// prebuilt fragment store, extracts its principal bundles, and labels
// every stored sequence as an ordered list of bundle runs.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/pgrtk-go/pgrtk"
	"github.com/spf13/cobra"
)

var (
	indexPrefix         string
	outPrefix           string
	minCov              int
	pathLenCutoff       int
	bundleLengthCutoff  int
	bundleMergeDistance int
)

func main() {
	root := &cobra.Command{
		Use:   "pgrtk-pbundle-decomp",
		Short: "Decompose a prebuilt index into principal bundles",
		RunE:  run,
	}
	cfg := pgrtk.DefaultBundleConfig
	root.Flags().StringVar(&indexPrefix, "index", "", "prebuilt index file prefix (required)")
	root.Flags().StringVarP(&outPrefix, "out", "o", "pgrtk-pbundle", "output file prefix")
	root.Flags().IntVar(&minCov, "min-cov", cfg.MinCov, "minimum pair occurrence count to keep in the graph")
	root.Flags().IntVar(&pathLenCutoff, "path-len-cutoff", cfg.PathLenCutoff, "minimum DFS path length to seed a main bundle")
	root.Flags().IntVar(&bundleLengthCutoff, "bundle-length-cutoff", cfg.BundleLengthCutoff, "minimum run span to keep")
	root.Flags().IntVar(&bundleMergeDistance, "bundle-merge-distance", cfg.BundleMergeDistance, "max gap to merge adjacent runs")
	root.MarkFlagRequired("index")

	if err := root.Execute(); err != nil {
		pgrtk.Log.WithError(err).Error("pgrtk-pbundle-decomp failed")
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	store, err := pgrtk.OpenMmapSeqStore(indexPrefix)
	if err != nil {
		return err
	}
	defer store.Close()

	adj := pgrtk.FragMapToAdjList(store.FragMap, minCov, nil)
	bundles, _ := pgrtk.GetPrincipalBundles(store.FragMap, adj, pathLenCutoff)
	vmap := pgrtk.BuildVertexToBundleMap(bundles)

	pdb, err := os.Create(outPrefix + ".pdb")
	if err != nil {
		return err
	}
	defer pdb.Close()
	if err := pgrtk.WritePDB(pdb, store.Spec, pgrtk.DefaultBundleConfig.MinBranchSize, minCov, bundles, vmap); err != nil {
		return err
	}

	bedFile, err := os.Create(outPrefix + ".bundle.bed")
	if err != nil {
		return err
	}
	defer bedFile.Close()
	bw := bufio.NewWriter(bedFile)
	for _, seq := range store.Seqs {
		full, err := store.GetByID(seq.ID)
		if err != nil {
			return err
		}
		smps := pgrtk.SMPOccurrencesForSeq(full, store.Spec)
		runs := pgrtk.GroupByPrincipalBundle(smps, vmap, bundleLengthCutoff, bundleMergeDistance)
		for _, run := range runs {
			first, last := run[0], run[len(run)-1]
			if _, err := fmt.Fprintf(bw, "%s\t%d\t%d\tbundle_%d;dir=%d\n",
				seq.Name, first.SMP.P0, last.SMP.P1, first.BundleID, first.Direction); err != nil {
				return err
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	fmt.Printf("wrote %s.pdb and %s.bundle.bed: %d bundles over %d sequences\n", outPrefix, outPrefix, len(bundles), len(store.Seqs))
	return nil
}
