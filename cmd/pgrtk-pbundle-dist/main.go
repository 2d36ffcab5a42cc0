// Command pgrtk-pbundle-dist computes pairwise bundle-run distances
// between every sequence in a prebuilt index, clusters them by average
// linkage, and writes the .dist/.nwk/.ddg/.offset artifact set.
package main

import (
	"fmt"
	"os"

	"github.com/pgrtk-go/pgrtk"
	"github.com/pgrtk-go/pgrtk/output"
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
		Use:   "pgrtk-pbundle-dist",
		Short: "Cluster sequences in a prebuilt index by bundle-run distance",
		RunE:  run,
	}
	cfg := pgrtk.DefaultBundleConfig
	root.Flags().StringVar(&indexPrefix, "index", "", "prebuilt index file prefix (required)")
	root.Flags().StringVarP(&outPrefix, "out", "o", "pgrtk-pbundle-dist", "output file prefix")
	root.Flags().IntVar(&minCov, "min-cov", cfg.MinCov, "minimum pair occurrence count to keep in the graph")
	root.Flags().IntVar(&pathLenCutoff, "path-len-cutoff", cfg.PathLenCutoff, "minimum DFS path length to seed a main bundle")
	root.Flags().IntVar(&bundleLengthCutoff, "bundle-length-cutoff", cfg.BundleLengthCutoff, "minimum run span to keep")
	root.Flags().IntVar(&bundleMergeDistance, "bundle-merge-distance", cfg.BundleMergeDistance, "max gap to merge adjacent runs")
	root.MarkFlagRequired("index")

	if err := root.Execute(); err != nil {
		pgrtk.Log.WithError(err).Error("pgrtk-pbundle-dist failed")
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

	records := make([][]pgrtk.SMPFragRecord, len(store.Seqs))
	for _, seq := range store.Seqs {
		full, err := store.GetByID(seq.ID)
		if err != nil {
			return err
		}
		smps := pgrtk.SMPOccurrencesForSeq(full, store.Spec)
		runs := pgrtk.GroupByPrincipalBundle(smps, vmap, bundleLengthCutoff, bundleMergeDistance)
		records[seq.ID] = runsToFragRecords(runs)
	}

	n := len(store.Seqs)
	dist := make([][]float64, n)
	offsetOf := make([][]int, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		offsetOf[i] = make([]int, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, _, _, _, off := pgrtk.AlignSMPs(records[i], records[j])
			dist[i][j], dist[j][i] = float64(d), float64(d)
			offsetOf[i][j], offsetOf[j][i] = off, -off
		}
	}

	leafName := func(i int) string { return store.Seqs[i].Name }
	steps := pgrtk.AverageLinkage(dist, n)

	if f, err := os.Create(outPrefix + ".dist"); err == nil {
		err = output.WriteDist(f, n, leafName, func(i, j int) float64 { return dist[i][j] })
		f.Close()
		if err != nil {
			return err
		}
	} else {
		return err
	}

	if f, err := os.Create(outPrefix + ".nwk"); err == nil {
		err = output.WriteNewick(f, steps, n, leafName)
		f.Close()
		if err != nil {
			return err
		}
	} else {
		return err
	}

	if f, err := os.Create(outPrefix + ".ddg"); err == nil {
		err = pgrtk.WriteDendrogram(f, steps, n, leafName)
		f.Close()
		if err != nil {
			return err
		}
	} else {
		return err
	}

	if f, err := os.Create(outPrefix + ".offset"); err == nil {
		err = pgrtk.WriteOffsets(f, steps, n, leafName,
			func(i, j int) float64 { return dist[i][j] },
			func(i, j int) int { return offsetOf[i][j] })
		f.Close()
		if err != nil {
			return err
		}
	} else {
		return err
	}

	fmt.Printf("wrote %s.{dist,nwk,ddg,offset}: %d sequences\n", outPrefix, n)
	return nil
}

// runsToFragRecords converts grouped bundle runs into the SMPFragRecord
// shape AlignSMPs consumes, keying each run by its bundle id so two
// sequences traversing the same bundle in the same direction match.
func runsToFragRecords(runs [][]pgrtk.BundleRunItem) []pgrtk.SMPFragRecord {
	out := make([]pgrtk.SMPFragRecord, 0, len(runs))
	for _, run := range runs {
		first, last := run[0], run[len(run)-1]
		out = append(out, pgrtk.SMPFragRecord{
			FragKey:     fmt.Sprintf("%d", first.BundleID),
			Bgn:         first.SMP.P0,
			End:         last.SMP.P1,
			Orientation: uint8(first.Direction),
		})
	}
	return out
}
