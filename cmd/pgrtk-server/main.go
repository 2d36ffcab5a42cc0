// Command pgrtk-server hosts the query API over HTTP: given a
// prebuilt fragment store and its principal-bundle decomposition, it
// answers range lookups with the bundle-labeled minimizer-pair walk
// covering them, for consumption by a browser-side visualization UI.
package main

import (
	"net/http"
	"os"

	"github.com/pgrtk-go/pgrtk"
	"github.com/pgrtk-go/pgrtk/query"
	"github.com/spf13/cobra"
)

var (
	indexPrefix   string
	pdbPath       string
	minCov        int
	pathLenCutoff int
	listenAddr    string
)

func main() {
	root := &cobra.Command{
		Use:   "pgrtk-server",
		Short: "Serve the pangenome query API over HTTP",
		RunE:  run,
	}
	root.Flags().StringVar(&indexPrefix, "index", "", "prebuilt index file prefix (required)")
	root.Flags().StringVar(&pdbPath, "pdb", "", "precomputed .pdb bundle file (optional; rebuilt from the index if omitted)")
	root.Flags().IntVar(&minCov, "min-cov", pgrtk.DefaultBundleConfig.MinCov, "minimum pair occurrence count, used only when --pdb is omitted")
	root.Flags().IntVar(&pathLenCutoff, "path-len-cutoff", pgrtk.DefaultBundleConfig.PathLenCutoff, "used only when --pdb is omitted")
	root.Flags().StringVar(&listenAddr, "listen", ":8080", "HTTP listen address")
	root.MarkFlagRequired("index")

	if err := root.Execute(); err != nil {
		pgrtk.Log.WithError(err).Error("pgrtk-server failed")
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	store, err := pgrtk.OpenMmapSeqStore(indexPrefix)
	if err != nil {
		return err
	}
	defer store.Close()

	vmap, err := loadOrBuildBundleMap(store)
	if err != nil {
		return err
	}

	idx := query.NewIndexStore(store, store.Spec, store.Seqs)
	handler := &query.Handler{Store: idx, Bmap: vmap, Log: pgrtk.Log}

	pgrtk.Log.WithField("addr", listenAddr).Info("pgrtk-server listening")
	return http.ListenAndServe(listenAddr, handler.Router())
}

func loadOrBuildBundleMap(store *pgrtk.MmapSeqStore) (pgrtk.VertexToBundleMap, error) {
	if pdbPath != "" {
		f, err := os.Open(pdbPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		_, _, _, _, vmap, err := pgrtk.ReadPDB(f)
		if err != nil {
			return nil, err
		}
		return vmap, nil
	}

	adj := pgrtk.FragMapToAdjList(store.FragMap, minCov, nil)
	bundles, _ := pgrtk.GetPrincipalBundles(store.FragMap, adj, pathLenCutoff)
	return pgrtk.BuildVertexToBundleMap(bundles), nil
}
