package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pgrtk-go/pgrtk"
	"github.com/pkg/errors"
)

// WriteDist writes the ".dist" file: one "name0\tname1\tdist" line per
// pair in a condensed (i<j) distance matrix, in row-major order.
func WriteDist(w io.Writer, n int, leafName func(int) string, dist func(i, j int) float64) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if _, err := fmt.Fprintf(bw, "%s\t%s\t%g\n", leafName(i), leafName(j), dist(i, j)); err != nil {
				return errors.Wrap(err, "dist: write row")
			}
		}
	}
	return errors.Wrap(bw.Flush(), "dist: flush")
}

// WriteNewick writes the ".nwk" file: the dendrogram's Newick string,
// terminated with a semicolon as the format requires.
func WriteNewick(w io.Writer, steps []pgrtk.LinkageStep, n int, leafName func(int) string) error {
	tree := pgrtk.BuildNewick(steps, n, leafName)
	_, err := fmt.Fprintf(w, "%s;\n", tree)
	return errors.Wrap(err, "nwk: write")
}
