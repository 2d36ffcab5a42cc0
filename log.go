package pgrtk

import "github.com/sirupsen/logrus"

// Log is the package-level structured logger. Callers (cmd/pgrtk-*) may
// swap its output/level; library code never mutates global state beyond
// writing through this single logger, per the "no mutable global state in
// the core" design note.
var Log = logrus.New()

func init() {
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
