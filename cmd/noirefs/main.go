// noirefs explores the layered archive filesystem of the game's data
// directory: it mounts every recognized archive below a root directory
// and exposes the stitched namespace for listing, extraction and FUSE
// mounting.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/noiretools/noirefs"
	"github.com/noiretools/noirefs/internal/nhash"
)

var rootOpts struct {
	root          string
	hashDB        string
	noScan        bool
	tempThreshold int64
	verbose       bool
}

var rootCmd = &cobra.Command{
	Use:           "noirefs",
	Short:         "browse and extract the game's layered archive formats",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootOpts.root, "root", "r", "", "game data directory mounted at /")
	pf.StringVar(&rootOpts.hashDB, "hash-db", "", "file with known names, one per line, for hash resolution")
	pf.BoolVar(&rootOpts.noScan, "no-scan", false, "do not auto-mount nested archives")
	pf.Int64Var(&rootOpts.tempThreshold, "temp-threshold", 0, "bytes before scratch streams spill to a temp file (default 32 MiB)")
	pf.BoolVarP(&rootOpts.verbose, "verbose", "v", false, "debug logging")
}

// openFS assembles the filesystem per the global flags and waits for
// the archive scan to finish.
func openFS() (*noirefs.FileSystem, error) {
	log := logrus.New()
	if rootOpts.verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	var names *nhash.DB
	if rootOpts.hashDB != "" {
		f, err := os.Open(rootOpts.hashDB)
		if err != nil {
			return nil, err
		}
		names, err = nhash.LoadDB(f, false)
		f.Close()
		if err != nil {
			return nil, err
		}
	}

	fs, err := noirefs.Open(noirefs.Config{
		RootPath:                 rootOpts.root,
		TempStreamThresholdBytes: rootOpts.tempThreshold,
		EnableAutoScan:           !rootOpts.noScan,
		Names:                    names,
		Logger:                   log,
	})
	if err != nil {
		return nil, err
	}
	<-fs.ScanDone()
	if err := fs.ScanErr(); err != nil {
		fs.Close()
		return nil, err
	}
	return fs, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
