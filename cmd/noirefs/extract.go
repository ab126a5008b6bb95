package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/noiretools/noirefs/internal/vpath"
)

var extractOpts struct {
	out string
}

var extractCmd = &cobra.Command{
	Use:   "extract <file-or-dir> ...",
	Short: "copy entries out of the namespace onto the host",
	Long: `Extract copies files out of the stitched namespace into the output
directory, preserving their paths. Each file is written atomically: the
content lands in a temp file that is renamed into place, so an aborted
extraction never leaves partial files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := openFS()
		if err != nil {
			return err
		}
		defer fs.Close()

		extractFile := func(p vpath.Path) error {
			s, err := fs.OpenStream(p)
			if err != nil {
				return err
			}
			defer s.Close()

			dest := filepath.Join(extractOpts.out, filepath.FromSlash(p.String()))
			if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
				return err
			}
			t, err := renameio.TempFile("", dest)
			if err != nil {
				return err
			}
			defer t.Cleanup()
			if _, err := io.Copy(t, io.LimitReader(s, s.Size())); err != nil {
				return err
			}
			return t.CloseAtomicallyReplace()
		}

		for _, arg := range args {
			p := vpath.Path(arg).Normalize()
			if p.IsDirectory() {
				err = fs.Visit(p, true, nil, extractFile)
			} else if fs.Exists(p) {
				err = extractFile(p)
			} else {
				err = xerrors.Errorf("%s does not exist", p)
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOpts.out, "out", "o", ".", "output directory")
	rootCmd.AddCommand(extractCmd)
}
