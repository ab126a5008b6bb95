package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noiretools/noirefs/internal/vpath"
)

var lsCmd = &cobra.Command{
	Use:   "ls [dir]",
	Short: "list the entries of a directory in the stitched namespace",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := vpath.Root
		if len(args) == 1 {
			dir = vpath.Path(args[0]).Normalize()
			if !dir.IsDirectory() {
				dir = dir.Concat("/")
			}
		}

		fs, err := openFS()
		if err != nil {
			return err
		}
		defer fs.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		defer w.Flush()
		err = fs.Visit(dir, false,
			func(p vpath.Path) error {
				fmt.Fprintf(w, "dir\t-\t%s\n", p.Name())
				return nil
			},
			func(p vpath.Path) error {
				size := int64(-1)
				if s, err := fs.OpenStream(p); err == nil {
					size = s.Size()
					s.Close()
				}
				fmt.Fprintf(w, "file\t%d\t%s\n", size, p.Name())
				return nil
			})
		return err
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
