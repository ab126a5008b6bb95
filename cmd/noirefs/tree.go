package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noiretools/noirefs/internal/vpath"
)

var treeCmd = &cobra.Command{
	Use:   "tree [dir]",
	Short: "print the stitched namespace recursively",
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

		// archives are separate devices, so walk every mount anchored
		// under dir, not just the device that owns it
		for _, m := range fs.Mounts() {
			base := m.Path
			if base.RelativeTo(dir).IsEmpty() && base != dir {
				continue
			}
			err := fs.Visit(base, true,
				func(p vpath.Path) error {
					printTreeEntry(p, true)
					return nil
				},
				func(p vpath.Path) error {
					printTreeEntry(p, false)
					return nil
				})
			if err != nil {
				return err
			}
		}
		return nil
	},
}

func printTreeEntry(p vpath.Path, dir bool) {
	depth := strings.Count(p.String(), "/")
	if dir {
		depth--
	}
	if depth < 1 {
		depth = 1
	}
	suffix := ""
	if dir {
		suffix = "/"
	}
	fmt.Printf("%s%s%s\n", strings.Repeat("  ", depth-1), p.Name(), suffix)
}

func init() {
	rootCmd.AddCommand(treeCmd)
}
