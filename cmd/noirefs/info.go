package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noiretools/noirefs/internal/archive"
	"github.com/noiretools/noirefs/internal/vpath"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "show what the type probe makes of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := openFS()
		if err != nil {
			return err
		}
		defer fs.Close()

		f, err := fs.Open(vpath.Path(args[0]).Normalize())
		if err != nil {
			return err
		}
		defer f.Raw().Close()
		if err := f.Load(); err != nil {
			return err
		}

		fmt.Printf("size: %d\n", f.Raw().Size())
		switch f := f.(type) {
		case *archive.WAD:
			fmt.Printf("type: wad, %d entries\n", len(f.Entries()))
			for _, e := range f.Entries() {
				fmt.Printf("  %08x %10d %s\n", e.PathHash, e.Size, e.Path)
			}
		case *archive.Container:
			fmt.Printf("type: container, %d chunks\n", len(f.Entries()))
			for _, e := range f.Entries() {
				fmt.Printf("  %08x offset=%d size=%d\n", e.NameHash, e.Offset(), e.Size())
			}
		case *archive.Trunk:
			fmt.Printf("type: trunk, %d sections\n", len(f.Sections()))
			for _, s := range f.Sections() {
				fmt.Printf("  %08x offset=%d size=%d\n", s.NameHash, f.DataOffset(s.Offset), s.Size)
			}
			if ut, err := f.UniqueTexture(); err == nil {
				fmt.Printf("  unique textures: %d\n", len(ut.Textures))
			}
		case *archive.ShaderPrograms:
			fmt.Printf("type: shader programs, %d programs\n", len(f.Entries()))
		case *archive.Attribute:
			t := f.Tree()
			fmt.Printf("type: attribute tree, version %d, %d root objects\n",
				t.Version, len(t.Root.Objects))
		default:
			fmt.Println("type: raw")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
