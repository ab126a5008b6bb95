package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/noiretools/noirefs/internal/vpath"
)

var catCmd = &cobra.Command{
	Use:   "cat <file>",
	Short: "write a file's bytes to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := openFS()
		if err != nil {
			return err
		}
		defer fs.Close()

		s, err := fs.OpenStream(vpath.Path(args[0]).Normalize())
		if err != nil {
			return err
		}
		defer s.Close()
		_, err = io.Copy(os.Stdout, io.LimitReader(s, s.Size()))
		return err
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
