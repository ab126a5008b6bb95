package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noiretools/noirefs/internal/nhash"
)

var hashCmd = &cobra.Command{
	Use:   "hash <name> ...",
	Short: "print the name hashes the archive formats key entries by",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, s := range args {
			fmt.Printf("%08x %08x %s\n", nhash.CRC32(s), nhash.CRC32Lower(s), s)
		}
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
}
