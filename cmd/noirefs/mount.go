package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/noiretools/noirefs/internal/fusefs"
)

var mountCmd = &cobra.Command{
	Use:   "mount <mountpoint>",
	Short: "serve the stitched namespace as a read-only FUSE mount",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := openFS()
		if err != nil {
			return err
		}
		defer fs.Close()

		srv, err := fusefs.New(fs)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Mount(ctx, args[0], "noirefs")
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)
}
