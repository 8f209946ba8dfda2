//go:build !unix

package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <url>",
	Short: "Play a video, playlist or Apple Music URL through an external player",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, _ []string) error {
		return errors.New("the play command needs a unix system")
	},
}
