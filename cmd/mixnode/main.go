/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mixnode",
	Short: "Run a live audio/video mixer node",
	Long: `mixnode hosts one Mixer: it accepts ConsumerSlot connections from
upstream producers, composites them against a scheduled cue/end window, and
forwards a single video and audio stream to whatever subscribes to its
output producers.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
