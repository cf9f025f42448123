package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "smootie",
	Short: "Smootie - voice-controlled persona chat backend",
	Long: `Smootie serves a streaming persona chat API for a video avatar
front-end: chat turns stream over SSE, and the model can trigger
pre-recorded video actions through function calling. Speech
recognition and synthesis endpoints round out the voice loop.

Running smootie without arguments starts the HTTP server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
