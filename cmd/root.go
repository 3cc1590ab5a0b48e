package cmd

import (
	"fmt"
	"log"
	"os"

	"ComfyPortal/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "comfyportal",
	Short: "ComfyPortal is the backend of the internal AI image generation portal.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting ComfyPortal server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
