package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the calvoice application
var rootCmd = &cobra.Command{
	Use:   "calvoice",
	Short: "Webhook adapter between a voice assistant platform and Google Calendar",
	Long: `calvoice lets a voice assistant schedule Google Calendar events on behalf
of a caller who is only known by an opaque call identifier.

It resolves each call back to an authenticated user via one-shot session
tokens, grounds every conversation in the server's notion of "now", and
translates the platform's tool-call webhooks into Calendar API operations.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calvoice version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
