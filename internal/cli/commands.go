// Package cli implements the maas command line tool. Commands are thin
// glue over the bones, viscera, and profiles packages; no business logic
// lives here.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/canonical/gomaas/internal/common/logtrace"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// Global flags
	jsonOutput  bool
	verbose     bool
	insecure    bool
	profileName string
)

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "maas [command] [flags]",
	Short: "maas CLI - a command line client for the MAAS Web API",
	Long: `maas CLI talks to a MAAS region controller through its Web API.
Log in once to save a named profile, then issue API calls through it.

Examples:
  # Log in and save a profile
  maas login prod http://maas.example.com:5240/MAAS/ --username admin

  # List the API handlers the server offers
  maas describe

  # Call an API action directly
  maas api Machines read

  # Re-fetch the cached API description
  maas refresh`,
	PersistentPreRun: preRunHandlePersistents,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "Profile to use instead of the default")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and responses")
	rootCmd.PersistentFlags().BoolVarP(&insecure, "insecure", "k", false, "Skip TLS certificate verification")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newProfilesCmd())
	rootCmd.AddCommand(newDescribeCmd())
	rootCmd.AddCommand(newAPICmd())
	rootCmd.AddCommand(newRefreshCmd())
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()
	if err != nil {
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(map[string]string{"error": err.Error()})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// preRunHandlePersistents applies environment overrides and configures
// logging before command execution. A .env file in the working directory
// can set MAAS_PROFILE without flags.
func preRunHandlePersistents(cmd *cobra.Command, args []string) {
	godotenv.Load()
	if profileName == "" {
		profileName = os.Getenv("MAAS_PROFILE")
	}
	logtrace.InitLogger(verbose)
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the maas CLI",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{"version": getCLIVersion()})
			} else {
				cmd.Printf("maas CLI %s\n", getCLIVersion())
			}
		},
	}
}

// printJSON prints the given value as JSON to stdout
func printJSON(data interface{}) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jsonData))
}

// getCLIVersion returns the current CLI version
func getCLIVersion() string {
	return "v0.1.0"
}
