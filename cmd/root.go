package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stockdesk/internal/cli"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates no usable session is stored.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the credentials were rejected.
	ExitCodeAuthFailed = 3
	// ExitCodeUnavailable indicates the API could not be reached.
	ExitCodeUnavailable = 4
)

var (
	rootFlags cli.CommandFlags
	debug     bool
)

// rootCmd represents the base command for the stockdesk application.
var rootCmd = &cobra.Command{
	Use:   "stockdesk",
	Short: "Manage companies, warehouses and stock from the command line",
	Long: `stockdesk is a console for the stock management API.

It keeps one authenticated session per configuration directory, renews
expired credentials transparently, and prints API collections as tables,
JSON, YAML or go-templates.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	// Errors are printed by Execute so that already reported failures are not repeated.
	SilenceErrors: true,
}

// SetVersion sets the version for the root command.
// This function is called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "stockdesk version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		var reported *cli.ReportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authExpired *cli.AuthExpiredError
	if errors.As(err, &authExpired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	var connErr *cli.ConnectionError
	if errors.As(err, &connErr) {
		return ExitCodeUnavailable
	}

	return ExitCodeError
}

func init() {
	cli.RegisterCommonFlags(rootCmd, &rootFlags)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
