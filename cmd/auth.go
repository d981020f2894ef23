package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stockdesk/internal/cli"
	"stockdesk/internal/session"
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stockdesk session",
	Long: `Manage the session used by stockdesk commands.

A session is a credential pair plus the profile of the logged in user. It
is stored in the configuration directory and renewed automatically when the
access credential expires.

Examples:
  stockdesk auth login                 # Log in interactively
  stockdesk auth login -u ada          # Log in as ada, prompt for the password
  stockdesk auth status                # Show the current session
  stockdesk auth whoami                # Fetch and show the current profile
  stockdesk auth refresh               # Renew the access credential now
  stockdesk auth logout                # End the session
  stockdesk auth register -u bob       # Create an account`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Long: `Remove the stored session. Logging out twice is not an error.

Other stockdesk processes using the same configuration directory notice the
logout and stop using the session.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogout,
}

// authRefreshCmd represents the auth refresh command
var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Renew the access credential now",
	Long: `Exchange the stored refresh credential for a new access credential.

This happens automatically when a request is rejected, so the command is
mostly useful to check that the session can still be renewed. If the
exchange is rejected the session ends and you have to log in again.`,
	Args: cobra.NoArgs,
	RunE: runAuthRefresh,
}

// authWhoamiCmd represents the auth whoami command
var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	Long: `Fetch the profile of the logged in user from the API and update the
cached identity with it.`,
	Args: cobra.NoArgs,
	RunE: runAuthWhoami,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRefreshCmd)
	authCmd.AddCommand(authWhoamiCmd)
	authCmd.AddCommand(authRegisterCmd)
}

// authPrintf prints progress output unless --quiet is set.
func authPrintf(cmd *cobra.Command, format string, args ...interface{}) {
	if !rootFlags.Quiet {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	services := application.Services()
	if services.Store.AccessToken() == "" && services.Store.RefreshToken() == "" && services.Store.Identity() == nil {
		authPrintf(cmd, "Not logged in.\n")
		return nil
	}
	if err := services.Session.Logout(); err != nil {
		return fmt.Errorf("failed to remove stored session: %w", err)
	}
	authPrintf(cmd, "Logged out of %s\n", application.Config().API.Endpoint)
	return nil
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	client := application.Services().Client
	err = cli.WithSpinner(rootFlags.Quiet, "Renewing session...", func() error {
		return client.Refresh(cmd.Context())
	})
	if err != nil {
		return commandError(application, err)
	}
	authPrintf(cmd, "Session renewed.\n")
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	sess := application.Services().Session
	if sess.Status() == session.StateAnonymous {
		return &cli.AuthRequiredError{Endpoint: application.Config().API.Endpoint}
	}
	if err := sess.RefreshProfile(cmd.Context()); err != nil {
		return commandError(application, err)
	}

	printer, err := newPrinter(cmd, application)
	if err != nil {
		return err
	}
	identity := sess.CurrentIdentity()
	if printer.Structured() || printer.Format() == cli.OutputFormatGoTemplate {
		return printer.PrintValue(identity)
	}
	printIdentity(cmd, identity)
	return nil
}

func printIdentity(cmd *cobra.Command, identity *session.Identity) {
	out := cmd.OutOrStdout()
	if identity == nil {
		fmt.Fprintln(out, "  User:      (unknown)")
		return
	}
	fmt.Fprintf(out, "  User:      %s\n", identity.DisplayName)
	if identity.Email != "" {
		fmt.Fprintf(out, "  Email:     %s\n", identity.Email)
	}
	if identity.Role != "" {
		fmt.Fprintf(out, "  Role:      %s\n", identity.Role)
	}
	if identity.CompanyName != "" {
		fmt.Fprintf(out, "  Company:   %s\n", identity.CompanyName)
	}
}
