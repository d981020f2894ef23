package cmd

import (
	"github.com/spf13/cobra"

	"stockdesk/internal/cli"
	"stockdesk/internal/console"
)

// Register-specific flags
var registration console.Registration

// authRegisterCmd represents the auth register command
var authRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long: `Create an account on the stock API. The password is prompted for unless
STOCKDESK_PASSWORD is set. Registering does not log you in.

Examples:
  stockdesk auth register -u bob --email bob@example.com --company "Bob's Bolts"`,
	Args: cobra.NoArgs,
	RunE: runAuthRegister,
}

func init() {
	authRegisterCmd.Flags().StringVarP(&registration.Username, "username", "u", "", "Username for the new account")
	authRegisterCmd.Flags().StringVar(&registration.Email, "email", "", "Email address")
	authRegisterCmd.Flags().StringVar(&registration.FirstName, "first-name", "", "First name")
	authRegisterCmd.Flags().StringVar(&registration.LastName, "last-name", "", "Last name")
	authRegisterCmd.Flags().StringVar(&registration.CompanyName, "company", "", "Company to create for the account")
}

func runAuthRegister(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	prompt := cli.NewCredentialPrompt(cmd.InOrStdin(), cmd.ErrOrStderr())
	creds, err := prompt.Complete(console.Credentials{Identifier: registration.Username})
	if err != nil {
		return err
	}

	reg := registration
	reg.Username = creds.Identifier
	reg.Password = creds.Secret

	ok, err := application.Services().Session.Register(cmd.Context(), reg)
	if !ok {
		// Field errors have been shown by the session layer.
		return &cli.ReportedError{Err: commandError(application, err)}
	}
	return nil
}
