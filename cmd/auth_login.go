package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"stockdesk/internal/cli"
	"stockdesk/internal/console"
	"stockdesk/internal/gateway"
)

// Login-specific flags
var (
	loginUsername string
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the stock API",
	Long: `Log in with a username and password.

Missing values are prompted for; the password is never echoed. For scripts,
set STOCKDESK_PASSWORD or pipe the answers on stdin.

Examples:
  stockdesk auth login
  stockdesk auth login -u ada
  STOCKDESK_PASSWORD=... stockdesk auth login -u ada --endpoint https://stock.example.com`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username to log in as")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	prompt := cli.NewCredentialPrompt(cmd.InOrStdin(), cmd.ErrOrStderr())
	creds, err := prompt.Complete(console.Credentials{Identifier: loginUsername})
	if err != nil {
		return err
	}

	sess := application.Services().Session
	var ok bool
	err = cli.WithSpinner(rootFlags.Quiet, "Logging in...", func() error {
		var loginErr error
		ok, loginErr = sess.Login(cmd.Context(), creds)
		return loginErr
	})
	if !ok {
		// The session layer has already notified the user.
		return &cli.ReportedError{Err: loginError(application.Config().API.Endpoint, err)}
	}

	authPrintf(cmd, "Logged in to %s\n", application.Config().API.Endpoint)
	printIdentity(cmd, sess.CurrentIdentity())
	return nil
}

// loginError classifies a failed login for the exit code.
func loginError(endpoint string, err error) error {
	if errors.Is(err, &gateway.RemoteRejected{}) || errors.Is(err, &gateway.ValidationRejected{}) {
		return &cli.AuthFailedError{Endpoint: endpoint, Reason: err}
	}
	return cli.TranslateError(err, endpoint)
}
