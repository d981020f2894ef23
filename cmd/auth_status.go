package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"stockdesk/internal/cli"
	"stockdesk/internal/session"
)

// Status-specific flags
var (
	statusVerify bool
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Long: `Show whether a session is stored and who it belongs to.

With --verify the profile is fetched from the API, which renews the session
if the access credential has expired.`,
	Args: cobra.NoArgs,
	RunE: runAuthStatus,
}

func init() {
	authStatusCmd.Flags().BoolVar(&statusVerify, "verify", false, "Check the session against the API")
}

// authStatus is the structured form of the status output.
type authStatus struct {
	Endpoint    string            `json:"endpoint"`
	State       string            `json:"state"`
	Persisted   bool              `json:"persisted"`
	SessionFile string            `json:"session_file,omitempty"`
	Identity    *session.Identity `json:"identity,omitempty"`
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	services := application.Services()
	if statusVerify && services.Session.Status() == session.StateAuthenticated {
		err := cli.WithSpinner(rootFlags.Quiet, "Verifying session...", func() error {
			return services.Session.RefreshProfile(cmd.Context())
		})
		if err != nil {
			return commandError(application, err)
		}
	}

	status := authStatus{
		Endpoint:  application.Config().API.Endpoint,
		State:     services.Session.Status().String(),
		Persisted: services.Store.FileMode(),
		Identity:  services.Session.CurrentIdentity(),
	}
	if status.Persisted {
		status.SessionFile = filepath.Join(services.Store.StorageDir(), session.SessionFileName)
	}

	printer, err := newPrinter(cmd, application)
	if err != nil {
		return err
	}
	if printer.Structured() || printer.Format() == cli.OutputFormatGoTemplate {
		return printer.PrintValue(status)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Stock API")
	fmt.Fprintf(out, "  Endpoint:  %s\n", status.Endpoint)
	if status.Persisted {
		fmt.Fprintf(out, "  Session:   %s\n", status.SessionFile)
	}
	if services.Session.Status() != session.StateAuthenticated {
		fmt.Fprintf(out, "  Status:    %s\n", text.FgYellow.Sprint("Not logged in"))
		fmt.Fprintln(out, "\nRun 'stockdesk auth login' to log in.")
		return nil
	}
	fmt.Fprintf(out, "  Status:    %s\n", text.FgGreen.Sprint("Authenticated"))
	printIdentity(cmd, status.Identity)
	return nil
}
