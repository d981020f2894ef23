package cmd

import (
	"context"
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"stockdesk/internal/cli"
)

const releaseRepository = "stockdesk/stockdesk"

// releaseUpdater is the part of *selfupdate.Updater the command uses.
type releaseUpdater interface {
	DetectLatest(ctx context.Context, repository selfupdate.Repository) (*selfupdate.Release, bool, error)
	UpdateTo(ctx context.Context, release *selfupdate.Release, cmdPath string) error
}

// newReleaseUpdater is replaced in tests.
var newReleaseUpdater = func() (releaseUpdater, error) {
	return selfupdate.NewUpdater(selfupdate.Config{})
}

var selfUpdateCheckOnly bool

func newSelfUpdateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "self-update",
		Short: "Update stockdesk to the latest release",
		Long: `Looks up the latest stockdesk release and replaces the running binary
when it is newer. Use --check to only report whether an update exists.`,
		Args: cobra.NoArgs,
		RunE: runSelfUpdate,
	}
	c.Flags().BoolVar(&selfUpdateCheckOnly, "check", false, "Only report whether a newer release exists")
	return c
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	current := rootCmd.Version
	if current == "" || current == "dev" {
		return fmt.Errorf("cannot self-update a development build")
	}

	updater, err := newReleaseUpdater()
	if err != nil {
		return fmt.Errorf("failed to create updater: %w", err)
	}

	var (
		latest *selfupdate.Release
		found  bool
	)
	err = cli.WithSpinner(rootFlags.Quiet, "Checking for a newer release...", func() error {
		var detectErr error
		latest, found, detectErr = updater.DetectLatest(cmd.Context(), selfupdate.ParseSlug(releaseRepository))
		return detectErr
	})
	if err != nil {
		return fmt.Errorf("failed to look up releases: %w", err)
	}
	if !found {
		return fmt.Errorf("no release of %s found", releaseRepository)
	}

	if !latest.GreaterThan(current) {
		authPrintf(cmd, "stockdesk %s is up to date.\n", current)
		return nil
	}

	authPrintf(cmd, "stockdesk %s is available (current %s, published %s).\n",
		latest.Version(), current, latest.PublishedAt.Format("2006-01-02"))
	if selfUpdateCheckOnly {
		authPrintf(cmd, "Run 'stockdesk self-update' to install it.\n")
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}
	err = cli.WithSpinner(rootFlags.Quiet, fmt.Sprintf("Installing %s...", latest.Version()), func() error {
		return updater.UpdateTo(cmd.Context(), latest, exe)
	})
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	authPrintf(cmd, "Updated %s to %s.\n", exe, latest.Version())
	if latest.ReleaseNotes != "" {
		authPrintf(cmd, "\nRelease notes:\n%s\n", latest.ReleaseNotes)
	}
	return nil
}
