package cmd

import (
	"github.com/spf13/cobra"

	"stockdesk/internal/app"
	"stockdesk/internal/cli"
	"stockdesk/internal/config"
)

// newApplication bootstraps the session stack for one command. The
// configuration file is loaded first and command line flags win over it.
func newApplication(cmd *cobra.Command) (*app.Application, error) {
	cfg, err := config.LoadConfig(rootFlags.ConfigPath)
	if err != nil {
		return nil, err
	}
	rootFlags.Apply(&cfg)

	term := cli.NewTerminal(cmd.ErrOrStderr())
	term.Quiet = rootFlags.Quiet

	appCfg := app.NewConfig(debug, rootFlags.Quiet, rootFlags.ConfigPath)
	appCfg.StockdeskConfig = &cfg
	appCfg.UserAgent = "stockdesk/" + GetVersion()
	appCfg.LogOutput = cmd.ErrOrStderr()
	appCfg.Notifier = term
	appCfg.Navigator = term

	return app.NewApplication(appCfg)
}

// newPrinter builds the printer for the resolved output format.
func newPrinter(cmd *cobra.Command, application *app.Application) (*cli.Printer, error) {
	return cli.NewPrinter(application.Config().Output.Format, rootFlags.NoHeaders, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// commandError maps gateway failures onto errors with CLI guidance.
func commandError(application *app.Application, err error) error {
	return cli.TranslateError(err, application.Config().API.Endpoint)
}
