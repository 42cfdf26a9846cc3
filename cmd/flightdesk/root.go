package main

import (
	"strings"

	"github.com/MakeNowJust/heredoc"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/flightdesk/internal/ui"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "flightdesk",
		Short: "Console and CLI for the flight-system API",
		Long: heredoc.Doc(`
			flightdesk talks to the flight-system REST API.

			Run without arguments for the interactive console, or use a subcommand
			for one-shot calls. Settings are read from settings.toml in the config
			directory (override with FLIGHTDESK_CONFIG_DIR); FLIGHTDESK_BASE_URL and
			FLIGHTDESK_TIMEOUT override the file and flags override both.
		`),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context(), cmd.Name() == "mock")
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runConsole(cmd)
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetVersionTemplate("flightdesk {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&a.baseURL, "base-url", "", "API root, e.g. https://api.flightsystem.com/v1")
	flags.DurationVar(&a.timeout, "timeout", 0, "Per-request deadline (default 30s)")
	flags.BoolVar(&a.insecure, "insecure", false, "Skip TLS certificate verification")
	flags.StringVar(&a.proxy, "proxy", "", "HTTP proxy URL")
	flags.StringArrayVar(&a.sets, "set", nil, "Session setting KEY=VALUE (base-url, token, user-id); repeatable")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Copy logs to stderr")
	flags.BoolVar(&a.noHistory, "no-history", false, "Do not record calls in history")

	root.AddCommand(
		newCallCmd(a),
		newRawCmd(a),
		newHistoryCmd(a),
		newMockCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) runConsole(cmd *cobra.Command) error {
	client, err := a.connect()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	model := ui.New(ui.Config{
		Client:   client,
		Settings: a.applier,
		Logger:   a.log.Named("ui"),
		Profile:  termenv.EnvColorProfile(),
		Context:  ctx,
		Now:      a.now,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	return err
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			var b strings.Builder
			b.WriteString("flightdesk " + version + "\n")
			b.WriteString("  commit: " + commit + "\n")
			b.WriteString("  built:  " + date + "\n")
			_, _ = a.out.Write([]byte(b.String()))
		},
	}
}
