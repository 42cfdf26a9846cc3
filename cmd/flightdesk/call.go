package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/flightdesk/internal/api"
	"github.com/unkn0wn-root/flightdesk/internal/command"
	"github.com/unkn0wn-root/flightdesk/internal/errdef"
)

// errEventFailed marks a run whose event was already printed as a failure.
var errEventFailed = errors.New("event failed")

type onceOptions struct {
	output string
	login  string
}

func (o *onceOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", formatJSON, "Output format: json or yaml")
	cmd.Flags().StringVar(&o.login, "login", "", "Log in as USER:PASSWORD before the call")
}

func newCallCmd(a *app) *cobra.Command {
	var opts onceOptions
	cmd := &cobra.Command{
		Use:   "call COMMAND [ARGS...]",
		Short: "Issue one operation and print its event",
		Long: heredoc.Docf(`
			Issue a single operation and print the event it produced.

			COMMAND is a console command or an operation name, so "seats" and
			"flight-search" both work. Exits non-zero on errors and timeouts.

			Commands:
			%s
		`, commandTable()),
		Example: heredoc.Doc(`
			flightdesk call status
			flightdesk call --login alice:secret search PEK SHA 2026-10-20
			flightdesk call --set token=T1 --set user-id=u1 bookings -o yaml
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOnce(cmd.Context(), opts, args[0], args[1:])
		},
	}
	opts.bind(cmd)
	return cmd
}

func newRawCmd(a *app) *cobra.Command {
	var opts onceOptions
	cmd := &cobra.Command{
		Use:   "raw METHOD PATH [JSON]",
		Short: "Send an untagged request classified by its path",
		Long: heredoc.Doc(`
			Send a request without naming its operation. The operation is worked
			out from the path, so the event type matches what the named command
			would produce; unmatched paths yield ResponseReceived.
		`),
		Example: heredoc.Doc(`
			flightdesk raw GET /system/status
			flightdesk raw --login alice:secret POST /users/u1/favorites/CA1234
		`),
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOnce(cmd.Context(), opts, "raw", args)
		},
	}
	opts.bind(cmd)
	return cmd
}

func (a *app) runOnce(ctx context.Context, opts onceOptions, name string, args []string) error {
	if err := checkFormat(opts.output); err != nil {
		return err
	}
	client, err := a.connect()
	if err != nil {
		return err
	}
	env := command.Env{Client: client, Now: a.now}

	if opts.login != "" {
		user, pass, ok := strings.Cut(opts.login, ":")
		if !ok || user == "" {
			return errdef.New(errdef.CodeConfig, "--login expects USER:PASSWORD")
		}
		ev, err := issueAndWait(ctx, env, "login", []string{user, pass})
		if err != nil {
			return err
		}
		if _, ok := ev.(api.LoginCompleted); !ok || !client.Session().Authenticated() {
			_ = writeEvent(a.out, ev, opts.output)
			return errEventFailed
		}
	}

	ev, err := issueAndWait(ctx, env, name, args)
	if err != nil {
		return err
	}
	if err := writeEvent(a.out, ev, opts.output); err != nil {
		return err
	}
	if api.Failed(ev) {
		return errEventFailed
	}
	return nil
}

func issueAndWait(ctx context.Context, env command.Env, name string, args []string) (api.Event, error) {
	call, err := command.Run(ctx, env, name, args)
	if err != nil {
		return nil, err
	}
	return call.Wait(ctx)
}

func commandTable() string {
	specs := command.Specs()
	width := 0
	for _, s := range specs {
		if len(s.Usage) > width {
			width = len(s.Usage)
		}
	}
	var b strings.Builder
	for i, s := range specs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  %-*s  %s", width, s.Usage, s.Summary)
	}
	return b.String()
}
