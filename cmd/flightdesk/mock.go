package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
	"github.com/unkn0wn-root/flightdesk/internal/mockapi"
)

func newMockCmd(a *app) *cobra.Command {
	var (
		addr    string
		latency time.Duration
		prefix  string
		users   []string
	)
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve an in-memory flight-system backend",
		Long: heredoc.Doc(`
			Serve every flight-system route from memory with sample flights,
			seats and reviews. Accounts can be seeded with --user; others can
			register through the API. --latency delays every response, which is
			handy for watching client timeouts.
		`),
		Example: heredoc.Doc(`
			flightdesk mock --addr 127.0.0.1:8080 --user alice:secret
			flightdesk --base-url http://127.0.0.1:8080/v1
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []mockapi.Option{
				mockapi.WithLogger(a.log.Named("mock")),
				mockapi.WithLatency(latency),
				mockapi.WithPrefix(prefix),
			}
			for _, u := range users {
				name, pass, ok := strings.Cut(u, ":")
				if !ok || name == "" {
					return errdef.New(errdef.CodeConfig, "--user expects USER:PASSWORD, got %q", u)
				}
				opts = append(opts, mockapi.WithUser(name, pass))
			}
			srv := mockapi.New(opts...)

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return errdef.Wrap(errdef.CodeTransport, err, "listen on %s", addr)
			}
			fmt.Fprintf(a.errOut, "serving mock flight API at http://%s%s\n", ln.Addr(), srv.Prefix())
			return serve(cmd.Context(), a.log, &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().DurationVar(&latency, "latency", 0, "Artificial delay before every response")
	cmd.Flags().StringVar(&prefix, "prefix", mockapi.DefaultPrefix, "Path prefix for all routes")
	cmd.Flags().StringArrayVar(&users, "user", []string{"demo:demo"}, "Seed account USER:PASSWORD; repeatable")
	return cmd
}

// serve runs until ctx ends, then drains connections.
func serve(ctx context.Context, log *zap.Logger, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Info("mock server shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return errdef.Wrap(errdef.CodeTransport, err, "shutdown mock server")
	}
	return nil
}
