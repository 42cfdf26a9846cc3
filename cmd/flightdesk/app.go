package main

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/flightdesk/internal/api"
	"github.com/unkn0wn-root/flightdesk/internal/config"
	"github.com/unkn0wn-root/flightdesk/internal/history"
	"github.com/unkn0wn-root/flightdesk/internal/logging"
	"github.com/unkn0wn-root/flightdesk/internal/session"
	"github.com/unkn0wn-root/flightdesk/internal/settings"
	"github.com/unkn0wn-root/flightdesk/internal/telemetry"
	"github.com/unkn0wn-root/flightdesk/internal/transport"
)

const shutdownTimeout = 5 * time.Second

// app holds the state shared by every subcommand. setup runs before the
// command, connect only for commands that talk to the API.
type app struct {
	out    io.Writer
	errOut io.Writer
	getenv func(string) string
	now    func() time.Time

	baseURL   string
	timeout   time.Duration
	insecure  bool
	proxy     string
	sets      []string
	logLevel  string
	verbose   bool
	noHistory bool

	cfg      config.Settings
	handle   config.SettingsHandle
	log      *zap.Logger
	flushLog func()
	tracing  *telemetry.Provider
	history  *history.Store
	sess     *session.Session
	applier  settings.Applier
	client   *api.Client
}

func newApp(out, errOut io.Writer, getenv func(string) string) *app {
	return &app{
		out:      out,
		errOut:   errOut,
		getenv:   getenv,
		now:      time.Now,
		log:      zap.NewNop(),
		flushLog: func() {},
	}
}

// setup loads settings, then builds the logger, tracing and history store.
// Flags win over the environment, which wins over the settings file.
func (a *app) setup(ctx context.Context, logToStderr bool) error {
	cfg, handle, err := config.LoadSettings()
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(a.getenv); err != nil {
		return err
	}
	if a.baseURL != "" {
		cfg.API.BaseURL = a.baseURL
	}
	if a.timeout > 0 {
		cfg.API.Timeout = a.timeout.String()
	}
	if a.insecure {
		cfg.API.Insecure = true
	}
	if a.proxy != "" {
		cfg.API.Proxy = a.proxy
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg, a.handle = cfg, handle

	opts := logging.Defaults(cfg.Log.LogFile())
	if cfg.Log.Level != "" {
		opts.Level = cfg.Log.Level
	}
	if cfg.Log.Format != "" {
		opts.Format = cfg.Log.Format
	}
	if cfg.Log.MaxSizeMB > 0 {
		opts.MaxSizeMB = cfg.Log.MaxSizeMB
	}
	if cfg.Log.MaxBackups > 0 {
		opts.MaxBackups = cfg.Log.MaxBackups
	}
	if logToStderr || a.verbose {
		opts.Stderr = a.errOut
	}
	log, flush, err := logging.New(opts)
	if err != nil {
		return err
	}
	a.log, a.flushLog = log, flush
	a.log.Debug("settings loaded", zap.String("path", handle.Path), zap.String("base_url", cfg.API.BaseURL))

	tcfg := telemetry.Resolve(cfg.Telemetry, a.getenv)
	tcfg.Version = version
	tp, err := telemetry.Setup(ctx, tcfg)
	if err != nil {
		a.log.Warn("tracing disabled", zap.Error(err))
		tp = &telemetry.Provider{}
	}
	a.tracing = tp

	if !cfg.History.Disabled && !a.noHistory {
		store := history.NewStore(config.HistoryPath(), cfg.History.Limit())
		if err := store.Load(); err != nil {
			a.log.Warn("history load failed", zap.String("path", store.Path()), zap.Error(err))
		}
		a.history = store
	}
	return nil
}

// connect builds the session and client once. --set pairs are applied to the
// session before the first call.
func (a *app) connect() (*api.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	doer, err := transport.New(transport.Options{
		InsecureSkipVerify: a.cfg.API.Insecure,
		ProxyURL:           a.cfg.API.Proxy,
		RootCAs:            a.cfg.API.RootCAs,
		RootMode:           transport.RootMode(a.cfg.API.RootMode),
		ClientCert:         a.cfg.API.ClientCert,
		ClientKey:          a.cfg.API.ClientKey,
		BaseDir:            config.Dir(),
	})
	if err != nil {
		return nil, err
	}

	a.sess = session.New(a.cfg.API.BaseURL)
	a.applier = settings.New(settings.SessionHandler(a.sess))
	pairs, err := settings.ParsePairs(a.sets)
	if err != nil {
		return nil, err
	}
	for k, v := range pairs {
		if err := a.applier.Apply(k, v); err != nil {
			return nil, err
		}
	}

	opts := []api.Option{
		api.WithLogger(a.log.Named("api")),
		api.WithTimeout(a.cfg.API.RequestTimeout()),
		api.WithTracer(a.tracing.Tracer("github.com/unkn0wn-root/flightdesk")),
	}
	if a.history != nil {
		rec := history.NewRecorder(a.history, a.log.Named("history"), a.now)
		opts = append(opts, api.WithHandler(rec.Handle))
	}
	a.client = api.New(a.sess, doer, opts...)
	return a.client, nil
}

func (a *app) teardown() {
	if a.client != nil {
		_ = a.client.Close()
		a.client = nil
	}
	if a.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.tracing.Shutdown(ctx); err != nil {
			a.log.Warn("tracing shutdown failed", zap.Error(err))
		}
		cancel()
	}
	a.flushLog()
}
