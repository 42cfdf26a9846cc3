package main

import (
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/flightdesk/internal/config"
	"github.com/unkn0wn-root/flightdesk/internal/errdef"
	"github.com/unkn0wn-root/flightdesk/internal/settings"
)

// configKeys are the settings file entries "config set" can change.
var configKeys = []string{
	"api.base-url", "api.timeout", "api.insecure", "api.proxy",
	"log.level", "log.format", "log.file",
	"history.max-entries", "history.disabled",
	"telemetry.endpoint", "telemetry.insecure", "telemetry.service",
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change the settings file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the settings file path",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				_, err := a.out.Write([]byte(a.handle.Path + "\n"))
				return err
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings as TOML",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				data, err := toml.Marshal(a.cfg)
				if err != nil {
					return errdef.Wrap(errdef.CodeConfig, err, "encode settings")
				}
				_, err = a.out.Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Write one setting, e.g. api.timeout 10s",
			Long:  "Write one setting to the settings file. Keys: " + strings.Join(configKeys, ", "),
			Args:  cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				// Start from the file alone so flag and env overrides are not persisted.
				stored, handle, err := config.LoadSettings()
				if err != nil {
					return err
				}
				if err := settings.New(fileHandler(&stored)).Apply(args[0], args[1]); err != nil {
					return err
				}
				if err := config.SaveSettings(handle, stored); err != nil {
					return err
				}
				_, err = a.out.Write([]byte("saved " + handle.Path + "\n"))
				return err
			},
		},
	)
	return cmd
}

func fileHandler(s *config.Settings) settings.Handler {
	return settings.Handler{
		Match: settings.ExactMatcher(configKeys...),
		Apply: func(key, val string) error {
			val = strings.TrimSpace(val)
			switch key {
			case "api.base-url":
				s.API.BaseURL = val
			case "api.timeout":
				d, err := time.ParseDuration(val)
				if err != nil || d <= 0 {
					return errdef.New(errdef.CodeConfig, "invalid timeout %q", val)
				}
				s.API.Timeout = d.String()
			case "api.insecure":
				return parseBoolInto(&s.API.Insecure, key, val)
			case "api.proxy":
				s.API.Proxy = val
			case "log.level":
				s.Log.Level = val
			case "log.format":
				s.Log.Format = val
			case "log.file":
				s.Log.File = val
			case "history.max-entries":
				n, err := strconv.Atoi(val)
				if err != nil || n < 0 {
					return errdef.New(errdef.CodeConfig, "invalid max entries %q", val)
				}
				s.History.MaxEntries = n
			case "history.disabled":
				return parseBoolInto(&s.History.Disabled, key, val)
			case "telemetry.endpoint":
				s.Telemetry.Endpoint = val
			case "telemetry.insecure":
				return parseBoolInto(&s.Telemetry.Insecure, key, val)
			case "telemetry.service":
				s.Telemetry.Service = val
			}
			return nil
		},
	}
}

func parseBoolInto(dst *bool, key, val string) error {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return errdef.New(errdef.CodeConfig, "%s must be true or false, got %q", key, val)
	}
	*dst = b
	return nil
}
