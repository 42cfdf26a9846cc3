package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
)

type SettingsFormat string

const (
	SettingsFormatTOML SettingsFormat = "toml"
	SettingsFormatJSON SettingsFormat = "json"
)

const (
	envBaseURL = "FLIGHTDESK_BASE_URL"
	envTimeout = "FLIGHTDESK_TIMEOUT"
)

const (
	DefaultTimeout           = 30 * time.Second
	DefaultHistoryMaxEntries = 500
)

// SettingsHandle remembers where settings came from so a save goes back to
// the same file in the same format.
type SettingsHandle struct {
	Path   string
	Format SettingsFormat
}

type Settings struct {
	API       APISettings       `toml:"api" json:"api"`
	Log       LogSettings       `toml:"log" json:"log"`
	History   HistorySettings   `toml:"history" json:"history"`
	Telemetry TelemetrySettings `toml:"telemetry" json:"telemetry"`
}

type APISettings struct {
	BaseURL    string   `toml:"base_url,omitempty" json:"base_url,omitempty"`
	Timeout    string   `toml:"timeout,omitempty" json:"timeout,omitempty"`
	Insecure   bool     `toml:"insecure,omitempty" json:"insecure,omitempty"`
	Proxy      string   `toml:"proxy,omitempty" json:"proxy,omitempty"`
	RootCAs    []string `toml:"root_cas,omitempty" json:"root_cas,omitempty"`
	RootMode   string   `toml:"root_mode,omitempty" json:"root_mode,omitempty"`
	ClientCert string   `toml:"client_cert,omitempty" json:"client_cert,omitempty"`
	ClientKey  string   `toml:"client_key,omitempty" json:"client_key,omitempty"`
}

type LogSettings struct {
	Level      string `toml:"level,omitempty" json:"level,omitempty"`
	Format     string `toml:"format,omitempty" json:"format,omitempty"`
	File       string `toml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `toml:"max_size_mb,omitempty" json:"max_size_mb,omitempty"`
	MaxBackups int    `toml:"max_backups,omitempty" json:"max_backups,omitempty"`
}

type HistorySettings struct {
	MaxEntries int  `toml:"max_entries,omitempty" json:"max_entries,omitempty"`
	Disabled   bool `toml:"disabled,omitempty" json:"disabled,omitempty"`
}

type TelemetrySettings struct {
	Endpoint string `toml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Insecure bool   `toml:"insecure,omitempty" json:"insecure,omitempty"`
	Service  string `toml:"service,omitempty" json:"service,omitempty"`
}

// RequestTimeout parses the configured timeout, falling back to the default
// when unset or invalid.
func (a APISettings) RequestTimeout() time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(a.Timeout)); err == nil && d > 0 {
		return d
	}
	return DefaultTimeout
}

func (h HistorySettings) Limit() int {
	if h.MaxEntries > 0 {
		return h.MaxEntries
	}
	return DefaultHistoryMaxEntries
}

// LogFile is the configured log path or the default under Dir.
func (l LogSettings) LogFile() string {
	if f := strings.TrimSpace(l.File); f != "" {
		return f
	}
	return LogPath()
}

func LoadSettings() (Settings, SettingsHandle, error) {
	return LoadSettingsFrom(Dir())
}

// LoadSettingsFrom reads settings.toml, or settings.json when no TOML file
// exists. A missing file is not an error.
func LoadSettingsFrom(dir string) (Settings, SettingsHandle, error) {
	candidates := []SettingsHandle{
		{Path: filepath.Join(dir, "settings.toml"), Format: SettingsFormatTOML},
		{Path: filepath.Join(dir, "settings.json"), Format: SettingsFormatJSON},
	}
	for _, h := range candidates {
		data, err := os.ReadFile(h.Path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Settings{}, candidates[0], errdef.Wrap(errdef.CodeFilesystem, err, "read settings %s", h.Path)
		}
		var s Settings
		if err := decodeSettings(data, h.Format, &s); err != nil {
			return Settings{}, h, errdef.Wrap(errdef.CodeConfig, err, "parse settings %s", h.Path)
		}
		return s, h, nil
	}
	return Settings{}, candidates[0], nil
}

func decodeSettings(data []byte, format SettingsFormat, s *Settings) error {
	switch format {
	case SettingsFormatTOML:
		return toml.Unmarshal(data, s)
	case SettingsFormatJSON:
		return json.Unmarshal(data, s)
	}
	return errdef.New(errdef.CodeConfig, "unsupported settings format %q", format)
}

// SaveSettings writes s to the handle's path through a temp file rename.
func SaveSettings(h SettingsHandle, s Settings) error {
	var (
		data []byte
		err  error
	)
	switch h.Format {
	case SettingsFormatTOML:
		data, err = toml.Marshal(s)
	case SettingsFormatJSON:
		data, err = json.MarshalIndent(s, "", "  ")
	default:
		return errdef.New(errdef.CodeConfig, "unsupported settings format %q", h.Format)
	}
	if err != nil {
		return errdef.Wrap(errdef.CodeConfig, err, "encode settings")
	}
	if err := os.MkdirAll(filepath.Dir(h.Path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create settings dir")
	}
	tmp := h.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write settings")
	}
	if err := os.Rename(tmp, h.Path); err != nil {
		_ = os.Remove(tmp)
		return errdef.Wrap(errdef.CodeFilesystem, err, "replace settings")
	}
	return nil
}

// ApplyEnv overlays FLIGHTDESK_BASE_URL and FLIGHTDESK_TIMEOUT. An invalid
// timeout is reported and leaves the file value in place.
func (s *Settings) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	if v := strings.TrimSpace(getenv(envBaseURL)); v != "" {
		s.API.BaseURL = v
	}
	if v := strings.TrimSpace(getenv(envTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return errdef.New(errdef.CodeConfig, "invalid %s %q", envTimeout, v)
		}
		s.API.Timeout = d.String()
	}
	return nil
}
