package telemetry

import (
	"strings"
	"time"

	"github.com/unkn0wn-root/flightdesk/internal/config"
)

const (
	envPrefix      = "FLIGHTDESK_TRACE_OTEL_"
	envEndpoint    = envPrefix + "ENDPOINT"
	envInsecure    = envPrefix + "INSECURE"
	envHeaders     = envPrefix + "HEADERS"
	envService     = envPrefix + "SERVICE"
	envDialTimeout = envPrefix + "TIMEOUT"
)

type Config struct {
	Endpoint    string
	Insecure    bool
	Headers     map[string]string
	ServiceName string
	Version     string
	DialTimeout time.Duration
}

func Default() Config {
	return Config{
		ServiceName: "flightdesk",
		DialTimeout: 5 * time.Second,
	}
}

// Enabled reports whether an exporter endpoint is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// Resolve starts from the settings file section and lets the environment win.
func Resolve(s config.TelemetrySettings, getenv func(string) string) Config {
	cfg := Default()
	if v := strings.TrimSpace(s.Endpoint); v != "" {
		cfg.Endpoint = v
	}
	cfg.Insecure = s.Insecure
	if v := strings.TrimSpace(s.Service); v != "" {
		cfg.ServiceName = v
	}
	return overlayEnv(cfg, getenv)
}

func overlayEnv(cfg Config, getenv func(string) string) Config {
	if getenv == nil {
		return cfg
	}
	if val := strings.TrimSpace(getenv(envEndpoint)); val != "" {
		cfg.Endpoint = val
	}
	if val := strings.TrimSpace(getenv(envInsecure)); val != "" {
		if parsed, ok := parseBool(val); ok {
			cfg.Insecure = parsed
		}
	}
	if val := strings.TrimSpace(getenv(envService)); val != "" {
		cfg.ServiceName = val
	}
	if val := strings.TrimSpace(getenv(envDialTimeout)); val != "" {
		if dur, err := time.ParseDuration(val); err == nil && dur > 0 {
			cfg.DialTimeout = dur
		}
	}
	if spec := strings.TrimSpace(getenv(envHeaders)); spec != "" {
		cfg.Headers = ParseHeaders(spec)
	}
	return cfg
}

// ParseHeaders converts comma separated key=value pairs into a header map.
// Entries without a key are skipped; nil is returned when nothing remains.
func ParseHeaders(spec string) map[string]string {
	headers := make(map[string]string)
	for _, entry := range strings.Split(spec, ",") {
		key, value, _ := strings.Cut(strings.TrimSpace(entry), "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func parseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
