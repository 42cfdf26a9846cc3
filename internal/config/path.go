package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	envConfigDir = "FLIGHTDESK_CONFIG_DIR"
	appName      = "flightdesk"
)

func Dir() string {
	if override := os.Getenv(envConfigDir); override != "" {
		return override
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName)
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

func HistoryPath() string {
	return filepath.Join(Dir(), "history.json")
}

func LogPath() string {
	return filepath.Join(Dir(), appName+".log")
}

func SettingsPath() string {
	return filepath.Join(Dir(), "settings.toml")
}
