// Package prefs loads and watches user preferences. Preferences are
// read-only to the operation core; the Provider hands out immutable copies.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const settingsFile = "settings.yaml"

// Preferences are the user-tunable knobs consumed by the confirmation
// policy and the snapshot gate.
type Preferences struct {
	ConfirmInstall      bool
	ConfirmRemove       bool
	CacheVersionsToKeep int
	SnapshotEnabled     bool
	SnapshotTimeout     time.Duration
	// DecisionTimeout bounds how long an update waits for the user's
	// "update anyway" choice after a snapshot failure or timeout.
	DecisionTimeout time.Duration
}

// Defaults returns the preference values used when no settings file exists.
func Defaults() Preferences {
	return Preferences{
		ConfirmInstall:      true,
		ConfirmRemove:       true,
		CacheVersionsToKeep: 1,
		SnapshotEnabled:     false,
		SnapshotTimeout:     30 * time.Second,
		DecisionTimeout:     10 * time.Second,
	}
}

// Dir returns the configuration directory, honoring NEBULA_CONFIG_DIR and
// XDG_CONFIG_HOME before falling back to ~/.config/nebula.
func Dir() (string, error) {
	if custom := os.Getenv("NEBULA_CONFIG_DIR"); custom != "" {
		return custom, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nebula"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "nebula"), nil
}

// Path returns the settings file path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, settingsFile)
}

// Load reads preferences from the settings file in dir. A missing file
// yields the defaults; a malformed file is an error.
func Load(dir string) (Preferences, error) {
	v := newViper(dir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return Defaults(), nil
		}
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return Preferences{}, fmt.Errorf("failed to read settings: %w", err)
	}
	return fromViper(v), nil
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("settings")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix("NEBULA")
	v.AutomaticEnv()

	def := Defaults()
	v.SetDefault("confirm_install", def.ConfirmInstall)
	v.SetDefault("confirm_remove", def.ConfirmRemove)
	v.SetDefault("cache_versions_to_keep", def.CacheVersionsToKeep)
	v.SetDefault("snapshot_enabled", def.SnapshotEnabled)
	v.SetDefault("snapshot_timeout", def.SnapshotTimeout)
	v.SetDefault("decision_timeout", def.DecisionTimeout)
	return v
}

func fromViper(v *viper.Viper) Preferences {
	p := Preferences{
		ConfirmInstall:      v.GetBool("confirm_install"),
		ConfirmRemove:       v.GetBool("confirm_remove"),
		CacheVersionsToKeep: v.GetInt("cache_versions_to_keep"),
		SnapshotEnabled:     v.GetBool("snapshot_enabled"),
		SnapshotTimeout:     v.GetDuration("snapshot_timeout"),
		DecisionTimeout:     v.GetDuration("decision_timeout"),
	}
	return p.normalize()
}

// normalize clamps values into their documented ranges.
func (p Preferences) normalize() Preferences {
	if p.CacheVersionsToKeep < 0 {
		p.CacheVersionsToKeep = 0
	}
	if p.CacheVersionsToKeep > 5 {
		p.CacheVersionsToKeep = 5
	}
	if p.SnapshotTimeout <= 0 {
		p.SnapshotTimeout = Defaults().SnapshotTimeout
	}
	if p.DecisionTimeout <= 0 {
		p.DecisionTimeout = Defaults().DecisionTimeout
	}
	return p
}
