package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"tabletrack/server/engine"
)

// Session config document filenames, looked up under the config directory.
const (
	profileFile = "count_profile.json"
	rulesFile   = "rules.json"
	riskFile    = "risk.json"
	zonesFile   = "zones.json"
)

// SessionConfig bundles every validated session input document.
type SessionConfig struct {
	Profile engine.CountProfile
	Rules   engine.RulesConfig
	Risk    engine.RiskModel
	Zones   engine.ZoneMap
}

// LoadSessionConfig reads and validates the session documents from dir.
// Any malformed or missing required document is a ConfigError; zones.json is
// optional and falls back to the default seat_N layout.
func LoadSessionConfig(dir string) (SessionConfig, error) {
	var cfg SessionConfig
	if err := loadJSON(filepath.Join(dir, profileFile), &cfg.Profile); err != nil {
		return SessionConfig{}, err
	}
	if err := cfg.Profile.Validate(); err != nil {
		return SessionConfig{}, err
	}
	if err := loadJSON(filepath.Join(dir, rulesFile), &cfg.Rules); err != nil {
		return SessionConfig{}, err
	}
	if err := cfg.Rules.Validate(); err != nil {
		return SessionConfig{}, err
	}
	if err := loadJSON(filepath.Join(dir, riskFile), &cfg.Risk); err != nil {
		return SessionConfig{}, err
	}
	if err := cfg.Risk.Validate(); err != nil {
		return SessionConfig{}, err
	}

	zonesPath := filepath.Join(dir, zonesFile)
	if err := loadJSON(zonesPath, &cfg.Zones); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return SessionConfig{}, err
		}
		cfg.Zones = engine.DefaultZoneMap()
	}
	if cfg.Zones.SeatPrefix == "" && len(cfg.Zones.Seats) == 0 {
		cfg.Zones = engine.DefaultZoneMap()
	}
	if err := cfg.Zones.Validate(); err != nil {
		return SessionConfig{}, err
	}
	return cfg, nil
}

func loadJSON(path string, target any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s: %w", engine.ErrConfig, path, err)
		}
		return fmt.Errorf("%w: read %s: %v", engine.ErrConfig, path, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: parse %s: %v", engine.ErrConfig, path, err)
	}
	return nil
}
