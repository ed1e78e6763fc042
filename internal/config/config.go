// Package config loads the positioner's runtime configuration: a YAML file over defaults,
// the settings INI the in-game configuration menu writes, and POSITIONER_* environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
)

const ProjectName = "AAFDynamicPositioner"

type Config struct {
	MenuName        string `yaml:"menu_name"        env:"MENU_NAME"`
	DataDir         string `yaml:"data_dir"         env:"DATA_DIR"`
	TranslationsDir string `yaml:"translations_dir" env:"TRANSLATIONS_DIR"`
	SettingsINI     string `yaml:"settings_ini"     env:"SETTINGS_INI"`
	Locale          string `yaml:"locale"           env:"LOCALE"`
	DefaultLocale   string `yaml:"default_locale"   env:"DEFAULT_LOCALE"`
	Listen          string `yaml:"listen"           env:"LISTEN"`
	JournalDir      string `yaml:"journal_dir"      env:"JOURNAL_DIR"`
	IndexDB         string `yaml:"index_db"         env:"INDEX_DB"`

	Highlight HighlightSpec `yaml:"highlight" envPrefix:"HIGHLIGHT_"`
	Settings  SettingsSpec  `yaml:"settings"  envPrefix:"SETTINGS_"`
}

// HighlightSpec names the effects the host script applies to the selected actor.
type HighlightSpec struct {
	Plugin    string `yaml:"plugin"    env:"PLUGIN"`
	Movable   string `yaml:"movable"   env:"MOVABLE"`
	Immovable string `yaml:"immovable" env:"IMMOVABLE"`
}

type SettingsSpec struct {
	SeparatePlayerOffset bool   `yaml:"separate_player_offset" env:"SEPARATE_PLAYER_OFFSET"`
	SyncStandInScale     bool   `yaml:"sync_stand_in_scale"    env:"SYNC_STAND_IN_SCALE"`
	PlayerMode           string `yaml:"player_mode"            env:"PLAYER_MODE"`
	NPCMode              string `yaml:"npc_mode"               env:"NPC_MODE"`
}

func Defaults() Config {
	return Config{
		MenuName:        ProjectName + "Menu",
		DataDir:         filepath.Join("Data", "F4SE", "Plugins", ProjectName),
		TranslationsDir: filepath.Join("Data", "Interface", "Translations"),
		SettingsINI:     filepath.Join("Data", "MCM", "Settings", ProjectName+".ini"),
		DefaultLocale:   "en",
		Listen:          "127.0.0.1:8090",
		JournalDir:      filepath.Join("data", "journal"),
		IndexDB:         filepath.Join("data", "index", "journal.sqlite"),
		Highlight: HighlightSpec{
			Plugin:    ProjectName + ".esp",
			Movable:   "00000810",
			Immovable: "00000811",
		},
		Settings: SettingsSpec{
			SeparatePlayerOffset: false,
			SyncStandInScale:     true,
			PlayerMode:           "relative",
			NPCMode:              "relative",
		},
	}
}

// Load reads path over Defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.MenuName = strings.TrimSpace(c.MenuName)
	c.Locale = strings.TrimSpace(c.Locale)
	c.DefaultLocale = strings.TrimSpace(c.DefaultLocale)
	if c.DefaultLocale == "" {
		c.DefaultLocale = "en"
	}
	c.Settings.PlayerMode = strings.ToLower(strings.TrimSpace(c.Settings.PlayerMode))
	c.Settings.NPCMode = strings.ToLower(strings.TrimSpace(c.Settings.NPCMode))
	if c.Settings.PlayerMode == "" {
		c.Settings.PlayerMode = "relative"
	}
	if c.Settings.NPCMode == "" {
		c.Settings.NPCMode = "relative"
	}
}

func (c Config) Validate() error {
	if c.MenuName == "" {
		return errors.New("menu_name is required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	if _, err := c.PositionerSettings(); err != nil {
		return err
	}
	for name, v := range map[string]string{"highlight.movable": c.Highlight.Movable, "highlight.immovable": c.Highlight.Immovable} {
		if _, err := ParseFormID(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// PositionerSettings converts the settings block to registry settings.
func (c Config) PositionerSettings() (positioner.Settings, error) {
	pm, err := positioner.ParseMode(c.Settings.PlayerMode)
	if err != nil {
		return positioner.Settings{}, fmt.Errorf("settings.player_mode: %w", err)
	}
	nm, err := positioner.ParseMode(c.Settings.NPCMode)
	if err != nil {
		return positioner.Settings{}, fmt.Errorf("settings.npc_mode: %w", err)
	}
	return positioner.Settings{
		SeparatePlayerOffset: c.Settings.SeparatePlayerOffset,
		SyncStandInScale:     c.Settings.SyncStandInScale,
		PlayerMode:           pm,
		NPCMode:              nm,
	}, nil
}

// ApplyEnv overlays POSITIONER_* environment variables, e.g. POSITIONER_DATA_DIR or
// POSITIONER_SETTINGS_NPC_MODE.
func ApplyEnv(c *Config) error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: "POSITIONER_"}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	c.Normalize()
	return c.Validate()
}

// LoadSettingsINI overlays the [Settings] section of the INI at path onto s. A missing file
// leaves s unchanged. Values that do not parse, or that the registry rejects, are logged and
// skipped.
func LoadSettingsINI(path string, s *positioner.Settings, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Printf("settings ini not found: %s", path)
		return nil
	}
	f, err := ini.LoadSources(ini.LoadOptions{
		InsensitiveSections:     true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return fmt.Errorf("settings ini: %w", err)
	}
	sec := f.Section("Settings")
	for _, name := range []string{
		positioner.SettingSeparatePlayerOffset,
		positioner.SettingSyncStandInScale,
		positioner.SettingPlayerMode,
		positioner.SettingNPCMode,
	} {
		if !sec.HasKey(name) {
			continue
		}
		raw := strings.TrimSpace(sec.Key(name).String())
		if raw == "" {
			continue
		}
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			logger.Printf("settings ini %s=%q: %v", name, raw, err)
			continue
		}
		if err := s.Set(name, float64(v)); err != nil {
			logger.Printf("settings ini: %v", err)
			continue
		}
		logger.Printf("%s: %d", name, v)
	}
	return nil
}

// ParseFormID reads a hexadecimal form id and keeps its low 24 bits, dropping the load
// order byte.
func ParseFormID(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad form id %q", s)
	}
	return uint32(v) & 0xFFFFFF, nil
}
