package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"deskcal/internal/store"
)

// NOTE: Load creates a default config file on first run; Save writes
// atomically with 0600 permissions because basic auth credentials may live
// here.

// BasicAuthConfig holds HTTP Basic Auth credentials for the web view/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// ExportConfig controls ICS publishing of the event store.
type ExportConfig struct {
	// Path is where the .ics file is written.
	Path string `yaml:"path" json:"path"`
	// Cron is a cron-style schedule (e.g. "*/30 * * * *") used by `serve`
	// to re-export periodically. Empty disables the scheduled export.
	Cron string `yaml:"cron" json:"cron"`
}

// ImportConfig controls ICS import.
type ImportConfig struct {
	// HorizonDays bounds recurrence expansion: occurrences from today minus
	// HorizonDays up to today plus HorizonDays are imported as plain events.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`
}

// SnapshotConfig controls the headless PNG capture of the month page.
type SnapshotConfig struct {
	Output         string `yaml:"output" json:"output"`
	Width          int    `yaml:"width" json:"width"`
	Height         int    `yaml:"height" json:"height"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Config is the top-level application configuration.
type Config struct {
	// EventsFile is the line-per-event backing file. Relative paths are
	// resolved against the config file's directory.
	EventsFile string `yaml:"events_file" json:"events_file"`

	// LoadMode decides what happens to malformed lines in EventsFile:
	//   - "skip" (default): log and skip the line
	//   - "strict": refuse to load the file
	//   - "stop": keep the lines before the first bad one
	LoadMode string `yaml:"load_mode" json:"load_mode"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Listen is the HTTP listen address for `serve` and `snapshot`.
	Listen string `yaml:"listen" json:"listen"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Export   ExportConfig   `yaml:"export" json:"export"`
	Import   ImportConfig   `yaml:"import" json:"import"`
	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`
}

const (
	defaultEventsFile  = "events.txt"
	defaultListen      = "127.0.0.1:8080"
	defaultHorizonDays = 365
	defaultSnapWidth   = 1280
	defaultSnapHeight  = 960
	defaultSnapTimeout = 30
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		EventsFile: defaultEventsFile,
		LoadMode:   string(store.LoadSkip),
		LogLevel:   "info",
		Listen:     defaultListen,
		BasicAuth:  nil,
		Export: ExportConfig{
			Path: "events.ics",
			Cron: "",
		},
		Import: ImportConfig{HorizonDays: defaultHorizonDays},
		Snapshot: SnapshotConfig{
			Output:         "calendar.png",
			Width:          defaultSnapWidth,
			Height:         defaultSnapHeight,
			TimeoutSeconds: defaultSnapTimeout,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.EventsFile == "" {
		c.EventsFile = defaultEventsFile
	}
	if _, err := store.ParseLoadMode(c.LoadMode); err != nil || c.LoadMode == "" {
		// Unknown value; skipping bad lines is the least surprising.
		c.LoadMode = string(store.LoadSkip)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Export.Path == "" {
		c.Export.Path = "events.ics"
	}
	if c.Import.HorizonDays <= 0 {
		c.Import.HorizonDays = defaultHorizonDays
	}
	if c.Snapshot.Output == "" {
		c.Snapshot.Output = "calendar.png"
	}
	if c.Snapshot.Width <= 0 {
		c.Snapshot.Width = defaultSnapWidth
	}
	if c.Snapshot.Height <= 0 {
		c.Snapshot.Height = defaultSnapHeight
	}
	if c.Snapshot.TimeoutSeconds <= 0 {
		c.Snapshot.TimeoutSeconds = defaultSnapTimeout
	}
}

// ResolvePath makes p absolute relative to the directory of configPath.
func ResolvePath(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directory created) and returned.
//   - Otherwise the YAML is decoded and defaults are filled in.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename, 0600).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".deskcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
