package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/tractionhq/traction/shared"
)

const configFileName = "config.yaml"

// Dispositions a session close may apply to tasks left open.
const (
	DispositionAbandon = "abandon"
	DispositionDefer   = "defer"
)

// Duration wraps time.Duration so YAML values like "30m" or "1h" parse.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type EscalationConfig struct {
	PatternAfter        Duration `yaml:"pattern_after"`
	AccountabilityAfter Duration `yaml:"accountability_after"`
	SweepInterval       Duration `yaml:"sweep_interval"`
}

type ClosureConfig struct {
	// DefaultDisposition is applied to open tasks that get no explicit
	// disposition at session close. Either "abandon" or "defer".
	DefaultDisposition string `yaml:"default_disposition"`
}

type ReportConfig struct {
	StreakThreshold float64 `yaml:"streak_threshold"`
}

type ServerConfig struct {
	Listen      string `yaml:"listen"`
	RequireAuth bool   `yaml:"require_auth"`
}

type AnalyticsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
}

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Escalation EscalationConfig `yaml:"escalation"`
	Closure    ClosureConfig    `yaml:"closure"`
	Report     ReportConfig     `yaml:"report"`
	Server     ServerConfig     `yaml:"server"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
}

func Default(userInfo shared.UserInfo) (*Config, error) {
	dataDir, err := userInfo.TractionDataDir()
	if err != nil {
		return nil, err
	}

	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir, "traction.db"),
		},
		Escalation: EscalationConfig{
			PatternAfter:        Duration(30 * time.Minute),
			AccountabilityAfter: Duration(60 * time.Minute),
			SweepInterval:       Duration(5 * time.Minute),
		},
		Closure: ClosureConfig{
			DefaultDisposition: DispositionAbandon,
		},
		Report: ReportConfig{
			StreakThreshold: 0.8,
		},
		Server: ServerConfig{
			Listen:      "127.0.0.1:7618",
			RequireAuth: false,
		},
		Analytics: AnalyticsConfig{
			Endpoint: "https://us.i.posthog.com",
		},
	}, nil
}

func (c *Config) Validate() error {
	if c.Escalation.PatternAfter <= 0 {
		return fmt.Errorf("escalation.pattern_after must be positive")
	}
	if c.Escalation.AccountabilityAfter <= c.Escalation.PatternAfter {
		return fmt.Errorf("escalation.accountability_after must be greater than pattern_after")
	}
	if c.Closure.DefaultDisposition != DispositionAbandon && c.Closure.DefaultDisposition != DispositionDefer {
		return fmt.Errorf("closure.default_disposition must be %q or %q", DispositionAbandon, DispositionDefer)
	}
	if c.Report.StreakThreshold < 0 || c.Report.StreakThreshold > 1 {
		return fmt.Errorf("report.streak_threshold must be between 0 and 1")
	}
	return nil
}

// Store reads and writes the config file in the user's config directory.
type Store struct {
	fs       *afero.Afero
	userInfo shared.UserInfo
}

func NewStore(fs *afero.Afero, userInfo shared.UserInfo) *Store {
	return &Store{fs: fs, userInfo: userInfo}
}

// Load returns the persisted config merged over defaults. A missing file is
// not an error; defaults are returned.
func (s *Store) Load() (*Config, error) {
	cfg, err := Default(s.userInfo)
	if err != nil {
		return nil, err
	}

	configDir, err := s.userInfo.TractionConfigDir()
	if err != nil {
		return nil, err
	}

	configFile := filepath.Join(configDir, configFileName)
	exists, err := s.fs.Exists(configFile)
	if err != nil {
		return nil, err
	}

	if exists {
		content, err := s.fs.ReadFile(configFile)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configFile, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overlays TRACTION_* environment variables on the loaded config.
// Env wins over the file, the file wins over defaults.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TRACTION_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TRACTION_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("TRACTION_REQUIRE_AUTH"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.Server.RequireAuth = parsed
		}
	}
	if v := os.Getenv("TRACTION_DEFAULT_DISPOSITION"); v != "" {
		cfg.Closure.DefaultDisposition = v
	}
	if v := os.Getenv("TRACTION_ANALYTICS_ENABLED"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Enabled = parsed
		}
	}
}

func (s *Store) Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	configDir, err := s.userInfo.TractionConfigDir()
	if err != nil {
		return err
	}

	content, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	configFile := filepath.Join(configDir, configFileName)
	return s.fs.WriteFile(configFile, content, 0600)
}
