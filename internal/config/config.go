package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/Pulse/internal/correlate"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// MaxContextChars is the hard ceiling on the serialized context budget.
const MaxContextChars = 6000

type Config struct {
	Database Database `yaml:"database"`
	Sources  []string `yaml:"sources"`
	Analysis Analysis `yaml:"analysis"`
	LLM      LLM      `yaml:"llm"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

type Database struct {
	Path string `yaml:"path"`
}

type Analysis struct {
	Workers            int              `yaml:"workers"`
	TopN               int              `yaml:"top_n"`
	Months             int              `yaml:"months"`
	ThemeSimilarity    float64          `yaml:"theme_similarity"`
	EmergePct          float64          `yaml:"emerge_threshold_pct"`
	DeclinePct         float64          `yaml:"decline_threshold_pct"`
	ChangeThresholdPct float64          `yaml:"change_threshold_pct"`
	MaxContextChars    int              `yaml:"max_context_chars"`
	Correlations       []correlate.Pair `yaml:"correlations"`
}

type LLM struct {
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MinIntervalMS  int     `yaml:"min_interval_ms"`
}

// Timeout returns the request timeout as a duration.
func (l LLM) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// MinInterval returns the minimum spacing between requests.
func (l LLM) MinInterval() time.Duration {
	return time.Duration(l.MinIntervalMS) * time.Millisecond
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for pulse.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "pulse")
}

// DataDir returns the XDG data directory for pulse.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "pulse")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/pulse/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'pulse init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: []string{"asana", "toggl", "habitica", "google_fit"},
		Analysis: Analysis{
			Workers:            4,
			TopN:               5,
			Months:             12,
			ThemeSimilarity:    0.3,
			EmergePct:          50,
			DeclinePct:         30,
			ChangeThresholdPct: 20,
			MaxContextChars:    MaxContextChars,
			Correlations: []correlate.Pair{
				{A: "google_fit", B: "asana"},
				{A: "google_fit", B: "toggl"},
			},
		},
		LLM: LLM{
			BaseURL:        "http://localhost:1234/v1/chat/completions",
			Model:          "qwen2.5-7b-instruct",
			Temperature:    0.2,
			MaxTokens:      1200,
			TimeoutSeconds: 60,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks the config against the known source names. An oversized
// context budget is clamped rather than rejected.
func (c *Config) Validate(known []string) error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("no sources configured")
	}
	for _, s := range c.Sources {
		if !slices.Contains(known, s) {
			return fmt.Errorf("unknown source %q (known: %v)", s, known)
		}
	}
	for _, p := range c.Analysis.Correlations {
		if p.A == "" || p.B == "" || p.A == p.B {
			return fmt.Errorf("invalid correlation pair %q/%q", p.A, p.B)
		}
	}
	if c.Analysis.MaxContextChars <= 0 {
		return fmt.Errorf("max_context_chars must be positive, got %d", c.Analysis.MaxContextChars)
	}
	if c.Analysis.MaxContextChars > MaxContextChars {
		c.Analysis.MaxContextChars = MaxContextChars
	}
	if c.Analysis.ThemeSimilarity < 0 || c.Analysis.ThemeSimilarity > 1 {
		return fmt.Errorf("theme_similarity must be within [0, 1], got %g", c.Analysis.ThemeSimilarity)
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Analysis.Workers)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// GetDatabasePath returns the effective database path from config or the
// XDG default.
func (c *Config) GetDatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(DataDir(), "pulse.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
