package saycmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	defaults "github.com/Paranoid-AF/saycmd/default"
	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the user's saycmd configuration.
type Config struct {
	Version       int                 `koanf:"version" toml:"version"`
	Index         IndexConfig         `koanf:"index" toml:"index"`
	Resolve       ResolveConfig       `koanf:"resolve" toml:"resolve"`
	Inference     InferenceConfig     `koanf:"inference" toml:"inference"`
	Transcription TranscriptionConfig `koanf:"transcription" toml:"transcription"`
	Device        DeviceConfig        `koanf:"device" toml:"device"`
	Choice        ChoiceConfig        `koanf:"choice" toml:"choice"`
	ShellFolders  map[string]string   `koanf:"shell_folders" toml:"shell_folders"`
	Metrics       MetricsConfig       `koanf:"metrics" toml:"metrics"`
}

// IndexConfig holds settings for the filesystem index.
type IndexConfig struct {
	DBPath    string   `koanf:"db_path" toml:"db_path"`
	Roots     []string `koanf:"roots" toml:"roots"`
	BatchSize int      `koanf:"batch_size" toml:"batch_size"`
}

// ResolveConfig holds fuzzy matching settings.
type ResolveConfig struct {
	Cutoff          float64 `koanf:"cutoff" toml:"cutoff"`
	CacheTTLMinutes int     `koanf:"cache_ttl_minutes" toml:"cache_ttl_minutes"`
}

// InferenceConfig holds settings for the structured-command service.
type InferenceConfig struct {
	BaseURL        string  `koanf:"base_url" toml:"base_url"`
	APIType        string  `koanf:"api_type" toml:"api_type"`
	APIKey         string  `koanf:"api_key" toml:"api_key"`
	Model          string  `koanf:"model" toml:"model"`
	MaxTokens      int     `koanf:"max_tokens" toml:"max_tokens"`
	Temperature    float64 `koanf:"temperature" toml:"temperature"`
	TimeoutSeconds int     `koanf:"timeout_seconds" toml:"timeout_seconds"`
}

// TranscriptionConfig holds the external speech-to-text commands.
type TranscriptionConfig struct {
	Command        []string `koanf:"command" toml:"command"`
	EvictCommand   []string `koanf:"evict_command" toml:"evict_command"`
	RestoreCommand []string `koanf:"restore_command" toml:"restore_command"`
}

// DeviceConfig holds the input-injection and opener commands.
type DeviceConfig struct {
	OpenCommand []string `koanf:"open_command" toml:"open_command"`
	KeysCommand []string `koanf:"keys_command" toml:"keys_command"`
	TypeCommand []string `koanf:"type_command" toml:"type_command"`
	TypeMode    string   `koanf:"type_mode" toml:"type_mode"`
	CopyChord   string   `koanf:"copy_chord" toml:"copy_chord"`
	PasteChord  string   `koanf:"paste_chord" toml:"paste_chord"`
}

// ChoiceConfig holds disambiguation settings.
type ChoiceConfig struct {
	// TimeoutSeconds bounds the wait for a choice; 0 waits forever.
	TimeoutSeconds int `koanf:"timeout_seconds" toml:"timeout_seconds"`
}

// MetricsConfig holds metrics output settings.
type MetricsConfig struct {
	Textfile string `koanf:"textfile" toml:"textfile"`
}

// rawBytesProvider feeds embedded bytes to koanf.
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// ConfigDir returns the config directory path.
// Resolution order: $SAYCMD_CONFIG_DIR > $XDG_CONFIG_HOME/saycmd > ~/.config/saycmd
func ConfigDir() string {
	if dir := os.Getenv("SAYCMD_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "saycmd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "saycmd-config")
	}
	return filepath.Join(home, ".config", "saycmd")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// PromptPath returns the custom inference prompt path.
func PromptPath() string {
	return filepath.Join(ConfigDir(), "prompt.md")
}

// DefaultConfig returns the configuration from the embedded default_config.toml.
func DefaultConfig() *Config {
	cfg, err := loadLayers()
	if err != nil {
		panic("saycmd: invalid embedded default_config.toml: " + err.Error())
	}
	return cfg
}

// LoadConfig layers the embedded defaults, the user config file (if any), and
// an explicit config file. An explicit path that does not exist is an error;
// a missing user config file is not.
func LoadConfig(explicitPath string) (*Config, error) {
	var paths []string
	if _, err := os.Stat(ConfigPath()); err == nil {
		paths = append(paths, ConfigPath())
	}
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		paths = append(paths, explicitPath)
	}
	return loadLayers(paths...)
}

func loadLayers(paths ...string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(&rawBytesProvider{bytes: defaults.DefaultConfigTOML}, toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	for _, path := range paths {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if cfg.ShellFolders == nil {
		cfg.ShellFolders = make(map[string]string)
	}
	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	if cfg.Resolve.Cutoff <= 0 || cfg.Resolve.Cutoff > 1 {
		warnings = append(warnings, fmt.Sprintf("resolve.cutoff %.2f is outside (0, 1]; fuzzy matching will misbehave", cfg.Resolve.Cutoff))
	}
	if cfg.Index.BatchSize < 1 {
		warnings = append(warnings, "index.batch_size must be at least 1; using 1")
	}
	switch cfg.Inference.APIType {
	case "ollama", "chat_completions":
	default:
		warnings = append(warnings, fmt.Sprintf("inference.api_type %q is not one of ollama, chat_completions", cfg.Inference.APIType))
	}
	if len(cfg.Transcription.Command) == 0 {
		warnings = append(warnings, "transcription.command is empty; listen is unavailable")
	}
	switch cfg.Device.TypeMode {
	case "", "keys", "clipboard":
	default:
		warnings = append(warnings, fmt.Sprintf("device.type_mode %q is not one of keys, clipboard", cfg.Device.TypeMode))
	}
	return warnings
}

// ResolveInferenceBaseURL returns the inference API base URL.
// Priority: $SAYCMD_INFERENCE_BASE_URL env > config value.
func ResolveInferenceBaseURL(cfg *Config) string {
	if url := os.Getenv("SAYCMD_INFERENCE_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Inference.BaseURL
	}
	return ""
}

// ResolveInferenceAPIKey returns the inference API key.
// Priority: $SAYCMD_INFERENCE_API_KEY env > config value.
func ResolveInferenceAPIKey(cfg *Config) string {
	if key := os.Getenv("SAYCMD_INFERENCE_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Inference.APIKey
	}
	return ""
}

// ResolveInferenceModel returns the inference model name.
// Priority: $SAYCMD_INFERENCE_MODEL env > config value.
func ResolveInferenceModel(cfg *Config) string {
	if model := os.Getenv("SAYCMD_INFERENCE_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Inference.Model
	}
	return ""
}

// ResolveIndexPath returns the index database path.
// Priority: $SAYCMD_INDEX_DB env > config value > $XDG_DATA_HOME/saycmd/index.db
func ResolveIndexPath(cfg *Config) string {
	if path := os.Getenv("SAYCMD_INDEX_DB"); path != "" {
		return path
	}
	if cfg != nil && cfg.Index.DBPath != "" {
		return cfg.Index.DBPath
	}
	return filepath.Join(xdg.DataHome, "saycmd", "index.db")
}

// ResolveRoots returns the crawl roots, defaulting to the home directory.
func ResolveRoots(cfg *Config) []string {
	if cfg != nil && len(cfg.Index.Roots) > 0 {
		return cfg.Index.Roots
	}
	if home, err := os.UserHomeDir(); err == nil {
		return []string{home}
	}
	return []string{string(filepath.Separator)}
}

// BatchSize returns the crawl batch size, never less than 1.
func (c *Config) BatchSize() int {
	if c == nil || c.Index.BatchSize < 1 {
		return 1
	}
	return c.Index.BatchSize
}

// CacheTTL returns the entity resolution cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	if c == nil || c.Resolve.CacheTTLMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Resolve.CacheTTLMinutes) * time.Minute
}

// InferenceTimeout returns the per-request inference timeout.
func (c *Config) InferenceTimeout() time.Duration {
	if c == nil || c.Inference.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Inference.TimeoutSeconds) * time.Second
}

// ChoiceTimeout returns the disambiguation wait bound; 0 means no bound.
func (c *Config) ChoiceTimeout() time.Duration {
	if c == nil || c.Choice.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Choice.TimeoutSeconds) * time.Second
}
