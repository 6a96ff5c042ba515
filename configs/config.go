package configs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/typeforge/typeforge/internal/adapter"
	"github.com/typeforge/typeforge/internal/domain"
	"github.com/typeforge/typeforge/internal/fetch"
)

// SourceEntry is one configured document source. A plain string in the YAML
// list is shorthand for an entry with only a URL.
type SourceEntry struct {
	Type     string                 `yaml:"type,omitempty"`
	Name     string                 `yaml:"name,omitempty"`
	URL      string                 `yaml:"url,omitempty"`
	Method   string                 `yaml:"method,omitempty"`
	Headers  map[string]string      `yaml:"headers,omitempty"`
	Query    map[string]string      `yaml:"query,omitempty"`
	Parse    string                 `yaml:"parse,omitempty"`
	Document map[string]interface{} `yaml:"document,omitempty"`
	Options  map[string]interface{} `yaml:"options,omitempty"`
	Metadata map[string]interface{} `yaml:"metadata,omitempty"`
}

// ToSourceConfig converts the entry into the pipeline's source descriptor.
func (s SourceEntry) ToSourceConfig() adapter.SourceConfig {
	cfg := adapter.SourceConfig{
		Type:     domain.SourceKind(s.Type),
		Name:     s.Name,
		Options:  s.Options,
		Metadata: s.Metadata,
	}
	if s.Document != nil {
		cfg.Document = s.Document
		return cfg
	}
	cfg.Source = &fetch.Source{
		Request: &fetch.Request{
			URL:     s.URL,
			Method:  s.Method,
			Headers: s.Headers,
			Query:   s.Query,
			Parse:   fetch.ParseMode(s.Parse),
		},
	}
	return cfg
}

// FileConfig is the structure loaded from the YAML configuration file.
type FileConfig struct {
	Sources         []interface{} `yaml:"sources"`
	OutputDir       string        `yaml:"output_dir"`
	Extension       string        `yaml:"extension"`
	EntryName       string        `yaml:"entry_name"`
	Prefer          string        `yaml:"prefer"`
	Primary         string        `yaml:"primary"`
	Clean           *bool         `yaml:"clean"`
	ContinueOnError *bool         `yaml:"continue_on_error"`
}

// Config holds the final application configuration, merged from the YAML
// file and environment variables with the prefix "TYPEFORGE_". Environment
// values override file values.
type Config struct {
	// Config file path, loaded first from env so the file itself is
	// relocatable.
	ConfigFilePath string `envconfig:"CONFIG_FILE" default:"configs/typeforge.yaml"`

	// File-loaded, env-overridable fields.
	Sources   []SourceEntry
	OutputDir string `envconfig:"OUTPUT_DIR"`
	Extension string `envconfig:"EXTENSION"`
	EntryName string `envconfig:"ENTRY_NAME"`
	Prefer    string `envconfig:"PREFER"`
	Primary   string `envconfig:"PRIMARY"`
	Clean     *bool  `envconfig:"CLEAN"`
	// ContinueOnError defaults to true: a failed source is recorded and the
	// rest of the run proceeds.
	ContinueOnError *bool `envconfig:"CONTINUE_ON_ERROR"`

	// Env-only fields.
	HTTPClientTimeout        time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`
	OtelExporterOtlpEndpoint string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel                 string        `envconfig:"LOG_LEVEL" default:"info"`
}

// ParsedLogLevel returns the slog.Level for the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// SourceConfigs converts every configured entry for the pipeline.
func (c *Config) SourceConfigs() []adapter.SourceConfig {
	out := make([]adapter.SourceConfig, 0, len(c.Sources))
	for _, entry := range c.Sources {
		out = append(out, entry.ToSourceConfig())
	}
	return out
}

// Load loads configuration first from environment variables (to get the
// file path), then from the YAML file, and finally processes environment
// variables again so they override file settings.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("typeforge", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}

	fileCfg := FileConfig{}
	if cfg.ConfigFilePath != "" {
		yamlFile, err := os.ReadFile(cfg.ConfigFilePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file '%s': %w", cfg.ConfigFilePath, err)
			}
			slog.Info("Config file not found, using env vars only.", "path", cfg.ConfigFilePath)
		} else {
			if err := yaml.Unmarshal(yamlFile, &fileCfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", cfg.ConfigFilePath, err)
			}
			slog.Info("Loaded configuration from file.", "path", cfg.ConfigFilePath)
		}
	}

	cfg.Sources = parseSourceEntries(fileCfg.Sources)
	if fileCfg.OutputDir != "" {
		cfg.OutputDir = fileCfg.OutputDir
	}
	if fileCfg.Extension != "" {
		cfg.Extension = fileCfg.Extension
	}
	if fileCfg.EntryName != "" {
		cfg.EntryName = fileCfg.EntryName
	}
	if fileCfg.Prefer != "" {
		cfg.Prefer = fileCfg.Prefer
	}
	if fileCfg.Primary != "" {
		cfg.Primary = fileCfg.Primary
	}
	if fileCfg.Clean != nil {
		cfg.Clean = fileCfg.Clean
	}
	if fileCfg.ContinueOnError != nil {
		cfg.ContinueOnError = fileCfg.ContinueOnError
	}

	// Process environment variables again so they override file settings.
	if err := envconfig.Process("typeforge", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = "client"
	}
	return &cfg, nil
}

// parseSourceEntries accepts both the string shorthand and the object form.
func parseSourceEntries(raw []interface{}) []SourceEntry {
	entries := make([]SourceEntry, 0, len(raw))
	for _, source := range raw {
		switch v := source.(type) {
		case string:
			entries = append(entries, SourceEntry{URL: v})
		case map[string]interface{}:
			entry := SourceEntry{}
			entry.Type = stringField(v, "type")
			entry.Name = stringField(v, "name")
			entry.URL = stringField(v, "url")
			entry.Method = stringField(v, "method")
			entry.Parse = stringField(v, "parse")
			entry.Headers = stringMapField(v, "headers")
			entry.Query = stringMapField(v, "query")
			if doc, ok := v["document"].(map[string]interface{}); ok {
				entry.Document = doc
			}
			if opts, ok := v["options"].(map[string]interface{}); ok {
				entry.Options = opts
			}
			if meta, ok := v["metadata"].(map[string]interface{}); ok {
				entry.Metadata = meta
			}
			if entry.URL == "" && entry.Document == nil {
				slog.Warn("Ignoring source with neither url nor document", "source", v)
				continue
			}
			entries = append(entries, entry)
		default:
			slog.Warn("Ignoring invalid source format", "source", source)
		}
	}
	return entries
}

func stringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func stringMapField(m map[string]interface{}, key string) map[string]string {
	raw, ok := m[key].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
