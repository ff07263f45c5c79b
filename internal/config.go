package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/snapnotes/internal/ai"
	"github.com/starford/snapnotes/internal/notes"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	AI      AIConfig          `yaml:"ai"`
	History HistoryConfig     `yaml:"history"`
	Upload  UploadConfig      `yaml:"upload"`
	Export  ExportConfig      `yaml:"export"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.AI.Validate(); err != nil {
		return err
	}
	if err := c.History.Validate(); err != nil {
		return err
	}
	if err := c.Upload.Validate(); err != nil {
		return err
	}
	return c.Export.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// AllowedOrigins lists browser origins allowed to call the API.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AIConfig selects and configures the generative-AI provider.
type AIConfig struct {
	Provider        string        `yaml:"provider"`
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	Temperature     float64       `yaml:"temperature"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	// PromptsFile optionally overrides the built-in prompts and is watched for changes.
	PromptsFile string `yaml:"prompts_file"`
}

// Validate validates the AI configuration.
func (c *AIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(ai.ProviderGemini, ai.ProviderOpenAI, ai.ProviderAnthropic)),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.MaxOutputTokens, validation.Required, validation.Min(1)),
	)
}

// RequireKey reports a missing api_key. Only the modes that call the
// provider need one; export works offline.
func (c *AIConfig) RequireKey() error {
	if c.APIKey == "" {
		return fmt.Errorf("ai: api_key is empty for provider %q", c.Provider)
	}
	return nil
}

// ClientConfig converts to the ai package settings.
func (c *AIConfig) ClientConfig() ai.Config {
	return ai.Config{
		Provider:        c.Provider,
		APIKey:          c.APIKey,
		Model:           c.Model,
		BaseURL:         c.BaseURL,
		Timeout:         c.Timeout,
		Temperature:     c.Temperature,
		MaxOutputTokens: c.MaxOutputTokens,
	}
}

// HistoryConfig holds the SQLite history database configuration.
type HistoryConfig struct {
	Path     string `yaml:"path"`
	Capacity int    `yaml:"capacity"`
}

// Validate validates the history configuration.
func (c *HistoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
	)
}

// UploadConfig bounds accepted PDF uploads.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// Validate validates the upload configuration.
func (c *UploadConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1))),
	)
}

// ExportConfig holds the directory used by the export command.
type ExportConfig struct {
	Dir           string `yaml:"dir"`
	DefaultFormat string `yaml:"default_format"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.DefaultFormat, validation.In(
			string(notes.FormatBullet), string(notes.FormatQA), string(notes.FormatFlashcard))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
			HTTP: HTTPConfig{
				Port:           8080,
				AllowedOrigins: []string{"http://localhost:5173"},
			},
		},
		AI: AIConfig{
			Provider:        ai.ProviderGemini,
			Model:           "gemini-1.5-pro",
			Timeout:         30 * time.Second,
			Temperature:     0.7,
			MaxOutputTokens: 2048,
		},
		History: HistoryConfig{
			Path:     "./snapnotes.db",
			Capacity: 10,
		},
		Upload: UploadConfig{
			MaxBytes: 10 << 20,
		},
		Export: ExportConfig{
			Dir:           "./exports",
			DefaultFormat: string(notes.FormatBullet),
		},
	}
}
