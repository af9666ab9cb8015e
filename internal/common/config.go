package common

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Paths    PathsConfig
	LLM      LLMConfig
	Monitor  MonitorConfig
	Database DatabaseConfig
	Log      LogConfig
}

// PathsConfig locates the working files of a batch.
type PathsConfig struct {
	MarkdownDir string
	ArtifactDir string
	PDFDir      string
	LedgerFile  string
	ErrorLog    string
	PromptDir   string
	SchemaFile  string
}

// LLMConfig holds structured-generation provider configuration
type LLMConfig struct {
	Provider          string
	Model             string
	APIKey            string
	BaseURL           string
	Temperature       float32
	Timeout           time.Duration
	RequestsPerMinute int
	Lenient           bool
}

// MonitorConfig holds progress monitor configuration
type MonitorConfig struct {
	Interval time.Duration
	MaxGap   time.Duration
}

// DatabaseConfig holds relational loader configuration
type DatabaseConfig struct {
	URL         string
	DialTimeout time.Duration
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string
	Level  string
}

// Supported providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultEnvFile is read when present; a missing file is not an error.
const DefaultEnvFile = ".env"

func setDefaults(v *viper.Viper) {
	v.SetDefault("markdown_dir", "arquivos_md")
	v.SetDefault("artifact_dir", "")
	v.SetDefault("pdf_dir", "pdfs")
	v.SetDefault("ledger_file", "controle_processamento.csv")
	v.SetDefault("error_log", "erros.log")
	v.SetDefault("prompt_dir", "prompts")
	v.SetDefault("schema_file", "acordao_schema.json")

	v.SetDefault("llm_provider", ProviderGemini)
	v.SetDefault("llm_model", "")
	v.SetDefault("llm_base_url", "")
	v.SetDefault("llm_temperature", 0.0)
	v.SetDefault("llm_timeout", 120*time.Second)
	v.SetDefault("llm_requests_per_minute", 0)
	v.SetDefault("llm_lenient", true)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("openai_api_key", "")

	v.SetDefault("monitor_interval", 5*time.Second)
	v.SetDefault("monitor_max_gap", 300*time.Second)

	v.SetDefault("db_url", "acordaos.db")
	v.SetDefault("db_dial_timeout", 3*time.Second)

	v.SetDefault("log_format", "text")
	v.SetDefault("log_level", "info")
}

// legacyKeys maps current keys to the names older deployments used.
var legacyKeys = map[string][]string{
	"markdown_dir": {"DIRETORIO_MARKDOWN"},
	"pdf_dir":      {"DIRETORIO_PDFS"},
	"ledger_file":  {"ARQUIVO_CONTROLE"},
	"error_log":    {"ARQUIVO_LOG_ERROS"},
	"schema_file":  {"ARQUIVO_SCHEMA"},
	"llm_model":    {"MODEL_ID"},
}

// legacyFallback copies a legacy value into key unless key is set itself.
func legacyFallback(v *viper.Viper, key string, names ...string) {
	if os.Getenv(strings.ToUpper(key)) != "" || v.InConfig(key) {
		return
	}
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			v.Set(key, val)
			return
		}
		if lower := strings.ToLower(name); v.InConfig(lower) {
			v.Set(key, v.GetString(lower))
			return
		}
	}
}

// LoadConfig loads configuration from an optional dotenv file, then the environment.
// Environment variables always win over the file.
func LoadConfig(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	explicit := envFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}
	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, NewAppError(CodeConfig, "read "+envFile, err)
		}
	} else if explicit {
		return nil, NewAppError(CodeConfig, "env file "+envFile+" not found", ErrNotFound)
	}

	for key, names := range legacyKeys {
		legacyFallback(v, key, names...)
	}

	cfg := &Config{
		Paths: PathsConfig{
			MarkdownDir: v.GetString("markdown_dir"),
			ArtifactDir: v.GetString("artifact_dir"),
			PDFDir:      v.GetString("pdf_dir"),
			LedgerFile:  v.GetString("ledger_file"),
			ErrorLog:    v.GetString("error_log"),
			PromptDir:   v.GetString("prompt_dir"),
			SchemaFile:  v.GetString("schema_file"),
		},
		LLM: LLMConfig{
			Provider:          strings.ToLower(strings.TrimSpace(v.GetString("llm_provider"))),
			Model:             v.GetString("llm_model"),
			BaseURL:           v.GetString("llm_base_url"),
			Temperature:       float32(v.GetFloat64("llm_temperature")),
			Timeout:           v.GetDuration("llm_timeout"),
			RequestsPerMinute: v.GetInt("llm_requests_per_minute"),
			Lenient:           v.GetBool("llm_lenient"),
		},
		Monitor: MonitorConfig{
			Interval: v.GetDuration("monitor_interval"),
			MaxGap:   v.GetDuration("monitor_max_gap"),
		},
		Database: DatabaseConfig{
			URL:         v.GetString("db_url"),
			DialTimeout: v.GetDuration("db_dial_timeout"),
		},
		Log: LogConfig{
			Format: v.GetString("log_format"),
			Level:  v.GetString("log_level"),
		},
	}
	if cfg.Paths.ArtifactDir == "" {
		cfg.Paths.ArtifactDir = cfg.Paths.MarkdownDir
	}
	switch cfg.LLM.Provider {
	case ProviderOpenAI:
		cfg.LLM.APIKey = v.GetString("openai_api_key")
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = "gpt-4o-mini"
		}
	default:
		cfg.LLM.APIKey = v.GetString("gemini_api_key")
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = "gemini-2.0-flash"
		}
	}
	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	validator := NewValidator().
		Field("MARKDOWN_DIR", c.Paths.MarkdownDir, Required).
		Field("LEDGER_FILE", c.Paths.LedgerFile, Required).
		Field("ERROR_LOG", c.Paths.ErrorLog, Required).
		Field("LOG_FORMAT", c.Log.Format, OneOf("text", "json")).
		Field("MONITOR_INTERVAL", c.Monitor.Interval, PositiveDuration)
	if validator.HasErrors() {
		return NewAppError(CodeConfig, validator.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// ValidateLLM checks the provider settings; only extraction commands need them.
func (c *Config) ValidateLLM() error {
	keyName := "GEMINI_API_KEY"
	if c.LLM.Provider == ProviderOpenAI {
		keyName = "OPENAI_API_KEY"
	}
	validator := NewValidator().
		Field("LLM_PROVIDER", c.LLM.Provider, OneOf(ProviderGemini, ProviderOpenAI)).
		Field(keyName, c.LLM.APIKey, Required).
		Field("LLM_MODEL", c.LLM.Model, Required).
		Field("PROMPT_DIR", c.Paths.PromptDir, Required).
		Field("LLM_TIMEOUT", c.LLM.Timeout, PositiveDuration)
	if c.LLM.RequestsPerMinute < 0 {
		return NewAppError(CodeConfig, "LLM_REQUESTS_PER_MINUTE must not be negative", ErrInvalidInput)
	}
	if validator.HasErrors() {
		return NewAppError(CodeConfig, validator.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// IsNotFound reports whether LoadConfig failed on a missing explicit env file.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func (c *Config) String() string {
	return fmt.Sprintf("markdown=%s ledger=%s errors=%s provider=%s model=%s",
		c.Paths.MarkdownDir, c.Paths.LedgerFile, c.Paths.ErrorLog, c.LLM.Provider, c.LLM.Model)
}
