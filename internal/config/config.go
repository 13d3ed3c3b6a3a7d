// Package config handles configuration loading and management for claimflow.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for claimflow.
type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Warranty  WarrantyConfig  `mapstructure:"warranty"`
	Send      SendConfig      `mapstructure:"send"`
}

// PathsConfig locates the data directories the pipeline reads and writes.
// Relative entries are resolved against DataDir.
type PathsConfig struct {
	// DataDir is the root for all claim data.
	DataDir string `mapstructure:"data_dir"`
	// Inbox holds inbound message JSON files.
	Inbox string `mapstructure:"inbox"`
	// Policies holds warranty policy text files.
	Policies string `mapstructure:"policies"`
	// ProductCatalog is the product catalog JSON file.
	ProductCatalog string `mapstructure:"product_catalog"`
	// PolicyIndex is the policy index JSON file.
	PolicyIndex string `mapstructure:"policy_index"`
	// Outbox is where rendered artifacts land.
	Outbox string `mapstructure:"outbox"`
	// StateDB is the SQLite database file for checkpoints and audit records.
	StateDB string `mapstructure:"state_db"`
}

// AnthropicConfig holds Anthropic API settings for the model advisor.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Model is the Claude model used for triage, extraction, and analysis.
	Model string `mapstructure:"model"`
	// Timeout bounds each advisor call.
	Timeout time.Duration `mapstructure:"timeout"`
	// UseBedrock routes calls through AWS Bedrock instead of the direct API.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// AWSRegion is the Bedrock region (e.g. "us-west-2").
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional shared-config profile for Bedrock.
	AWSProfile string `mapstructure:"aws_profile"`
}

// OpenAIConfig holds settings for the policy retrieval embedder.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	// EmbeddingModel selects the embeddings model; empty means the
	// retrieval package default.
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// WarrantyConfig holds decision engine settings.
type WarrantyConfig struct {
	// Days is the warranty window length applied when a policy does not
	// specify one.
	Days int `mapstructure:"days"`
}

// SendConfig controls how approved customer emails leave the system.
type SendConfig struct {
	// Mode is "manual" (write drafts only) or "smtp".
	Mode string `mapstructure:"mode"`
	// SMTP settings apply when Mode is "smtp".
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	SMTPFrom     string `mapstructure:"smtp_from"`
	SMTPUseTLS   bool   `mapstructure:"smtp_use_tls"`
}

// Resolve returns path joined onto the data dir unless it is already
// absolute.
func (p PathsConfig) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.DataDir, path)
}

// InboxDir returns the resolved inbox directory.
func (p PathsConfig) InboxDir() string { return p.Resolve(p.Inbox) }

// PoliciesDir returns the resolved policies directory.
func (p PathsConfig) PoliciesDir() string { return p.Resolve(p.Policies) }

// ProductCatalogFile returns the resolved product catalog path.
func (p PathsConfig) ProductCatalogFile() string { return p.Resolve(p.ProductCatalog) }

// PolicyIndexFile returns the resolved policy index path.
func (p PathsConfig) PolicyIndexFile() string { return p.Resolve(p.PolicyIndex) }

// OutboxDir returns the resolved outbox directory.
func (p PathsConfig) OutboxDir() string { return p.Resolve(p.Outbox) }

// StateDBFile returns the resolved state database path.
func (p PathsConfig) StateDBFile() string { return p.Resolve(p.StateDB) }

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY)
// 2. Project config (.claimflow.yaml in current directory or parent)
// 3. User config (~/.config/claimflow/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("")

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("paths.data_dir", "CLAIMFLOW_DATA_DIR")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.OpenAI.APIKey = expandEnv(cfg.OpenAI.APIKey)
	cfg.Send.SMTPPassword = expandEnv(cfg.Send.SMTPPassword)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.OpenAI.APIKey = expandEnv(cfg.OpenAI.APIKey)
	cfg.Send.SMTPPassword = expandEnv(cfg.Send.SMTPPassword)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("paths.data_dir", cfg.Paths.DataDir)
	v.Set("paths.inbox", cfg.Paths.Inbox)
	v.Set("paths.policies", cfg.Paths.Policies)
	v.Set("paths.product_catalog", cfg.Paths.ProductCatalog)
	v.Set("paths.policy_index", cfg.Paths.PolicyIndex)
	v.Set("paths.outbox", cfg.Paths.Outbox)
	v.Set("paths.state_db", cfg.Paths.StateDB)
	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.timeout", cfg.Anthropic.Timeout.String())
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("openai.api_key", cfg.OpenAI.APIKey)
	v.Set("openai.embedding_model", cfg.OpenAI.EmbeddingModel)
	v.Set("warranty.days", cfg.Warranty.Days)
	v.Set("send.mode", cfg.Send.Mode)
	v.Set("send.smtp_host", cfg.Send.SMTPHost)
	v.Set("send.smtp_port", cfg.Send.SMTPPort)
	v.Set("send.smtp_username", cfg.Send.SMTPUsername)
	v.Set("send.smtp_password", cfg.Send.SMTPPassword)
	v.Set("send.smtp_from", cfg.Send.SMTPFrom)
	v.Set("send.smtp_use_tls", cfg.Send.SMTPUseTLS)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.inbox", "emails/inbox")
	v.SetDefault("paths.policies", "policies")
	v.SetDefault("paths.product_catalog", "products/products.json")
	v.SetDefault("paths.policy_index", "policies/policy_index.json")
	v.SetDefault("paths.outbox", "outbox")
	v.SetDefault("paths.state_db", "claimflow.db")

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("anthropic.timeout", "60s")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.embedding_model", "")

	v.SetDefault("warranty.days", 90)

	v.SetDefault("send.mode", "manual")
	v.SetDefault("send.smtp_port", 587)
	v.SetDefault("send.smtp_use_tls", true)
}

// getUserConfigDir returns the XDG config directory for claimflow.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "claimflow")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "claimflow")
	}
	return filepath.Join(home, ".config", "claimflow")
}

// findProjectConfig searches for .claimflow.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".claimflow.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:        "data",
			Inbox:          "emails/inbox",
			Policies:       "policies",
			ProductCatalog: "products/products.json",
			PolicyIndex:    "policies/policy_index.json",
			Outbox:         "outbox",
			StateDB:        "claimflow.db",
		},
		Anthropic: AnthropicConfig{
			Model:   "claude-sonnet-4-5",
			Timeout: 60 * time.Second,
		},
		Warranty: WarrantyConfig{Days: 90},
		Send: SendConfig{
			Mode:       "manual",
			SMTPPort:   587,
			SMTPUseTLS: true,
		},
	}
}
