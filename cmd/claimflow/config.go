package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hairtech/claimflow/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify claimflow configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/claimflow/config.yaml
Project-specific overrides can be placed in .claimflow.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("paths.data_dir: %s\n", cfg.Paths.DataDir)
	fmt.Printf("paths.inbox: %s\n", cfg.Paths.Inbox)
	fmt.Printf("paths.policies: %s\n", cfg.Paths.Policies)
	fmt.Printf("paths.product_catalog: %s\n", cfg.Paths.ProductCatalog)
	fmt.Printf("paths.policy_index: %s\n", cfg.Paths.PolicyIndex)
	fmt.Printf("paths.outbox: %s\n", cfg.Paths.Outbox)
	fmt.Printf("paths.state_db: %s\n", cfg.Paths.StateDB)
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.timeout: %s\n", cfg.Anthropic.Timeout)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("openai.api_key: %s\n", config.MaskAPIKey(cfg.OpenAI.APIKey))
	fmt.Printf("openai.embedding_model: %s\n", cfg.OpenAI.EmbeddingModel)
	fmt.Printf("warranty.days: %d\n", cfg.Warranty.Days)
	fmt.Printf("send.mode: %s\n", cfg.Send.Mode)
	fmt.Printf("send.smtp_host: %s\n", cfg.Send.SMTPHost)
	fmt.Printf("send.smtp_port: %d\n", cfg.Send.SMTPPort)
	fmt.Printf("send.smtp_from: %s\n", cfg.Send.SMTPFrom)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "paths.data_dir":
		return cfg.Paths.DataDir, nil
	case "paths.inbox":
		return cfg.Paths.Inbox, nil
	case "paths.policies":
		return cfg.Paths.Policies, nil
	case "paths.product_catalog":
		return cfg.Paths.ProductCatalog, nil
	case "paths.policy_index":
		return cfg.Paths.PolicyIndex, nil
	case "paths.outbox":
		return cfg.Paths.Outbox, nil
	case "paths.state_db":
		return cfg.Paths.StateDB, nil
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.timeout":
		return cfg.Anthropic.Timeout.String(), nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.aws_region":
		return cfg.Anthropic.AWSRegion, nil
	case "anthropic.aws_profile":
		return cfg.Anthropic.AWSProfile, nil
	case "openai.api_key":
		return config.MaskAPIKey(cfg.OpenAI.APIKey), nil
	case "openai.embedding_model":
		return cfg.OpenAI.EmbeddingModel, nil
	case "warranty.days":
		return strconv.Itoa(cfg.Warranty.Days), nil
	case "send.mode":
		return cfg.Send.Mode, nil
	case "send.smtp_host":
		return cfg.Send.SMTPHost, nil
	case "send.smtp_port":
		return strconv.Itoa(cfg.Send.SMTPPort), nil
	case "send.smtp_from":
		return cfg.Send.SMTPFrom, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "paths.data_dir":
		cfg.Paths.DataDir = value
	case "paths.inbox":
		cfg.Paths.Inbox = value
	case "paths.policies":
		cfg.Paths.Policies = value
	case "paths.product_catalog":
		cfg.Paths.ProductCatalog = value
	case "paths.policy_index":
		cfg.Paths.PolicyIndex = value
	case "paths.outbox":
		cfg.Paths.Outbox = value
	case "paths.state_db":
		cfg.Paths.StateDB = value
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for anthropic.timeout: %w", err)
		}
		cfg.Anthropic.Timeout = d
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for anthropic.use_bedrock: %w", err)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "openai.api_key":
		cfg.OpenAI.APIKey = value
	case "openai.embedding_model":
		cfg.OpenAI.EmbeddingModel = value
	case "warranty.days":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for warranty.days: %w", err)
		}
		cfg.Warranty.Days = n
	case "send.mode":
		if value != "manual" && value != "smtp" {
			return fmt.Errorf("invalid send.mode %q: must be manual or smtp", value)
		}
		cfg.Send.Mode = value
	case "send.smtp_host":
		cfg.Send.SMTPHost = value
	case "send.smtp_port":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for send.smtp_port: %w", err)
		}
		cfg.Send.SMTPPort = n
	case "send.smtp_username":
		cfg.Send.SMTPUsername = value
	case "send.smtp_password":
		cfg.Send.SMTPPassword = value
	case "send.smtp_from":
		cfg.Send.SMTPFrom = value
	case "send.smtp_use_tls":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for send.smtp_use_tls: %w", err)
		}
		cfg.Send.SMTPUseTLS = b
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
