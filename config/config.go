package config

import (
	"path/filepath"
	"strings"

	"github.com/morler/codeassist/providers"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"
)

// ConfigDirName is the user-level directory searched for config.{yaml,yml,json}.
const ConfigDirName = ".codeassist"

// Config represents the structure of the configuration file
type Config struct {
	Version          string                      `mapstructure:"version"`
	Theme            string                      `mapstructure:"theme"`
	EnableCache      bool                        `mapstructure:"enable_cache"`
	BackupEnabled    bool                        `mapstructure:"backup_enabled"`
	MaxFileSize      int64                       `mapstructure:"max_file_size"`
	ExcludedBinary   []string                    `mapstructure:"excluded_binary"`
	BackupCount      int                         `mapstructure:"backup_count"`
	AIProviderConfig *providers.AIProviderConfig `mapstructure:"ai_provider_config"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:        "0.3.0",
	Theme:          "dracula",
	EnableCache:    true,
	BackupEnabled:  true,
	MaxFileSize:    10_000_000,
	ExcludedBinary: []string{".pyc", ".exe", ".dll", ".so", ".dylib"},
	BackupCount:    5,
	AIProviderConfig: &providers.AIProviderConfig{
		Provider: "ollama",
		BaseURL:  "http://localhost:11434/api",
		Model:    "deepseek-coder:1.3b-instruct",
	},
}

// Default returns a deep copy of DefaultConfig.
func Default() *Config {
	config := DefaultConfig
	config.ExcludedBinary = append([]string(nil), DefaultConfig.ExcludedBinary...)
	providerConfig := *DefaultConfig.AIProviderConfig
	config.AIProviderConfig = &providerConfig
	return &config
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs builds the session configuration from defaults, the optional
// user-level file under homeDir, CODEASSIST_* environment variables and, when
// rootCmd is non-nil, its flags. A missing or malformed file is logged and
// the defaults are used; it is never fatal.
func LoadConfigs(rootCmd *cobra.Command, homeDir string, logger zerolog.Logger) *Config {
	v := newViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(homeDir, ConfigDirName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.Warn().Msg("No configuration file found, using defaults")
		} else {
			logger.Warn().Err(err).Msg("Error reading config file, using defaults")
			v = newViper()
		}
	} else {
		logger.Debug().Str("path", v.ConfigFileUsed()).Msg("loaded configuration file")
	}

	if rootCmd != nil {
		bindFlags(v, rootCmd)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		logger.Warn().Err(err).Msg("Unable to decode configuration, using defaults")
		return Default()
	}

	validate(&config, logger)
	return &config
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("CODEASSIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", DefaultConfig.Version)
	v.SetDefault("theme", DefaultConfig.Theme)
	v.SetDefault("enable_cache", DefaultConfig.EnableCache)
	v.SetDefault("backup_enabled", DefaultConfig.BackupEnabled)
	v.SetDefault("max_file_size", DefaultConfig.MaxFileSize)
	v.SetDefault("excluded_binary", DefaultConfig.ExcludedBinary)
	v.SetDefault("backup_count", DefaultConfig.BackupCount)
	v.SetDefault("ai_provider_config.provider", DefaultConfig.AIProviderConfig.Provider)
	v.SetDefault("ai_provider_config.base_url", DefaultConfig.AIProviderConfig.BaseURL)
	v.SetDefault("ai_provider_config.model", DefaultConfig.AIProviderConfig.Model)
	v.SetDefault("ai_provider_config.max_tokens", DefaultConfig.AIProviderConfig.MaxTokens)
	v.SetDefault("ai_provider_config.api_key", DefaultConfig.AIProviderConfig.ApiKey)
}

// validate replaces out-of-range values with their defaults, one key at a time.
func validate(config *Config, logger zerolog.Logger) {
	if config.BackupCount < 1 {
		logger.Warn().Int("backup_count", config.BackupCount).Msg("backup_count must be at least 1, using default")
		config.BackupCount = DefaultConfig.BackupCount
	}
	if config.MaxFileSize <= 0 {
		logger.Warn().Int64("max_file_size", config.MaxFileSize).Msg("max_file_size must be positive, using default")
		config.MaxFileSize = DefaultConfig.MaxFileSize
	}

	excluded := make([]string, 0, len(config.ExcludedBinary))
	for _, ext := range config.ExcludedBinary {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		excluded = append(excluded, ext)
	}
	config.ExcludedBinary = excluded

	if config.AIProviderConfig == nil {
		providerConfig := *DefaultConfig.AIProviderConfig
		config.AIProviderConfig = &providerConfig
	}
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(v *viper.Viper, rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag("theme", flags.Lookup("theme"))
	_ = v.BindPFlag("enable_cache", flags.Lookup("enable_cache"))
	_ = v.BindPFlag("backup_enabled", flags.Lookup("backup_enabled"))
	_ = v.BindPFlag("max_file_size", flags.Lookup("max_file_size"))
	_ = v.BindPFlag("backup_count", flags.Lookup("backup_count"))
	_ = v.BindPFlag("ai_provider_config.provider", flags.Lookup("provider"))
	_ = v.BindPFlag("ai_provider_config.base_url", flags.Lookup("base_url"))
	_ = v.BindPFlag("ai_provider_config.model", flags.Lookup("model"))
	_ = v.BindPFlag("ai_provider_config.api_key", flags.Lookup("api_key"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML). Defaults to ~/.codeassist/config.yaml.")

	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Set the highlight theme for rendering AI answers (e.g., 'dracula', 'monokai').")
	rootCmd.PersistentFlags().Bool("enable_cache", DefaultConfig.EnableCache, "Enable or disable the in-memory analysis cache.")
	rootCmd.PersistentFlags().Bool("backup_enabled", DefaultConfig.BackupEnabled, "Back up files before modifying them.")
	rootCmd.PersistentFlags().Int64("max_file_size", DefaultConfig.MaxFileSize, "Skip project files larger than this many bytes.")
	rootCmd.PersistentFlags().Int("backup_count", DefaultConfig.BackupCount, "Number of backups retained per file.")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging.")

	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")

	// AI Provider configuration
	rootCmd.PersistentFlags().String("provider", DefaultConfig.AIProviderConfig.Provider, "The name of the AI provider (e.g., 'ollama', 'openai').")
	rootCmd.PersistentFlags().String("base_url", DefaultConfig.AIProviderConfig.BaseURL, "The base URL of the AI provider.")
	rootCmd.PersistentFlags().String("model", DefaultConfig.AIProviderConfig.Model, "The name of the model used for generation.")
	rootCmd.PersistentFlags().String("api_key", DefaultConfig.AIProviderConfig.ApiKey, "The API key used to authenticate with the AI provider.")
}
