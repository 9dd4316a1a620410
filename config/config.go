package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/nanunh/genstack/constants/lipgloss"
	"github.com/nanunh/genstack/providers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configCacheEntry holds cached configuration with metadata
type configCacheEntry struct {
	config  *Config
	modTime time.Time
}

// Global cache for configuration files
var (
	configCache = make(map[string]*configCacheEntry)
	cacheMutex  sync.RWMutex
)

type CacheConfig struct {
	MaxMemoryEntries int           `mapstructure:"max_memory_entries"`
	VerifyHash       bool          `mapstructure:"verify_hash"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

type AnalyzerConfig struct {
	Workers     int   `mapstructure:"workers"`
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

type ModifierConfig struct {
	MaxConcurrentGenerations int64         `mapstructure:"max_concurrent_generations"`
	OracleTimeout            time.Duration `mapstructure:"oracle_timeout"`
	Backup                   bool          `mapstructure:"backup"`
}

// Config represents the structure of the configuration file
type Config struct {
	Version          string                      `mapstructure:"version"`
	Theme            string                      `mapstructure:"theme"`
	LogLevel         string                      `mapstructure:"log_level"`
	OutputFormat     string                      `mapstructure:"output_format"`
	ProjectsDir      string                      `mapstructure:"projects_dir"`
	CacheDir         string                      `mapstructure:"cache_dir"`
	RegistryPath     string                      `mapstructure:"registry_path"`
	Cache            CacheConfig                 `mapstructure:"cache"`
	Analyzer         AnalyzerConfig              `mapstructure:"analyzer"`
	Modifier         ModifierConfig              `mapstructure:"modifier"`
	AIProviderConfig *providers.AIProviderConfig `mapstructure:"ai_provider_config"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:      "0.3.0",
	Theme:        "dracula",
	LogLevel:     "warn",
	OutputFormat: "text",
	ProjectsDir:  "generated_projects",
	CacheDir:     ".cache/structures",
	RegistryPath: ".cache/registry.db",
	Cache: CacheConfig{
		MaxMemoryEntries: 1024,
		VerifyHash:       false,
		MaxAge:           7 * 24 * time.Hour,
	},
	Analyzer: AnalyzerConfig{
		Workers:     8,
		MaxFileSize: 1 << 20,
	},
	Modifier: ModifierConfig{
		MaxConcurrentGenerations: 4,
		OracleTimeout:            2 * time.Minute,
		Backup:                   true,
	},
	AIProviderConfig: &providers.AIProviderConfig{
		Provider: "ollama",
		BaseURL:  "http://localhost:11434/api",
		Model:    "qwen2.5-coder",
		ApiKey:   "",
	},
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from .env, file, flags, and
// environment variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) (*Config, error) {
	var config *Config

	// .env is optional
	_ = godotenv.Load(filepath.Join(cwd, ".env"))

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	bindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else if path := findConfigFile(cwd); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(GetConfigFileType(path))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if rootCmd != nil {
		bindFlags(v, rootCmd)
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if config.AIProviderConfig == nil {
		config.AIProviderConfig = &providers.AIProviderConfig{}
	}
	// A zero temperature flag means "provider default".
	if config.AIProviderConfig.Temperature != nil && *config.AIProviderConfig.Temperature == 0 {
		config.AIProviderConfig.Temperature = nil
	}
	config.resolvePaths(cwd)
	return config, nil
}

// resolvePaths anchors relative directories at cwd.
func (c *Config) resolvePaths(cwd string) {
	for _, p := range []*string{&c.ProjectsDir, &c.CacheDir, &c.RegistryPath} {
		if *p != "" && *p != ":memory:" && !filepath.IsAbs(*p) {
			*p = filepath.Join(cwd, *p)
		}
	}
}

func findConfigFile(cwd string) string {
	for _, name := range []string{"genstack-config.yaml", "genstack-config.yml", "genstack-config.json"} {
		path := filepath.Join(cwd, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", DefaultConfig.Version)
	v.SetDefault("theme", DefaultConfig.Theme)
	v.SetDefault("log_level", DefaultConfig.LogLevel)
	v.SetDefault("output_format", DefaultConfig.OutputFormat)
	v.SetDefault("projects_dir", DefaultConfig.ProjectsDir)
	v.SetDefault("cache_dir", DefaultConfig.CacheDir)
	v.SetDefault("registry_path", DefaultConfig.RegistryPath)
	v.SetDefault("cache.max_memory_entries", DefaultConfig.Cache.MaxMemoryEntries)
	v.SetDefault("cache.verify_hash", DefaultConfig.Cache.VerifyHash)
	v.SetDefault("cache.max_age", DefaultConfig.Cache.MaxAge)
	v.SetDefault("analyzer.workers", DefaultConfig.Analyzer.Workers)
	v.SetDefault("analyzer.max_file_size", DefaultConfig.Analyzer.MaxFileSize)
	v.SetDefault("modifier.max_concurrent_generations", DefaultConfig.Modifier.MaxConcurrentGenerations)
	v.SetDefault("modifier.oracle_timeout", DefaultConfig.Modifier.OracleTimeout)
	v.SetDefault("modifier.backup", DefaultConfig.Modifier.Backup)
	v.SetDefault("ai_provider_config.provider", DefaultConfig.AIProviderConfig.Provider)
	v.SetDefault("ai_provider_config.base_url", DefaultConfig.AIProviderConfig.BaseURL)
	v.SetDefault("ai_provider_config.model", DefaultConfig.AIProviderConfig.Model)
	v.SetDefault("ai_provider_config.api_key", DefaultConfig.AIProviderConfig.ApiKey)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("theme", "THEME")
	_ = v.BindEnv("log_level", "GENSTACK_LOG_LEVEL")
	_ = v.BindEnv("projects_dir", "GENSTACK_PROJECTS_DIR")
	_ = v.BindEnv("cache_dir", "GENSTACK_CACHE_DIR")
	_ = v.BindEnv("registry_path", "GENSTACK_REGISTRY_PATH")
	_ = v.BindEnv("cache.verify_hash", "GENSTACK_VERIFY_HASH")
	_ = v.BindEnv("modifier.oracle_timeout", "GENSTACK_ORACLE_TIMEOUT")
	_ = v.BindEnv("ai_provider_config.provider", "PROVIDER")
	_ = v.BindEnv("ai_provider_config.base_url", "BASE_URL")
	_ = v.BindEnv("ai_provider_config.model", "MODEL")
	_ = v.BindEnv("ai_provider_config.temperature", "TEMPERATURE")
	_ = v.BindEnv("ai_provider_config.api_key", "API_KEY")
}

// bindFlags binds the CLI flags to configuration values. Only flags the
// user actually set override file and environment values.
func bindFlags(v *viper.Viper, rootCmd *cobra.Command) {
	bindings := map[string]string{
		"theme":                               "theme",
		"log_level":                           "log_level",
		"output_format":                       "output",
		"projects_dir":                        "projects_dir",
		"cache_dir":                           "cache_dir",
		"registry_path":                       "registry_path",
		"cache.verify_hash":                   "verify_hash",
		"analyzer.workers":                    "workers",
		"modifier.max_concurrent_generations": "max_generations",
		"modifier.oracle_timeout":             "oracle_timeout",
		"modifier.backup":                     "backup",
		"ai_provider_config.provider":         "provider",
		"ai_provider_config.base_url":         "base_url",
		"ai_provider_config.model":            "model",
		"ai_provider_config.temperature":      "temperature",
		"ai_provider_config.api_key":          "api_key",
	}
	for key, name := range bindings {
		if flag := rootCmd.PersistentFlags().Lookup(name); flag != nil && flag.Changed {
			_ = v.BindPFlag(key, flag)
		}
	}
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Set syntax highlighting theme (e.g., 'dracula', 'monokai', 'github').")
	rootCmd.PersistentFlags().String("log_level", DefaultConfig.LogLevel, "Log level: trace, debug, info, warn, error.")
	rootCmd.PersistentFlags().StringP("output", "o", DefaultConfig.OutputFormat, "Output format: text, json or yaml.")
	rootCmd.PersistentFlags().String("projects_dir", DefaultConfig.ProjectsDir, "Directory holding project roots.")
	rootCmd.PersistentFlags().String("cache_dir", DefaultConfig.CacheDir, "Directory of the persisted structure cache.")
	rootCmd.PersistentFlags().String("registry_path", DefaultConfig.RegistryPath, "Path of the SQLite project registry.")
	rootCmd.PersistentFlags().Bool("verify_hash", DefaultConfig.Cache.VerifyHash, "Confirm fresh-looking cache records with a content hash.")
	rootCmd.PersistentFlags().Int("workers", DefaultConfig.Analyzer.Workers, "Parallel extraction workers for project summaries.")
	rootCmd.PersistentFlags().Int64("max_generations", DefaultConfig.Modifier.MaxConcurrentGenerations, "Maximum concurrent oracle calls.")
	rootCmd.PersistentFlags().Duration("oracle_timeout", DefaultConfig.Modifier.OracleTimeout, "Timeout of a single oracle call.")
	rootCmd.PersistentFlags().Bool("backup", DefaultConfig.Modifier.Backup, "Write a timestamped backup before modifying a file.")

	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")

	rootCmd.PersistentFlags().String("provider", DefaultConfig.AIProviderConfig.Provider, "The name of the AI provider (e.g., 'ollama', 'gemini').")
	rootCmd.PersistentFlags().String("base_url", DefaultConfig.AIProviderConfig.BaseURL, "The base URL of the AI provider.")
	rootCmd.PersistentFlags().String("model", DefaultConfig.AIProviderConfig.Model, "The name of the model used for generation.")
	rootCmd.PersistentFlags().Float32("temperature", 0, "Adjusts the AI model's creativity (0-1).")
	rootCmd.PersistentFlags().String("api_key", DefaultConfig.AIProviderConfig.ApiKey, "The API key used to authenticate with the AI service provider.")
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}

// LoadConfigWithCache loads configuration with caching support
func LoadConfigWithCache(rootCmd *cobra.Command, cwd string) (*Config, error) {
	configFilePath := cfgFile
	if configFilePath == "" {
		configFilePath = findConfigFile(cwd)
	}
	if configFilePath == "" {
		return LoadConfigs(rootCmd, cwd)
	}

	fileInfo, err := os.Stat(configFilePath)
	if err != nil {
		return LoadConfigs(rootCmd, cwd)
	}

	cacheMutex.RLock()
	if cached, exists := configCache[configFilePath]; exists && fileInfo.ModTime().Equal(cached.modTime) {
		cacheMutex.RUnlock()
		return cached.config, nil
	}
	cacheMutex.RUnlock()

	config, err := LoadConfigs(rootCmd, cwd)
	if err != nil {
		return nil, err
	}

	cacheMutex.Lock()
	configCache[configFilePath] = &configCacheEntry{
		config:  config,
		modTime: fileInfo.ModTime(),
	}
	cacheMutex.Unlock()

	return config, nil
}

// ClearConfigCache clears all cached configuration files
func ClearConfigCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	configCache = make(map[string]*configCacheEntry)
}

// WarnIfMissing prints a notice when no config file is in use.
func WarnIfMissing(cwd string) {
	if cfgFile == "" && findConfigFile(cwd) == "" {
		fmt.Println(lipgloss.Yellow.Render("No configuration file found, using defaults"))
	}
}
