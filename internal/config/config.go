package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jsh-team/chunkbroker/internal/utils/logger"
)

const (
	ConfigDirName  = "chunkbroker"
	ConfigFileName = "config.yaml"
	EnvPrefix      = "CHUNKBROKER"
)

func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigDirName), nil
}

// LoadConfig loads the config from the config file
// If the config file does not exist, it creates a default config and saves it to the config file
func LoadConfig() {
	configPath, err := GetConfigDir()
	if err != nil {
		logger.Error("Error getting config dir: %v", err)
		return
	}

	cfg, err := Load(viper.GetViper(), filepath.Join(configPath, ConfigFileName))
	if err != nil {
		logger.Error("Error loading config: %v", err)
		return
	}
	GlobalConfig = cfg

	Apply(cfg)
}

// Load reads configFile into v, creating it with defaults first when it
// does not exist. CHUNKBROKER_* environment variables override file values,
// with "." in keys mapped to "_" (CHUNKBROKER_WARM_WORKERS).
func Load(v *viper.Viper, configFile string) (Config, error) {
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return Config{}, fmt.Errorf("create config path: %w", err)
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		out, err := yaml.Marshal(DefaultConfig)
		if err != nil {
			return Config{}, fmt.Errorf("marshal default config: %w", err)
		}
		if err := os.WriteFile(configFile, out, 0644); err != nil {
			return Config{}, fmt.Errorf("write default config file: %w", err)
		}
	}

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Bundles == nil {
		cfg.Bundles = make(map[string]BundleConfig)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultConfig.LogLevel)
	v.SetDefault("emit.mode", DefaultConfig.Emit.Mode)
	v.SetDefault("emit.preload", DefaultConfig.Emit.Preload)
	v.SetDefault("emit.crossorigin", DefaultConfig.Emit.CrossOrigin)
	v.SetDefault("emit.island_id", DefaultConfig.Emit.IslandID)
	v.SetDefault("warm.workers", DefaultConfig.Warm.Workers)
	v.SetDefault("warm.queue_size", DefaultConfig.Warm.QueueSize)
	v.SetDefault("warm.requests_per_minute", DefaultConfig.Warm.RequestsPerMinute)
}

// Apply copies cfg into the global variables the commands read. Flags parsed
// later still win.
func Apply(cfg Config) {
	if cfg.LogLevel != "" {
		LogLevel = cfg.LogLevel
		if err := logger.SetLevel(cfg.LogLevel); err != nil {
			logger.Warn("Ignoring log level: %v", err)
		}
	}
	if cfg.Emit.Mode != "" {
		ScriptMode = cfg.Emit.Mode
	}
	Preload = cfg.Emit.Preload
	if cfg.Emit.CrossOrigin != "" {
		CrossOrigin = cfg.Emit.CrossOrigin
	}
	if cfg.Emit.IslandID != "" {
		IslandID = cfg.Emit.IslandID
	}
	if cfg.Warm.Workers > 0 {
		MaxConcurrentWarm = cfg.Warm.Workers
	}
	if cfg.Warm.QueueSize > 0 {
		WarmQueueSize = cfg.Warm.QueueSize
	}
	if cfg.Warm.RequestsPerMinute > 0 {
		RequestsPerMinute = cfg.Warm.RequestsPerMinute
	}
}

// SaveConfig saves the config to the config file
func SaveConfig() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, ConfigFileName)

	out, err := yaml.Marshal(GlobalConfig)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, out, 0644)
}

// SetupBundle records a named bundle. An existing bundle keeps the fields
// that are passed empty.
func SetupBundle(name, statsSource, origin string) error {
	if name == "" {
		return fmt.Errorf("bundle name cannot be empty")
	}

	// Load current config
	LoadConfig()

	bundle := GlobalConfig.Bundles[name]
	if statsSource != "" {
		if !strings.HasPrefix(statsSource, "http://") && !strings.HasPrefix(statsSource, "https://") {
			abs, err := filepath.Abs(statsSource)
			if err != nil {
				return fmt.Errorf("failed to resolve stats path: %w", err)
			}
			statsSource = abs
		}
		bundle.Stats = statsSource
	}
	if origin != "" {
		bundle.Origin = origin
	}
	if bundle.Stats == "" {
		return fmt.Errorf("bundle %s has no stats source", name)
	}

	if GlobalConfig.Bundles == nil {
		GlobalConfig.Bundles = make(map[string]BundleConfig)
	}
	GlobalConfig.Bundles[name] = bundle

	// Save updated config
	if err := SaveConfig(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	// Set global variables
	Bundle = name
	return nil
}
