// Package config loads driver configuration from file, environment, and
// defaults, mirroring the layered precedence used throughout the codebase
// this module was adapted from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// DriverConfig holds the incremental-relevant option surface (see the
// driver option table): which options are semantic (invalidate the whole
// build on change) is decided by the planner, not here — this struct only
// carries the current values.
type DriverConfig struct {
	Incremental                bool   `mapstructure:"incremental"`
	OutputFileMap              string `mapstructure:"outputFileMap"`
	ExplicitModuleBuild        bool   `mapstructure:"explicitModuleBuild"`
	AlwaysRebuildDependents    bool   `mapstructure:"alwaysRebuildDependents"`
	WholeModuleOptimization    bool   `mapstructure:"wholeModuleOptimization"`
	IncrementalDependencyScan  bool   `mapstructure:"incrementalDependencyScan"`
	ShowIncremental            bool   `mapstructure:"showIncremental"`
	ShowJobLifecycle           bool   `mapstructure:"showJobLifecycle"`
	EnableDeterministicCheck   bool   `mapstructure:"enableDeterministicCheck"`
	EmitDependencyDotFile      bool   `mapstructure:"emitDependencyDotFile"`
	VerifyDependencyGraph      bool   `mapstructure:"verifyDependencyGraph"`
}

// CacheConfig controls the CAS client adapter.
type CacheConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	CASPath       string `mapstructure:"casPath"`
	SizeLimitByte int64  `mapstructure:"sizeLimitBytes"`
}

// ScannerConfig controls how the IMDG query is issued and how paths are
// rewritten before being handed to the scanner or to compile jobs.
type ScannerConfig struct {
	PrefixMap     map[string]string `mapstructure:"prefixMap"`
	ModuleAliases map[string]string `mapstructure:"moduleAliases"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the top-level, fully-resolved configuration.
type Config struct {
	Driver  DriverConfig  `mapstructure:"driver"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Scanner ScannerConfig `mapstructure:"scanner"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Driver: DriverConfig{
			Incremental:   true,
			OutputFileMap: "",
		},
		Cache: CacheConfig{
			Enabled:       false,
			SizeLimitByte: 0,
		},
		Scanner: ScannerConfig{
			PrefixMap:     map[string]string{},
			ModuleAliases: map[string]string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "human",
		},
	}
}

// EnvOverride records an environment variable override that was applied
// on top of the file/default configuration, so a "--driver-show-incremental"
// remark can attribute a value to its source.
type EnvOverride struct {
	EnvVar    string      `json:"envVar"`
	Path      string      `json:"path"`
	Value     interface{} `json:"value"`
	FromValue string      `json:"fromValue"`
}

// LoadResult carries the resolved config plus provenance about how it got
// that way.
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
	EnvOverrides []EnvOverride
}

// LoadConfig loads configuration for a driver invocation rooted at
// repoRoot. For provenance details use LoadConfigWithDetails.
func LoadConfig(repoRoot string) (*Config, error) {
	result, err := LoadConfigWithDetails(repoRoot)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadConfigWithDetails resolves configuration in the order: explicit
// INCDRIVER_CONFIG_PATH (TOML) > .incdriver.yaml discovered under repoRoot >
// built-in defaults, then applies INCDRIVER_* environment overrides.
func LoadConfigWithDetails(repoRoot string) (*LoadResult, error) {
	result := &LoadResult{}

	if configPath := os.Getenv("INCDRIVER_CONFIG_PATH"); configPath != "" {
		cfg, err := loadConfigFromTOML(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from INCDRIVER_CONFIG_PATH=%s: %w", configPath, err)
		}
		result.Config = cfg
		result.ConfigPath = configPath
	} else {
		v := viper.New()

		v.SetDefault("driver.incremental", true)
		v.SetDefault("logging.level", "info")
		v.SetDefault("logging.format", "human")

		v.SetConfigName(".incdriver")
		v.SetConfigType("yaml")
		v.AddConfigPath(repoRoot)

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				result.Config = DefaultConfig()
				result.UsedDefaults = true
			} else {
				return nil, err
			}
		} else {
			cfg := DefaultConfig()
			if err := v.Unmarshal(cfg); err != nil {
				return nil, err
			}
			result.Config = cfg
			result.ConfigPath = v.ConfigFileUsed()
		}
	}

	result.EnvOverrides = applyEnvOverrides(result.Config)

	return result, nil
}

// loadConfigFromTOML loads a config file from an explicit path in TOML
// form — the format accepted by INCDRIVER_CONFIG_PATH so a driver
// invocation can be pinned to a file outside the repository being built.
func loadConfigFromTOML(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("invalid TOML in config file: %w", err)
	}
	return cfg, nil
}

type envVarDef struct {
	path    string
	varType string // "string", "int", "bool"
}

var envVarMappings = map[string]envVarDef{
	"INCDRIVER_LOG_LEVEL":  {path: "logging.level", varType: "string"},
	"INCDRIVER_LOG_FORMAT": {path: "logging.format", varType: "string"},

	"INCDRIVER_INCREMENTAL":                {path: "driver.incremental", varType: "bool"},
	"INCDRIVER_OUTPUT_FILE_MAP":            {path: "driver.outputFileMap", varType: "string"},
	"INCDRIVER_EXPLICIT_MODULE_BUILD":      {path: "driver.explicitModuleBuild", varType: "bool"},
	"INCDRIVER_ALWAYS_REBUILD_DEPENDENTS":  {path: "driver.alwaysRebuildDependents", varType: "bool"},
	"INCDRIVER_WHOLE_MODULE_OPTIMIZATION":  {path: "driver.wholeModuleOptimization", varType: "bool"},
	"INCDRIVER_SHOW_INCREMENTAL":           {path: "driver.showIncremental", varType: "bool"},

	"INCDRIVER_CACHE_ENABLED":          {path: "cache.enabled", varType: "bool"},
	"INCDRIVER_CACHE_PATH":             {path: "cache.casPath", varType: "string"},
	"INCDRIVER_CACHE_SIZE_LIMIT_BYTES": {path: "cache.sizeLimitBytes", varType: "int"},
}

func applyEnvOverrides(cfg *Config) []EnvOverride {
	var overrides []EnvOverride

	for envVar, def := range envVarMappings {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}

		var parsedValue interface{}
		var err error

		switch def.varType {
		case "string":
			parsedValue = value
		case "int":
			parsedValue, err = strconv.Atoi(value)
			if err != nil {
				continue
			}
		case "bool":
			parsedValue, err = strconv.ParseBool(value)
			if err != nil {
				continue
			}
		}

		if applyOverride(cfg, def.path, parsedValue) {
			overrides = append(overrides, EnvOverride{
				EnvVar:    envVar,
				Path:      def.path,
				Value:     parsedValue,
				FromValue: value,
			})
		}
	}

	return overrides
}

func applyOverride(cfg *Config, path string, value interface{}) bool {
	parts := strings.Split(path, ".")
	if len(parts) < 2 {
		return false
	}

	switch parts[0] {
	case "logging":
		switch parts[1] {
		case "level":
			if v, ok := value.(string); ok {
				cfg.Logging.Level = v
				return true
			}
		case "format":
			if v, ok := value.(string); ok {
				cfg.Logging.Format = v
				return true
			}
		}
	case "driver":
		switch parts[1] {
		case "incremental":
			if v, ok := value.(bool); ok {
				cfg.Driver.Incremental = v
				return true
			}
		case "outputFileMap":
			if v, ok := value.(string); ok {
				cfg.Driver.OutputFileMap = v
				return true
			}
		case "explicitModuleBuild":
			if v, ok := value.(bool); ok {
				cfg.Driver.ExplicitModuleBuild = v
				return true
			}
		case "alwaysRebuildDependents":
			if v, ok := value.(bool); ok {
				cfg.Driver.AlwaysRebuildDependents = v
				return true
			}
		case "wholeModuleOptimization":
			if v, ok := value.(bool); ok {
				cfg.Driver.WholeModuleOptimization = v
				return true
			}
		case "showIncremental":
			if v, ok := value.(bool); ok {
				cfg.Driver.ShowIncremental = v
				return true
			}
		}
	case "cache":
		switch parts[1] {
		case "enabled":
			if v, ok := value.(bool); ok {
				cfg.Cache.Enabled = v
				return true
			}
		case "casPath":
			if v, ok := value.(string); ok {
				cfg.Cache.CASPath = v
				return true
			}
		case "sizeLimitBytes":
			if v, ok := value.(int); ok {
				cfg.Cache.SizeLimitByte = int64(v)
				return true
			}
		}
	}
	return false
}

// ResolveRepoRoot returns an absolute path for repoRoot, defaulting to the
// current working directory when empty.
func ResolveRepoRoot(repoRoot string) (string, error) {
	if repoRoot == "" {
		repoRoot = "."
	}
	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		return "", fmt.Errorf("resolving repo root: %w", err)
	}
	return abs, nil
}
