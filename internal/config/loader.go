package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment
// variables. Missing files are fine; defaults apply underneath both.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "reviewgate"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "RG"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return expandEnvVars(cfg), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host.baseURL", "https://api.github.com")
	v.SetDefault("host.timeout", "30s")
	v.SetDefault("host.cloneBaseURL", "https://github.com")
	v.SetDefault("engine.maxIterations", 25)
	v.SetDefault("sandbox.profile", "conservative")
	v.SetDefault("review.maxComments", 20)
	v.SetDefault("review.runTimeout", "10m")
	v.SetDefault("review.botUsername", "reviewgate[bot]")
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "reviewgate.db")
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "auto")
}

// locateConfigFile returns the first existing candidate file, searching
// yaml and yml extensions in each configured path.
func locateConfigFile(name string, paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{"yaml", "yml"} {
			candidate := filepath.Join(dir, name+"."+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}
	return ""
}

// expandEnvVars expands ${VAR} and $VAR syntax in configuration strings,
// so tokens and keys can stay out of config files.
func expandEnvVars(cfg Config) Config {
	cfg.Host.BaseURL = expandEnvString(cfg.Host.BaseURL)
	cfg.Host.Token = expandEnvString(cfg.Host.Token)
	cfg.Host.CloneBaseURL = expandEnvString(cfg.Host.CloneBaseURL)
	cfg.Host.Repository = expandEnvString(cfg.Host.Repository)
	cfg.Engine.BaseURL = expandEnvString(cfg.Engine.BaseURL)
	cfg.Engine.APIKey = expandEnvString(cfg.Engine.APIKey)
	cfg.Engine.Model = expandEnvString(cfg.Engine.Model)
	cfg.Store.Path = expandEnvString(cfg.Store.Path)
	cfg.Observability.Logging.Level = expandEnvString(cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = expandEnvString(cfg.Observability.Logging.Format)
	return cfg
}

var (
	bracedVarPattern = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	bareVarPattern   = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
)

// expandEnvString replaces ${VAR} or $VAR with environment variable values,
// keeping the original text when the variable is unset.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}

	s = bracedVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})

	return bareVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[1:]); val != "" {
			return val
		}
		return match
	})
}
