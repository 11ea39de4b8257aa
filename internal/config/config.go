// Package config loads eztscan settings from defaults, an optional
// eztscan.yaml file, EZTSCAN_* environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Defaults.
const (
	DefaultDB            = ".eztscan.db"
	DefaultExtensions    = ".esy,.mac,.ezt"
	DefaultEncoding      = "UTF-8"
	DefaultFormat        = "text"
	DefaultModuleTimeout = 30 * time.Second
	FileName             = "eztscan.yaml"
	EnvPrefix            = "EZTSCAN_"
)

// Config holds every setting of the CLI.
type Config struct {
	DB            string        `koanf:"db"`
	Extensions    string        `koanf:"extensions"`
	Encoding      string        `koanf:"encoding"`
	Workers       int           `koanf:"workers"`
	Parallel      bool          `koanf:"parallel"`
	ModuleTimeout time.Duration `koanf:"module_timeout"`
	Verbose       bool          `koanf:"verbose"`
	Format        string        `koanf:"format"`

	// File is the configuration file that was read, if any.
	File string `koanf:"-"`
}

// ExtensionList returns the configured extensions, lower-cased and each
// starting with a dot.
func (c *Config) ExtensionList() []string {
	var out []string
	for _, ext := range strings.Split(c.Extensions, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// Load reads the configuration. cfgFile names an explicit file; when empty,
// eztscan.yaml in the working directory is used if present. Only flags
// that were set on the command line override other sources.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"db":             DefaultDB,
		"extensions":     DefaultExtensions,
		"encoding":       DefaultEncoding,
		"workers":        runtime.NumCPU(),
		"parallel":       true,
		"module_timeout": DefaultModuleTimeout,
		"verbose":        false,
		"format":         DefaultFormat,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", used, err)
		}
	}

	// EZTSCAN_MODULE_TIMEOUT -> module_timeout
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = used
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1, got %d", c.Workers)
	}
	if c.ModuleTimeout < 0 {
		return fmt.Errorf("config: module_timeout must not be negative, got %s", c.ModuleTimeout)
	}
	switch c.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("config: unknown format %q", c.Format)
	}
	if len(c.ExtensionList()) == 0 {
		return fmt.Errorf("config: no source extensions configured")
	}
	return nil
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{FileName, strings.TrimSuffix(FileName, ".yaml") + ".yml"} {
		if _, err := os.Stat(name); err == nil {
			return filepath.Clean(name)
		}
	}
	return ""
}
