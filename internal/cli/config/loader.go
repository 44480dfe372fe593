package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	sharedcfg "github.com/spcai/labcms/internal/config"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store the loaded config in context.
type configKey struct{}

// sections are the nested configuration blocks. Environment variables and
// flags name a key inside a section as <section>_<key>.
var sections = []string{"rows", "blobs", "ui"}

// flagKeys maps flags whose names do not follow the <section>-<key> form.
var flagKeys = map[string]string{
	"bucket": "blobs.bucket",
	"port":   "ui.port",
	"watch":  "ui.watch",
}

// pathFlags are resolved against the working directory, not the project.
var pathFlags = map[string]bool{
	"rows-path":  true,
	"blobs-root": true,
	"blobs-path": true,
}

var configFileUsed string

// defaults are the lowest configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"rows.driver":         sharedcfg.DefaultRowsDriver,
		"blobs.driver":        sharedcfg.DefaultBlobsDriver,
		"blobs.bucket":        sharedcfg.DefaultBucket,
		"ui.port":             sharedcfg.DefaultUIPort,
		"ui.auto_open":        false,
		"ui.watch":            true,
		"ui.items_per_page":   sharedcfg.DefaultItemsPerPage,
		"ui.shutdown_timeout": fmt.Sprintf("%ds", sharedcfg.DefaultShutdownSeconds),
		"verbose":             false,
		"output":              DefaultOutput,
	}
}

// sectionKey turns "ui_session_secret" into "ui.session_secret".
func sectionKey(key string) string {
	for _, s := range sections {
		if rest, ok := strings.CutPrefix(key, s+"_"); ok {
			return s + "." + rest
		}
	}
	return key
}

// envKey maps LABCMS_ROWS_PATH to rows.path.
func envKey(s string) string {
	return sectionKey(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)))
}

// flagKey maps --rows-path to rows.path.
func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return sectionKey(strings.ReplaceAll(name, "-", "_"))
}

// findConfigFile returns the explicit file, or the config file of the
// project found upward from the working directory.
func findConfigFile(explicit string) (string, string) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			abs = explicit
		}
		return abs, filepath.Dir(abs)
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	if root := sharedcfg.FindProjectRoot(cwd); root != "" {
		return sharedcfg.FindConfigFile(root), root
	}
	return "", cwd
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	path, root := findConfigFile(cfgFile)
	configFileUsed = path
	if path != "" {
		fk, err := sharedcfg.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Merge(fk); err != nil {
			return nil, fmt.Errorf("failed to merge config file %s: %w", path, err)
		}
	}

	// 3. Environment variables (LABCMS_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			if pathFlags[f.Name] && f.Value.String() != ":memory:" {
				if abs, err := filepath.Abs(f.Value.String()); err == nil {
					return flagKey(f.Name), abs
				}
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Decode
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = root
	cfg.expandEnvVars()

	platform := cfg.Platform()
	platform.ApplyDefaults()
	platform.ResolvePaths(root)
	cfg.Rows, cfg.Blobs = platform.Rows, platform.Blobs

	ui := cfg.GetUIConfig()
	if cfg.Blobs.PublicURL == "" {
		cfg.Blobs.PublicURL = fmt.Sprintf("http://localhost:%d", ui.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Rows.Validate(); err != nil {
		return err
	}
	if err := c.Blobs.Validate(); err != nil {
		return err
	}
	if c.UI != nil && (c.UI.Port < 0 || c.UI.Port > 65535) {
		return fmt.Errorf("ui.port must be between 0 and 65535, got %d", c.UI.Port)
	}
	return nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config loaded for the command, or nil.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return nil
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandEnvVars expands environment variables in connection and secret fields.
func (c *Config) expandEnvVars() {
	if c.Rows != nil {
		c.Rows.Host = expandEnvVars(c.Rows.Host)
		c.Rows.User = expandEnvVars(c.Rows.User)
		c.Rows.Password = expandEnvVars(c.Rows.Password)
		c.Rows.Database = expandEnvVars(c.Rows.Database)
		c.Rows.Path = expandEnvVars(c.Rows.Path)
	}
	if c.Blobs != nil {
		c.Blobs.Root = expandEnvVars(c.Blobs.Root)
		c.Blobs.PublicURL = expandEnvVars(c.Blobs.PublicURL)
	}
	if c.UI != nil {
		c.UI.SessionSecret = expandEnvVars(c.UI.SessionSecret)
	}
}
