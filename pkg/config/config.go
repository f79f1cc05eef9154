// Package config loads flowcraft's TOML configuration.
//
// The file lives at $XDG_CONFIG_HOME/flowcraft/config.toml, falling back to
// ~/.config/flowcraft/config.toml. A missing file yields [Default]; keys the
// configuration does not know are rejected so typos surface early.
//
//	[catalog]
//	url = "https://catalog.internal/api"
//	timeout = "10s"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "24h"
//
//	[decompile]
//	concurrency = 8
//	spacing = 250.0
//
//	[canvas]
//	node_width = 180
//	node_height = 60
//	handle_size = 16
//
//	[server]
//	addr = ":8080"
//	session_ttl = "2h"
//
// Command-line flags override file values; see internal/cli.
package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/flowcraft/pkg/cache"
	"github.com/matzehuels/flowcraft/pkg/decompile"
	"github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/flow/proximity"
	"github.com/matzehuels/flowcraft/pkg/httputil"
	"github.com/matzehuels/flowcraft/pkg/session"
)

const (
	appName  = "flowcraft"
	fileName = "config.toml"
)

// Config is the complete configuration.
type Config struct {
	Catalog   Catalog   `toml:"catalog"`
	Cache     Cache     `toml:"cache"`
	Decompile Decompile `toml:"decompile"`
	Canvas    Canvas    `toml:"canvas"`
	Server    Server    `toml:"server"`
}

// Catalog selects the data catalog. URL and MongoURI are mutually exclusive; with
// neither set, decompilation serves the descriptors embedded in the document.
type Catalog struct {
	URL           string            `toml:"url" validate:"omitempty,url,excluded_with=MongoURI"`
	Timeout       Duration          `toml:"timeout" validate:"gte=0"`
	Headers       map[string]string `toml:"headers"`
	MongoURI      string            `toml:"mongo_uri"`
	MongoDatabase string            `toml:"mongo_database"`
}

// Cache configures the catalog lookup cache.
type Cache struct {
	Backend   string   `toml:"backend" validate:"oneof=file redis none"`
	Dir       string   `toml:"dir"`
	TTL       Duration `toml:"ttl" validate:"gte=0"`
	RedisAddr string   `toml:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB   int      `toml:"redis_db" validate:"gte=0"`
}

// Decompile tunes decompilation.
type Decompile struct {
	Concurrency int     `toml:"concurrency" validate:"gte=1,lte=64"`
	Spacing     float64 `toml:"spacing" validate:"gt=0"`
}

// Canvas holds the on-screen sizes used by auto-connect.
type Canvas struct {
	NodeWidth  float64 `toml:"node_width" validate:"gt=0"`
	NodeHeight float64 `toml:"node_height" validate:"gt=0"`
	HandleSize float64 `toml:"handle_size" validate:"gt=0"`
}

// Server configures `flowcraft serve`.
type Server struct {
	Addr            string   `toml:"addr" validate:"required"`
	SessionTTL      Duration `toml:"session_ttl" validate:"gt=0"`
	SessionDir      string   `toml:"session_dir"`
	CleanupInterval Duration `toml:"cleanup_interval" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Catalog: Catalog{
			Timeout:       Duration(httputil.DefaultTimeout),
			MongoDatabase: "flowcraft",
		},
		Cache: Cache{
			Backend: cache.BackendFile,
			TTL:     Duration(cache.SourceTTL),
		},
		Decompile: Decompile{
			Concurrency: decompile.DefaultConcurrency,
			Spacing:     decompile.DefaultSpacing,
		},
		Canvas: Canvas{
			NodeWidth:  proximity.DefaultDimensions.NodeWidth,
			NodeHeight: proximity.DefaultDimensions.NodeHeight,
			HandleSize: proximity.DefaultDimensions.HandleSize,
		},
		Server: Server{
			Addr:            ":8080",
			SessionTTL:      Duration(session.DefaultTTL),
			CleanupInterval: Duration(5 * time.Minute),
		},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, fileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, fileName), nil
}

// Load reads the config file at path, or at [Path] when path is empty. A missing
// file at the default location yields [Default]; a missing explicit path is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses TOML over [Default] and validates the result.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, errors.New(errors.ErrCodeInvalidInput, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, formatValidationError(err), "invalid config")
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	e := verrs[0]
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	switch e.Tag() {
	case "oneof":
		return fmt.Errorf("%s: must be one of [%s], got %v", field, e.Param(), e.Value())
	case "required", "required_if":
		return fmt.Errorf("%s: field is required", field)
	case "excluded_with":
		return fmt.Errorf("%s: cannot be combined with %s", field, e.Param())
	default:
		return fmt.Errorf("%s: validation failed (%s=%s)", field, e.Tag(), e.Param())
	}
}

// CacheOptions converts the [cache] section for [cache.Open].
func (c Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:   c.Cache.Backend,
		Dir:       c.Cache.Dir,
		RedisAddr: c.Cache.RedisAddr,
		RedisDB:   c.Cache.RedisDB,
	}
}

// ProximityOptions converts the [canvas] section for auto-connect.
func (c Config) ProximityOptions() proximity.Options {
	return proximity.Options{Dimensions: proximity.Dimensions{
		NodeWidth:  c.Canvas.NodeWidth,
		NodeHeight: c.Canvas.NodeHeight,
		HandleSize: c.Canvas.HandleSize,
	}}
}

// Duration is a time.Duration written as a Go duration string ("10s", "24h").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }
