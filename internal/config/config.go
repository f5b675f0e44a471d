// Package config loads shuttle server configuration with
// github.com/knadh/koanf/v2: built-in defaults, merged with a YAML file,
// merged with SHUTTLE_-prefixed environment overrides, highest layer wins.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// Config holds every knob a shuttle server needs at startup.
type Config struct {
	ListenAddr      string        `koanf:"listen_addr"`
	WebsocketPath   string        `koanf:"websocket_path"`
	SlabCapacity    int           `koanf:"slab_capacity"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	JWTKey          string        `koanf:"jwt_key"`
	AllowAnonymous  bool          `koanf:"allow_anonymous"`
	UpgradeRPS      float64       `koanf:"upgrade_rps"`
	UpgradeBurst    int           `koanf:"upgrade_burst"`
	BreakerMaxFails uint32        `koanf:"breaker_max_fails"`
	BreakerOpenFor  time.Duration `koanf:"breaker_open_for"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		ListenAddr:      ":7878",
		WebsocketPath:   "/shuttle",
		SlabCapacity:    10,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    10 * time.Second,
		AllowAnonymous:  true,
		UpgradeRPS:      50,
		UpgradeBurst:    20,
		BreakerMaxFails: 5,
		BreakerOpenFor:  30 * time.Second,
	}
}

// Load reads path (if non-empty) as YAML, merges SHUTTLE_-prefixed
// environment variables on top, and returns the resulting Config. A missing
// path is not an error; Default() plus environment overrides still apply.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, errors.Wrap(err, "config: seed defaults")
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, errors.Wrapf(err, "config: load %s", path)
		}
	}

	// Keys are flat, so SHUTTLE_SLAB_CAPACITY maps to slab_capacity directly.
	err := k.Load(env.Provider("SHUTTLE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SHUTTLE_"))
	}), nil)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: load environment")
	}

	var out Config
	if err := k.Unmarshal("", &out); err != nil {
		return Config{}, errors.Wrap(err, "config: unmarshal")
	}
	return out, nil
}
