package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "CONTRACTKEEPER"

// newViper builds a pre-configured Viper instance: YAML file type,
// CONTRACTKEEPER_ env prefix and a key replacer that maps "." → "_" so that
// "database.postgres.host" resolves to CONTRACTKEEPER_DATABASE_POSTGRES_HOST.
// Every leaf of Config is bound explicitly so env-only loading works for
// keys that no file mentions.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, reflect.TypeOf(Config{}), "")
	return v
}

// bindEnvs walks the mapstructure tags of t and binds each leaf key.
func bindEnvs(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		key := prefix
		if opts != "squash" {
			if key != "" {
				key += "."
			}
			key += name
		}
		ft := f.Type
		if ft.Kind() == reflect.Struct && ft.PkgPath() != "time" {
			bindEnvs(v, ft, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// Load reads the YAML file at configPath, merges CONTRACTKEEPER_* environment
// overrides, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigError, fmt.Sprintf("failed to read config file %q", configPath))
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CONTRACTKEEPER_* environment
// variables, with no config file required.
//
// Environment variable naming convention:
//
//	CONTRACTKEEPER_<SECTION>_<FIELD>   e.g.  CONTRACTKEEPER_AUTH_KEYCLOAK_BASE_URL
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigError, "failed to unmarshal configuration")
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the re-parsed Config
// after every write.  Only the log level and the sweep intervals are meant to
// be applied at runtime.  Invalid revisions are reported to onError (when
// non-nil) and never reach onChange.
func Watch(configPath string, onChange func(*Config), onError func(error)) {
	v := newViper()
	v.SetConfigFile(configPath)
	_ = v.ReadInConfig()

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// MustLoad wraps Load and panics on any error.  Intended for main().
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
