package config

import (
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/soyunomas/duplink/internal/hasher"
)

type Config struct {
	Scanner struct {
		MinSize        int64    `mapstructure:"min_size"`
		Excludes       []string `mapstructure:"excludes"`
		FollowSymlinks bool     `mapstructure:"follow_symlinks"`
	} `mapstructure:"scanner"`
	Hasher struct {
		FirstBlock int64 `mapstructure:"first_block"`
		MaxBlock   int64 `mapstructure:"max_block"`
	} `mapstructure:"hasher"`
	Performance struct {
		Workers int `mapstructure:"workers"`
	} `mapstructure:"performance"`
	Keep struct {
		Strategy string `mapstructure:"strategy"`
	} `mapstructure:"keep"`
	Logging struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"logging"`
}

// flagKeys relaciona cada flag de la CLI con su clave de configuración.
var flagKeys = map[string]string{
	"min-size":        "scanner.min_size",
	"follow-symlinks": "scanner.follow_symlinks",
	"workers":         "performance.workers",
	"keep":            "keep.strategy",
	"log-level":       "logging.level",
	"log-file":        "logging.file",
}

// Load lee config.yaml (o cfgFile si no está vacío), variables DUPLINK_* y
// las flags indicadas. Prioridad: flag > env > archivo > default.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.duplink")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/duplink")
	}

	v.SetEnvPrefix("duplink")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("scanner.min_size", 1024)
	v.SetDefault("scanner.excludes", []string{".git", "node_modules", ".DS_Store"})
	v.SetDefault("scanner.follow_symlinks", false)
	v.SetDefault("hasher.first_block", hasher.PreHashSize)
	v.SetDefault("hasher.max_block", hasher.MaxBlockSize)
	v.SetDefault("performance.workers", runtime.NumCPU())
	v.SetDefault("keep.strategy", "shortest")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "flag %s", name)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "leyendo configuración")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decodificando configuración")
	}
	return &cfg, nil
}
