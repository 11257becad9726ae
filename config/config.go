// Package config manages application settings, defaults and the Viper-based configuration engine.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/vidresolve/vidresolve/constant"
	"github.com/vidresolve/vidresolve/filesystem"
	"github.com/vidresolve/vidresolve/key"
	"github.com/vidresolve/vidresolve/where"
)

// EnvKeyReplacer normalizes configuration keys into environment variable names.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup initializes defaults, environment bindings and the TOML config file.
func Setup() error {
	viper.SetConfigName(constant.App)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.App)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	return nil
}

// Millis reads an integer key holding milliseconds.
func Millis(k string) time.Duration {
	return time.Duration(viper.GetInt(k)) * time.Millisecond
}

// Seconds reads an integer key holding seconds.
func Seconds(k string) time.Duration {
	return time.Duration(viper.GetInt(k)) * time.Second
}

// Minutes reads an integer key holding minutes.
func Minutes(k string) time.Duration {
	return time.Duration(viper.GetInt(k)) * time.Minute
}

// UserAgent is the outbound User-Agent, honoring the override key.
func UserAgent() string {
	if ua := strings.TrimSpace(viper.GetString(key.ResolverUserAgent)); ua != "" {
		return ua
	}
	return constant.UserAgent
}
