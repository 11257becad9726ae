// Package auth stores the rescan trigger secret in the system keyring.
package auth

import (
	"errors"

	"github.com/spf13/viper"
	"github.com/vidresolve/vidresolve/constant"
	"github.com/vidresolve/vidresolve/key"
	"github.com/zalando/go-keyring"
)

const user = "rescan-secret"

// ErrNotFound is returned when no secret is configured anywhere.
var ErrNotFound = keyring.ErrNotFound

// SetSecret persists the rescan secret to the system keyring.
func SetSecret(secret string) error {
	return keyring.Set(constant.App, user, secret)
}

// GetSecret retrieves the rescan secret from the system keyring.
func GetSecret() (string, error) {
	return keyring.Get(constant.App, user)
}

// DeleteSecret removes the rescan secret from the system keyring.
func DeleteSecret() error {
	return keyring.Delete(constant.App, user)
}

// Secret resolves the active rescan secret. Configuration wins over the keyring;
// the empty string means rescans are not authorized.
func Secret() (string, error) {
	if s := viper.GetString(key.RescanSecret); s != "" {
		return s, nil
	}

	s, err := GetSecret()
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return s, err
}
