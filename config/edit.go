package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/vidresolve/vidresolve/constant"
	"github.com/vidresolve/vidresolve/where"
)

// UnknownKeyError is returned for keys that are not registered.
type UnknownKeyError struct {
	Key     string
	Closest string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key %s, did you mean %s?", e.Key, e.Closest)
}

// Lookup returns the registered field for k.
func Lookup(k string) (Field, error) {
	if f, ok := Default[k]; ok {
		return f, nil
	}

	closest := lo.MinBy(lo.Keys(Default), func(a, b string) bool {
		return levenshtein.Distance(k, a) < levenshtein.Distance(k, b)
	})
	return Field{}, &UnknownKeyError{Key: k, Closest: closest}
}

// Fields returns the fields named by keys ordered by key, or every field when keys is empty.
func Fields(keys ...string) ([]Field, error) {
	if len(keys) == 0 {
		keys = lo.Keys(Default)
	}

	fields := make([]Field, 0, len(keys))
	for _, k := range lo.Uniq(keys) {
		f, err := Lookup(k)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	slices.SortFunc(fields, func(a, b Field) int { return strings.Compare(a.Key, b.Key) })
	return fields, nil
}

// Section is the key prefix before the first dot, e.g. "resolver".
func (f *Field) Section() string {
	section, _, _ := strings.Cut(f.Key, ".")
	return section
}

// Changed reports whether the effective value differs from the default.
func (f *Field) Changed() bool {
	return fmt.Sprint(viper.Get(f.Key)) != fmt.Sprint(f.Value)
}

// unit is the duration unit an integer key is expressed in, from its suffix.
func (f *Field) unit() (time.Duration, bool) {
	switch {
	case strings.HasSuffix(f.Key, "_ms"):
		return time.Millisecond, true
	case strings.HasSuffix(f.Key, "_seconds"):
		return time.Second, true
	case strings.HasSuffix(f.Key, "_minutes"):
		return time.Minute, true
	}
	return 0, false
}

// Duration is the effective value of an integer key holding a duration.
func (f *Field) Duration() (time.Duration, bool) {
	unit, ok := f.unit()
	if !ok {
		return 0, false
	}
	return time.Duration(viper.GetInt(f.Key)) * unit, true
}

// Parse converts command line values into the type of the field's default.
// Integer keys holding a duration also accept Go duration strings such as "4h" or "1500ms".
func (f *Field) Parse(raw []string) (any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: value required", f.Key)
	}

	switch f.Value.(type) {
	case []string:
		return raw, nil
	case bool:
		b, err := strconv.ParseBool(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%s expects true or false, got %q", f.Key, raw[0])
		}
		return b, nil
	case int:
		if n, err := strconv.Atoi(raw[0]); err == nil {
			return n, nil
		}
		if unit, ok := f.unit(); ok {
			if d, err := time.ParseDuration(raw[0]); err == nil {
				return int(d / unit), nil
			}
			return nil, fmt.Errorf("%s expects an integer or a duration, got %q", f.Key, raw[0])
		}
		return nil, fmt.Errorf("%s expects an integer, got %q", f.Key, raw[0])
	default:
		return strings.Join(raw, " "), nil
	}
}

// Path is the configuration file written by Save.
func Path() string {
	return filepath.Join(where.Config(), constant.App+".toml")
}

// Save persists the current settings, creating the file on first use.
func Save() error {
	err := viper.WriteConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return viper.SafeWriteConfigAs(Path())
	}
	return err
}
