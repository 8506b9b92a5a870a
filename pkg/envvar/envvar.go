// Package envvar applies environment variable overrides onto config
// fields. Every helper is a no-op when the key is empty, the variable is
// unset, or its value does not parse.
package envvar

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Lookup returns the value of key when key is named and the variable is
// non-empty.
func Lookup(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	v := os.Getenv(key)
	return v, v != ""
}

func String(dst *string, key string) {
	if v, ok := Lookup(key); ok {
		*dst = v
	}
}

func Int(dst *int, key string) {
	if v, ok := Lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func Bool(dst *bool, key string) {
	if v, ok := Lookup(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func Float(dst *float64, key string) {
	if v, ok := Lookup(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// Duration keeps the raw string so validation can report bad input.
func Duration(dst *string, key string) {
	if v, ok := Lookup(key); ok {
		if _, err := time.ParseDuration(v); err == nil {
			*dst = v
		}
	}
}

// List splits a comma-separated value, dropping blank entries.
func List(dst *[]string, key string) {
	if v, ok := Lookup(key); ok {
		*dst = Split(v)
	}
}

func Split(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
