package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	perrors "polygon/internal/errors"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every polygon-specific env var uses the POLYGON_ prefix.  Boolean
// values accept "1", "true", "yes" (case-insensitive).  The unprefixed
// BIND_ADDRS / BIND_PORT / DEST_ADDRS / DEST_PORT quartet describes a
// single bind address and destination; an IP or port given alone
// replaces just that half of the current address.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  A value that does not parse
// is a *errors.ConfigError.
func LoadFromEnv(cfg *Config) error {
	if err := envAddress("BIND_ADDRS", "BIND_PORT", firstBind(cfg), func(a Address) {
		cfg.BindAddresses = []Address{a}
	}); err != nil {
		return err
	}
	if err := envAddress("DEST_ADDRS", "DEST_PORT", cfg.Destination, func(a Address) {
		cfg.Destination = &a
	}); err != nil {
		return err
	}

	if v := os.Getenv("POLYGON_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return envErr("POLYGON_TIMEOUT", v, err.Error())
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("POLYGON_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envErr("POLYGON_ATTEMPTS", v, "not an integer")
		}
		cfg.MaxAttempts = n
	}
	if v := os.Getenv("POLYGON_DELAYS"); v != "" {
		d, err := ParseDelays(v)
		if err != nil {
			return envErr("POLYGON_DELAYS", v, err.Error())
		}
		cfg.Delays = d
	}
	if v := os.Getenv("POLYGON_CODEC"); v != "" {
		cfg.Codec = strings.ToLower(v)
	}
	if envBool("POLYGON_NO_FILTER") {
		cfg.FilterSource = false
	}
	if envBool("POLYGON_METRICS") {
		cfg.Metrics = true
	}
	if v := envInt("POLYGON_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────

func firstBind(cfg *Config) *Address {
	if len(cfg.BindAddresses) == 0 {
		return nil
	}
	return &cfg.BindAddresses[0]
}

// envAddress reads an IP/port pair.  A missing half is taken from cur,
// and is an error when cur is nil.
func envAddress(ipKey, portKey string, cur *Address, set func(Address)) error {
	ipStr, portStr := os.Getenv(ipKey), os.Getenv(portKey)
	if ipStr == "" && portStr == "" {
		return nil
	}

	var a Address
	if cur != nil {
		a = *cur
	}
	if ipStr != "" {
		ip := net.ParseIP(ipStr)
		if ip == nil {
			return envErr(ipKey, ipStr, "invalid IP address")
		}
		a.IP = ip
	} else if cur == nil {
		return envErr(ipKey, nil, "required when "+portKey+" is set")
	}
	if portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil || p < 0 || p > 65535 {
			return envErr(portKey, portStr, "invalid port")
		}
		a.Port = p
	} else if cur == nil {
		return envErr(portKey, nil, "required when "+ipKey+" is set")
	}
	set(a)
	return nil
}

func envErr(key string, value interface{}, msg string) error {
	return &perrors.ConfigError{Field: "env " + key, Value: value, Message: msg}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

// parseDuration accepts Go duration syntax or a bare millisecond count.
func parseDuration(s string) (time.Duration, error) {
	if ms, err := strconv.ParseUint(s, 10, 63); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// ParseDelays parses a comma-separated schedule such as "500,1000,2s".
// Bare numbers are milliseconds.
func ParseDelays(s string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := parseDuration(part)
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, perrors.New("negative delay " + part)
		}
		out = append(out, d)
	}
	return out, nil
}
