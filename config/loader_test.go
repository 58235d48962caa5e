package config

import (
	"testing"
	"time"

	perrors "polygon/internal/errors"
)

func TestLoadFromEnv_OriginalVars(t *testing.T) {
	t.Setenv("BIND_ADDRS", "192.168.1.10")
	t.Setenv("BIND_PORT", "5070")
	t.Setenv("DEST_ADDRS", "192.168.1.20")
	t.Setenv("DEST_PORT", "5071")

	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if len(cfg.BindAddresses) != 1 || cfg.BindAddresses[0].String() != "192.168.1.10:5070" {
		t.Errorf("BindAddresses = %v", cfg.BindAddresses)
	}
	if cfg.Destination == nil || cfg.Destination.String() != "192.168.1.20:5071" {
		t.Errorf("Destination = %v", cfg.Destination)
	}
}

// TestLoadFromEnv_PartialAddress verifies a lone port keeps the
// current IP.
func TestLoadFromEnv_PartialAddress(t *testing.T) {
	t.Setenv("DEST_PORT", "6000")
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Destination.String() != "127.0.0.1:6000" {
		t.Errorf("Destination = %v", cfg.Destination)
	}
}

func TestLoadFromEnv_PartialWithoutCurrent(t *testing.T) {
	t.Setenv("DEST_PORT", "6000")
	cfg := Default()
	cfg.Destination = nil
	if err := LoadFromEnv(cfg); err == nil {
		t.Error("expected error: DEST_ADDRS missing and no current destination")
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct{ key, value string }{
		{"BIND_ADDRS", "not-an-ip"},
		{"BIND_PORT", "70000"},
		{"DEST_PORT", "abc"},
		{"POLYGON_TIMEOUT", "soon"},
		{"POLYGON_ATTEMPTS", "three"},
		{"POLYGON_DELAYS", "1,x"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			err := LoadFromEnv(Default())
			var ce *perrors.ConfigError
			if !perrors.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if ce.Field != "env "+tt.key {
				t.Errorf("Field = %q", ce.Field)
			}
		})
	}
}

func TestLoadFromEnv_Exchange(t *testing.T) {
	t.Setenv("POLYGON_TIMEOUT", "250ms")
	t.Setenv("POLYGON_ATTEMPTS", "7")
	t.Setenv("POLYGON_DELAYS", "100, 200,1s")
	t.Setenv("POLYGON_CODEC", "TOML")
	t.Setenv("POLYGON_NO_FILTER", "yes")
	t.Setenv("POLYGON_METRICS", "1")
	t.Setenv("POLYGON_VERBOSE", "2")

	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != 250*time.Millisecond {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d", cfg.MaxAttempts)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, time.Second}
	if len(cfg.Delays) != 3 || cfg.Delays[0] != want[0] || cfg.Delays[1] != want[1] || cfg.Delays[2] != want[2] {
		t.Errorf("Delays = %v, want %v", cfg.Delays, want)
	}
	if cfg.Codec != "toml" || cfg.FilterSource || !cfg.Metrics || cfg.Verbose != 2 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadFromEnv_TimeoutMillis(t *testing.T) {
	t.Setenv("POLYGON_TIMEOUT", "1500")
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != 1500*time.Millisecond {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
}

func TestLoadFromEnv_EmptyIsNoop(t *testing.T) {
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Destination.String() != "127.0.0.1:5061" || cfg.Timeout != DefaultTimeout {
		t.Error("empty environment should not change anything")
	}
}

func TestParseDelays(t *testing.T) {
	d, err := ParseDelays("10,,20ms, 1s")
	if err != nil {
		t.Fatal(err)
	}
	if len(d) != 3 || d[0] != 10*time.Millisecond || d[2] != time.Second {
		t.Errorf("got %v", d)
	}
	if _, err := ParseDelays("-5ms"); err == nil {
		t.Error("negative delay should fail")
	}
}

func TestEnvBool(t *testing.T) {
	for _, v := range []string{"1", "true", "yes", "TRUE", "Yes"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("POLYGON_TEST_BOOL", v)
			if !envBool("POLYGON_TEST_BOOL") {
				t.Errorf("envBool(%q) = false", v)
			}
		})
	}
	t.Setenv("POLYGON_TEST_BOOL", "no")
	if envBool("POLYGON_TEST_BOOL") {
		t.Error(`envBool("no") = true`)
	}
}
