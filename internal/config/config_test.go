package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		wantPanic bool
	}{
		{name: "variable set", key: "PULSE_TEST_VAR", value: "test_value"},
		{name: "variable not set", key: "PULSE_TEST_VAR_MISSING", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestRequireEnvInt(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		expected  int
		wantPanic bool
	}{
		{name: "valid integer", key: "PULSE_TEST_INT", value: "42", expected: 42},
		{name: "invalid integer", key: "PULSE_TEST_INT_INVALID", value: "not_a_number", wantPanic: true},
		{name: "missing variable", key: "PULSE_TEST_INT_MISSING", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnvInt() should have panicked")
					}
				}()
			}

			result := requireEnvInt(tt.key)
			if !tt.wantPanic && result != tt.expected {
				t.Errorf("requireEnvInt() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestGetenvFloat(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  float64
	}{
		{name: "unset uses default", value: "", want: 50},
		{name: "valid float", value: "12.5", want: 12.5},
		{name: "invalid float uses default", value: "far", want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("PULSE_TEST_FLOAT", tt.value)
			}
			if got := getenvFloat("PULSE_TEST_FLOAT", 50); got != tt.want {
				t.Errorf("getenvFloat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	t.Setenv("PULSE_TEST_DURATION", "90s")
	if got := mustDuration("PULSE_TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("mustDuration() = %v, want 90s", got)
	}

	t.Setenv("PULSE_TEST_DURATION", "soon")
	if got := mustDuration("PULSE_TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("mustDuration() with invalid value = %v, want default", got)
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: nil},
		{name: "single", input: "https://pulse.example", expected: []string{"https://pulse.example"}},
		{name: "spaces and quotes", input: ` "a" , 'b',, c `, expected: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitAndTrim(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("splitAndTrim(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func clearPulseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PULSE_STORE", "PULSE_NEARBY_STRATEGY", "PULSE_NEARBY_CANDIDATE_LIMIT",
		"PULSE_DEFAULT_RADIUS_KM", "REDIS_ADDR", "REDIS_DB", "PULSE_LOG_LEVEL",
	} {
		if v, ok := os.LookupEnv(key); ok {
			t.Setenv(key, v)
			os.Unsetenv(key)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearPulseEnv(t)

	cfg := Load()

	if cfg.Store != StoreMemory {
		t.Errorf("Store = %q, want %q", cfg.Store, StoreMemory)
	}
	if cfg.NearbyStrategy != NearbyScan {
		t.Errorf("NearbyStrategy = %q, want %q", cfg.NearbyStrategy, NearbyScan)
	}
	if cfg.NearbyCandidateLimit != 100 {
		t.Errorf("NearbyCandidateLimit = %d, want 100", cfg.NearbyCandidateLimit)
	}
	if cfg.DefaultRadiusKm != 50 {
		t.Errorf("DefaultRadiusKm = %v, want 50", cfg.DefaultRadiusKm)
	}
	if cfg.TrendingWindow != 7*24*time.Hour {
		t.Errorf("TrendingWindow = %v, want 168h", cfg.TrendingWindow)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr should stay empty for the memory store, got %q", cfg.RedisAddr)
	}
}

func TestLoadPanics(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown store", env: map[string]string{"PULSE_STORE": "sqlite"}},
		{name: "redis without address", env: map[string]string{"PULSE_STORE": "redis", "REDIS_DB": "0"}},
		{name: "geo strategy on memory store", env: map[string]string{"PULSE_NEARBY_STRATEGY": "geo"}},
		{name: "unknown strategy", env: map[string]string{"PULSE_NEARBY_STRATEGY": "rtree"}},
		{name: "zero candidate limit", env: map[string]string{"PULSE_NEARBY_CANDIDATE_LIMIT": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearPulseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			defer func() {
				if r := recover(); r == nil {
					t.Errorf("Load() should have panicked")
				}
			}()
			Load()
		})
	}
}

func TestLoadRedis(t *testing.T) {
	clearPulseEnv(t)
	t.Setenv("PULSE_STORE", "redis")
	t.Setenv("PULSE_NEARBY_STRATEGY", "geo")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")

	cfg := Load()

	if cfg.RedisAddr != "localhost:6379" || cfg.RedisDB != 2 {
		t.Errorf("redis settings = %q/%d, want localhost:6379/2", cfg.RedisAddr, cfg.RedisDB)
	}
	if cfg.NearbyStrategy != NearbyGeo {
		t.Errorf("NearbyStrategy = %q, want geo", cfg.NearbyStrategy)
	}
}
