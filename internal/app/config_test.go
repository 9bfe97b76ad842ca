package app

import (
	"io"
	"log"
	"os"
	"testing"
	"time"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestGetenv(t *testing.T) {
	tests := []struct {
		name     string
		envKey   string
		envValue string
		defValue string
		want     string
	}{
		{
			name:     "env set",
			envKey:   "TEST_ENV_VAR",
			envValue: "custom_value",
			defValue: "default",
			want:     "custom_value",
		},
		{
			name:     "env not set",
			envKey:   "TEST_ENV_VAR_NOTSET",
			envValue: "",
			defValue: "default",
			want:     "default",
		},
		{
			name:     "empty default",
			envKey:   "TEST_ENV_VAR_EMPTY",
			envValue: "",
			defValue: "",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.envKey, tt.envValue)
				defer os.Unsetenv(tt.envKey)
			}

			got := getenv(tt.envKey, tt.defValue)
			if got != tt.want {
				t.Errorf("getenv(%q, %q) = %q, want %q", tt.envKey, tt.defValue, got, tt.want)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      int
		want     int
	}{
		{"value set", "24000", 16000, 24000},
		{"not set", "", 16000, 16000},
		{"invalid value", "not_a_number", 16000, 16000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_INT_" + tt.name
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
				defer os.Unsetenv(key)
			}
			if got := getenvInt(key, tt.def); got != tt.want {
				t.Errorf("getenvInt = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetenvFloat(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      float64
		want     float64
	}{
		{"value set", "225.5", 150, 225.5},
		{"not set", "", 150, 150},
		{"invalid value", "loud", 150, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_FLOAT_" + tt.name
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
				defer os.Unsetenv(key)
			}
			if got := getenvFloat(key, tt.def); got != tt.want {
				t.Errorf("getenvFloat = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetenvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      time.Duration
		want     time.Duration
	}{
		{"value set", "2500ms", time.Second, 2500 * time.Millisecond},
		{"not set", "", time.Second, time.Second},
		{"invalid value", "soon", time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_DUR_" + tt.name
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
				defer os.Unsetenv(key)
			}
			if got := getenvDuration(key, tt.def); got != tt.want {
				t.Errorf("getenvDuration = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr == "" {
		t.Error("HTTPAddr should have a default")
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", cfg.SampleRate)
	}
	if cfg.EnergyThreshold != 150 {
		t.Errorf("EnergyThreshold = %v, want 150", cfg.EnergyThreshold)
	}
	if cfg.GapTimeout != 1500*time.Millisecond {
		t.Errorf("GapTimeout = %v, want 1.5s", cfg.GapTimeout)
	}
	if cfg.AcquireTimeout != 3*time.Second {
		t.Errorf("AcquireTimeout = %v, want 3s", cfg.AcquireTimeout)
	}
	if cfg.MaxSegment != 7*time.Second {
		t.Errorf("MaxSegment = %v, want 7s", cfg.MaxSegment)
	}
	if cfg.KeepaliveInterval != 20*time.Second {
		t.Errorf("KeepaliveInterval = %v, want 20s", cfg.KeepaliveInterval)
	}
}

func TestNewRequiresDatabaseURL(t *testing.T) {
	old := os.Getenv("DATABASE_URL")
	os.Unsetenv("DATABASE_URL")
	defer func() {
		if old != "" {
			os.Setenv("DATABASE_URL", old)
		}
	}()

	cfg := LoadConfigFromEnv()
	if _, err := New(cfg, testLogger()); err == nil {
		t.Error("New without DATABASE_URL should fail")
	}
}
