package server

import (
	"testing"

	"github.com/rodrigomagnidea-lab/EzValuation/internal/config"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig(config.ServerConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Address != constants.DefaultServerAddress {
		t.Errorf("Address = %q, want %q", cfg.Address, constants.DefaultServerAddress)
	}
	if cfg.BodySizeBytes() != constants.DefaultMaxBodySizeBytes {
		t.Errorf("BodySizeBytes = %d, want %d", cfg.BodySizeBytes(), constants.DefaultMaxBodySizeBytes)
	}
}

func TestNewConfigOverrides(t *testing.T) {
	cfg, err := NewConfig(config.ServerConfig{
		Address:     "127.0.0.1:9090",
		MaxBodySize: "1M",
		CORSOrigins: []string{"http://localhost:5173"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Address != "127.0.0.1:9090" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.BodySizeBytes() != 1024*1024 {
		t.Errorf("BodySizeBytes = %d, want %d", cfg.BodySizeBytes(), 1024*1024)
	}
	if len(cfg.CORSOrigins) != 1 {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}

	cfg.SetBodySizeBytes(2048)
	if cfg.BodySizeBytes() != 2048 || cfg.MaxBodySize != "2048" {
		t.Errorf("SetBodySizeBytes did not apply: %d %q", cfg.BodySizeBytes(), cfg.MaxBodySize)
	}
	cfg.SetBodySizeBytes(-1)
	if cfg.BodySizeBytes() != 2048 {
		t.Errorf("negative size should be ignored, got %d", cfg.BodySizeBytes())
	}
}

func TestNewConfigInvalidSize(t *testing.T) {
	if _, err := NewConfig(config.ServerConfig{MaxBodySize: "ten megs"}); err == nil {
		t.Fatal("expected error for invalid size")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"", constants.DefaultMaxBodySizeBytes, false},
		{"512", 512, false},
		{"512B", 512, false},
		{"256K", 256 * 1024, false},
		{"256kb", 256 * 1024, false},
		{" 2M ", 2 * 1024 * 1024, false},
		{"1MB", 1024 * 1024, false},
		{"K", 0, true},
		{"12X", 0, true},
		{"1G", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseSize(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSize(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSize(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}
