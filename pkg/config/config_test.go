package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	opts := Default()
	if opts.Port != 5000 {
		t.Errorf("Port = %d, want 5000", opts.Port)
	}
	if opts.InitialDataCount != 10 {
		t.Errorf("InitialDataCount = %d, want 10", opts.InitialDataCount)
	}
	if opts.AuthMode != "none" {
		t.Errorf("AuthMode = %q, want none", opts.AuthMode)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := writeTemp(t, "config.yaml", `
port: 8080
enableCors: true
errorRate: 0.25
errorCodes: [500, 503]
authMode: bearer
authKey: secret
`)

	opts, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if opts.Port != 8080 {
		t.Errorf("Port = %d, want 8080", opts.Port)
	}
	if !opts.EnableCORS {
		t.Error("EnableCORS = false, want true")
	}
	if opts.ErrorRate != 0.25 {
		t.Errorf("ErrorRate = %v, want 0.25", opts.ErrorRate)
	}
	if len(opts.ErrorCodes) != 2 {
		t.Errorf("ErrorCodes = %v", opts.ErrorCodes)
	}
	// Unset keys keep defaults.
	if opts.InitialDataCount != 10 {
		t.Errorf("InitialDataCount = %d, want default 10", opts.InitialDataCount)
	}
}

func TestLoadFileJSON(t *testing.T) {
	path := writeTemp(t, "config.json", `{"port": 9090, "verbose": true}`)

	opts, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if opts.Port != 9090 || !opts.Verbose {
		t.Errorf("got port=%d verbose=%v", opts.Port, opts.Verbose)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("missing file: got %v, want ErrFileNotFound", err)
	}

	empty := writeTemp(t, "empty.json", "")
	if _, err := LoadFile(empty); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("empty file: got %v, want ErrEmptyFile", err)
	}

	bad := writeTemp(t, "bad.json", "{not json")
	if _, err := LoadFile(bad); !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("bad json: got %v, want ErrInvalidJSON", err)
	}

	badYAML := writeTemp(t, "bad.yaml", "port: [unclosed")
	if _, err := LoadFile(badYAML); !errors.Is(err, ErrInvalidYAML) {
		t.Errorf("bad yaml: got %v, want ErrInvalidYAML", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"port zero", func(o *Options) { o.Port = 0 }, true},
		{"port too big", func(o *Options) { o.Port = 70000 }, true},
		{"negative error rate", func(o *Options) { o.ErrorRate = -0.1 }, true},
		{"error rate above one", func(o *Options) { o.ErrorRate = 1.5 }, true},
		{"inverted delay range", func(o *Options) { o.DelayMinMs = 200; o.DelayMaxMs = 100 }, true},
		{"negative seed count", func(o *Options) { o.InitialDataCount = -1 }, true},
		{"valid range", func(o *Options) { o.DelayMinMs = 100; o.DelayMaxMs = 200 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Default()
			tt.mutate(&opts)
			err := opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddr(t *testing.T) {
	opts := Options{Host: "127.0.0.1", Port: 8080}
	if got := opts.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
}
