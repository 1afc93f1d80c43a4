package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/rupor-github/gencfg"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if !cfg.Template.SpaceDuplicates {
		t.Error("SpaceDuplicates should be on by default")
	}
	if !cfg.Template.StrictIDs {
		t.Error("StrictIDs should be on by default")
	}
	if cfg.Template.MissingMaster != MasterPolicyImport {
		t.Errorf("MissingMaster = %v, want import", cfg.Template.MissingMaster)
	}
	if len(cfg.Template.FalsyLiterals) != 6 || slices.Contains(cfg.Template.FalsyLiterals, "None") {
		t.Errorf("FalsyLiterals = %v", cfg.Template.FalsyLiterals)
	}
	if filepath.Base(cfg.Logging.FileLogger.Destination) != "vtpl.log" {
		t.Errorf("log destination = %q", cfg.Logging.FileLogger.Destination)
	}
	if filepath.Base(cfg.Reporting.Destination) != "vtpl-report.zip" {
		t.Errorf("report destination = %q", cfg.Reporting.Destination)
	}
	if cfg.Document.OutputNameTemplate != "{{ .SourceFile }}_rendered" {
		t.Errorf("OutputNameTemplate should not be expanded, got %q", cfg.Document.OutputNameTemplate)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	configPath := writeConfig(t, `version: 1
template:
  space_duplicates: false
  strict_ids: false
  missing_master: error
document:
  output_name_template: "{{ .SourceFile }}-{{ .Pages }}"
  overwrite: true
logging:
  console:
    level: normal
  file:
    level: debug
    destination: /tmp/test.log
    mode: append
reporting:
  destination: /tmp/test-report.zip
`)

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if cfg.Template.SpaceDuplicates || cfg.Template.StrictIDs {
		t.Error("Expected template flags to be overridden")
	}
	if cfg.Template.MissingMaster != MasterPolicyError {
		t.Errorf("MissingMaster = %v, want error", cfg.Template.MissingMaster)
	}
	if !cfg.Document.Overwrite {
		t.Error("Expected Overwrite to be true")
	}
	if cfg.Logging.FileLogger.Mode != "append" {
		t.Errorf("FileLogger.Mode = %q", cfg.Logging.FileLogger.Mode)
	}
	// not mentioned in file, must come from defaults
	if len(cfg.Template.FalsyLiterals) == 0 {
		t.Error("FalsyLiterals should keep default value")
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `version: 1
template:
  strict_ids: true
  invalid indent
`)
	if _, err := LoadConfiguration(configPath); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoadConfiguration_UnknownFields(t *testing.T) {
	configPath := writeConfig(t, `version: 1
unknown_field: value
`)
	if _, err := LoadConfiguration(configPath); err == nil {
		t.Error("Expected error for unknown fields")
	}
}

func TestLoadConfiguration_BadMasterPolicy(t *testing.T) {
	configPath := writeConfig(t, `version: 1
template:
  missing_master: ignore
`)
	if _, err := LoadConfiguration(configPath); err == nil {
		t.Error("Expected error for unknown missing_master policy")
	}
}

func TestLoadConfiguration_ValidationError(t *testing.T) {
	configPath := writeConfig(t, "version: 2\n")
	if _, err := LoadConfiguration(configPath); err == nil {
		t.Error("Expected validation error for invalid version")
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Prepare() returned empty data")
	}
	if _, err = unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Template.MissingMaster = MasterPolicyError

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if !strings.Contains(string(data), "missing_master: error") {
		t.Errorf("policy should be dumped by name:\n%s", data)
	}

	cfg2, err := unmarshalConfig(data, &Config{}, false)
	if err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}
	if cfg2.Template.MissingMaster != MasterPolicyError {
		t.Errorf("MissingMaster mismatch after dump/load: got %v", cfg2.Template.MissingMaster)
	}
}

func TestMasterPolicy(t *testing.T) {
	tests := []struct {
		input     string
		expected  MasterPolicy
		shouldErr bool
	}{
		{"import", MasterPolicyImport, false},
		{"error", MasterPolicyError, false},
		{"skip", MasterPolicyImport, true},
		{"", MasterPolicyImport, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var p MasterPolicy
			err := p.UnmarshalText([]byte(tt.input))
			if tt.shouldErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("UnmarshalText() error = %v", err)
			}
			if p != tt.expected {
				t.Errorf("UnmarshalText(%q) = %v, want %v", tt.input, p, tt.expected)
			}
		})
	}
	if s := MasterPolicy(7).String(); s != "MasterPolicy(7)" {
		t.Errorf("String() = %q", s)
	}
}

func TestUnmarshalConfig_WrapsValidationError(t *testing.T) {
	_, err := unmarshalConfig([]byte("version: 99\n"), &Config{}, true)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "validat") {
		t.Errorf("expected error to mention validation, got: %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Errorf("expected wrapped error, got bare error: %v", err)
	}
}
