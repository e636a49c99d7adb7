package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	config := DefaultConfig()
	config.Output = buf
	return New(config)
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	compLogger := logger.WithComponent(ComponentApp)

	compLogger.Debug("This should not appear")
	compLogger.Info("This should appear")
	compLogger.Warn("This should appear")
	compLogger.Error("This should appear")

	output := buf.String()
	if strings.Contains(output, "This should not appear") {
		t.Error("DEBUG message should be filtered out")
	}
	if got := strings.Count(output, "This should appear"); got != 3 {
		t.Errorf("Expected 3 INFO/WARN/ERROR lines, got %d", got)
	}
}

func TestLogger_Components(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.WithComponent(ComponentApp).Info("App message")
	logger.WithComponent(ComponentScanner).Info("Scanner message")

	output := buf.String()
	if !strings.Contains(output, "App message") {
		t.Error("App message should appear")
	}
	if strings.Contains(output, "Scanner message") {
		t.Error("Scanner message should be filtered out")
	}

	logger.EnableComponent(ComponentScanner)
	logger.WithComponent(ComponentScanner).Info("Scanner enabled")
	if !strings.Contains(buf.String(), "Scanner enabled") {
		t.Error("Scanner message should appear once enabled")
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.SetFormat(FormatJSON)

	logger.WithComponent(ComponentExtractor).Info("Test message", map[string]interface{}{
		"key": "value",
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("JSON output should parse: %v (%s)", err, buf.String())
	}
	if entry["level"] != "INFO" {
		t.Errorf("Expected level INFO, got %v", entry["level"])
	}
	if entry["component"] != "extractor" {
		t.Errorf("Expected component extractor, got %v", entry["component"])
	}
	if entry["message"] != "Test message" {
		t.Errorf("Expected message, got %v", entry["message"])
	}
}

func TestLogger_FieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.WithComponent(ComponentApp).Info("Test message", map[string]interface{}{
		"url":   "https://example.com",
		"count": 42,
	})

	output := strings.TrimSpace(buf.String())
	if !strings.HasSuffix(output, "count=42 url=https://example.com") {
		t.Errorf("Fields should be sorted by key, got %q", output)
	}
}

func TestComponentLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	base := logger.WithComponent(ComponentApp).With(map[string]interface{}{"extraction_id": "abc"})
	base.Info("first", map[string]interface{}{"stage": "fetched"})
	base.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "extraction_id=abc stage=fetched") {
		t.Errorf("Bound and call fields should merge, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "extraction_id=abc") || strings.Contains(lines[1], "stage") {
		t.Errorf("Call fields should not leak into later entries, got %q", lines[1])
	}
}

func TestComponentLogger_Nil(t *testing.T) {
	var cl *ComponentLogger
	cl.Info("ignored")
	if cl.With(map[string]interface{}{"a": 1}) != nil {
		t.Error("With on nil should stay nil")
	}
	Nop().WithComponent(ComponentApp).Error("ignored")
}

func TestLogger_Timestamp(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.Timestamp = true

	New(config).WithComponent(ComponentApp).Info("Test message")

	// YYYY-MM-DD HH:MM:SS [INFO]
	output := buf.String()
	if len(output) < 20 || output[4] != '-' || output[7] != '-' || output[13] != ':' {
		t.Errorf("Timestamp should prefix the output, got %q", output)
	}
}

func TestLogger_Caller(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.ShowCaller = true

	New(config).WithComponent(ComponentApp).Info("Test message")

	if !strings.Contains(buf.String(), "(logger_test.go:") {
		t.Errorf("Caller information should be included in output, got %q", buf.String())
	}
}

func TestLogger_Concurrency(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	compLogger := logger.WithComponent(ComponentApp)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			compLogger.Info("Concurrent message", map[string]interface{}{
				"goroutine": i,
			})
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 50 {
		t.Errorf("Expected 50 log lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "[INFO] [app] Concurrent message") {
			t.Errorf("Interleaved line: %q", line)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "trace", want: TRACE},
		{in: "DEBUG", want: DEBUG},
		{in: "", want: INFO},
		{in: "warning", want: WARN},
		{in: "Error", want: ERROR},
		{in: "loud", want: INFO, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEnvironmentConfig(t *testing.T) {
	t.Setenv(EnvLevel, "debug")
	t.Setenv(EnvFormat, "json")
	t.Setenv(EnvOutput, "null")
	t.Setenv(EnvTimestamp, "1")
	t.Setenv(EnvComponents, "extractor, cipher")

	cfg := EnvironmentConfig()
	if cfg.Level != "debug" || cfg.Format != "json" || cfg.Output != "null" || !cfg.Timestamp {
		t.Errorf("Environment overrides not applied: %+v", cfg)
	}
	if len(cfg.Components) != 2 || !cfg.Components["extractor"] || !cfg.Components["cipher"] {
		t.Errorf("Components = %v", cfg.Components)
	}

	lc, err := cfg.ToLoggerConfig()
	if err != nil {
		t.Fatalf("ToLoggerConfig() error = %v", err)
	}
	if lc.Level != DEBUG || lc.Format != FormatJSON {
		t.Errorf("Converted config = %+v", lc)
	}
}

func TestConfigFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	cfg := DefaultLogConfig()
	cfg.Level = "WARN"
	cfg.Components = map[string]bool{"all": true}

	if err := cfg.SaveConfigToFile(path); err != nil {
		t.Fatalf("SaveConfigToFile() error = %v", err)
	}
	loaded, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile() error = %v", err)
	}
	lc, err := loaded.ToLoggerConfig()
	if err != nil {
		t.Fatalf("ToLoggerConfig() error = %v", err)
	}
	if lc.Level != WARN {
		t.Errorf("Level = %v, want WARN", lc.Level)
	}
	for _, c := range AllComponents {
		if !lc.Components[c] {
			t.Errorf("Component %s should be enabled by \"all\"", c)
		}
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*LogConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*LogConfig) {}},
		{name: "bad level", mutate: func(c *LogConfig) { c.Level = "LOUD" }, wantErr: true},
		{name: "bad format", mutate: func(c *LogConfig) { c.Format = "xml" }, wantErr: true},
		{name: "bad output", mutate: func(c *LogConfig) { c.Output = "syslog" }, wantErr: true},
		{name: "file output", mutate: func(c *LogConfig) { c.Output = "file:" + filepath.Join(os.TempDir(), "x.log") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLogConfig()
			tt.mutate(cfg)
			if err := cfg.ValidateConfig(); (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogger_ComponentConstants(t *testing.T) {
	expected := map[Component]string{
		ComponentApp:        "app",
		ComponentExtractor:  "extractor",
		ComponentScanner:    "scanner",
		ComponentCipher:     "cipher",
		ComponentClient:     "client",
		ComponentEpisode:    "episode",
		ComponentSolver:     "solver",
		ComponentDownloader: "downloader",
	}

	for component, expectedValue := range expected {
		if string(component) != expectedValue {
			t.Errorf("Component %s should have value %s, got %s", component, expectedValue, string(component))
		}
	}
	if len(AllComponents) != len(expected) {
		t.Errorf("AllComponents has %d entries, want %d", len(AllComponents), len(expected))
	}
}
