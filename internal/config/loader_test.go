package config

import (
	"strings"
	"testing"
)

func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
server:
  listen_addr: ":9090"
  log_level: debug
storage:
  root: /var/lib/callcoach/uploads
  max_upload_mb: 100
database:
  postgres_dsn: postgres://cc:cc@localhost:5432/callcoach
providers:
  stt:
    name: whisper
    base_url: http://localhost:8178
    model: base.en
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Storage.MaxUploadMB != 100 {
		t.Errorf("MaxUploadMB = %d, want 100", cfg.Storage.MaxUploadMB)
	}
	if got := cfg.MaxUploadBytes(); got != 100<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", got, int64(100<<20))
	}
	if cfg.Providers.STT.Name != "whisper" || cfg.Providers.STT.Model != "base.en" {
		t.Errorf("STT entry = %+v, want whisper/base.en", cfg.Providers.STT)
	}
	if cfg.Providers.LLM.APIKey != "sk-test" {
		t.Errorf("LLM APIKey = %q, want sk-test", cfg.Providers.LLM.APIKey)
	}
}

func TestLoadFromReaderDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
database:
  postgres_dsn: postgres://localhost/callcoach
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogInfo {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Storage.Root != "./uploads" {
		t.Errorf("Storage.Root = %q, want ./uploads", cfg.Storage.Root)
	}
	if cfg.Storage.MaxUploadMB != DefaultMaxUploadMB {
		t.Errorf("MaxUploadMB = %d, want %d", cfg.Storage.MaxUploadMB, DefaultMaxUploadMB)
	}
}

func TestLoadFromReaderUnknownField(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader(`
database:
  postgres_dsn: postgres://localhost/callcoach
serverr:
  listen_addr: ":8080"
`))
	if err == nil {
		t.Fatal("error = nil, want decode error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Server.LogLevel = "verbose"
	cfg.Storage.MaxUploadMB = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate = nil, want joined errors")
	}
	for _, want := range []string{"log_level", "max_upload_mb", "postgres_dsn"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate error %q does not mention %q", err, want)
		}
	}
}

func TestValidateOK(t *testing.T) {
	cfg := &Config{}
	cfg.Database.PostgresDSN = "postgres://localhost/callcoach"
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/callcoach.yaml")
	if err == nil {
		t.Fatal("Load = nil, want open error")
	}
	if !strings.Contains(err.Error(), "/nonexistent/callcoach.yaml") {
		t.Errorf("error %q does not name the path", err)
	}
}

func TestLogLevelIsValid(t *testing.T) {
	for _, l := range []LogLevel{LogDebug, LogInfo, LogWarn, LogError} {
		if !l.IsValid() {
			t.Errorf("IsValid(%q) = false, want true", l)
		}
	}
	if LogLevel("trace").IsValid() {
		t.Error(`IsValid("trace") = true, want false`)
	}
}
