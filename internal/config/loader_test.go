package config_test

import (
	"strings"
	"testing"

	"github.com/armanbance/TwinMind/internal/config"
)

const sampleYAML = `
server:
  listen_addr: ":8080"
  log_level: info

auth:
  tokens:
    tok-alice: alice
    tok-bob: bob

storage:
  postgres_dsn: "postgres://localhost/twinmind"
  blob_dir: /var/lib/twinmind/blobs
  embedding_dimensions: 1536

audio:
  ffmpeg_path: /usr/bin/ffmpeg

providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o
  stt:
    name: whisper
    base_url: http://localhost:8178
  embeddings:
    name: openai
    api_key: sk-test
    model: text-embedding-3-small

mcp:
  enabled: true
`

func TestLoadFromReader_Sample(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q, want info", cfg.Server.LogLevel)
	}
	if got := cfg.Auth.Tokens["tok-alice"]; got != "alice" {
		t.Errorf("tokens[tok-alice] = %q, want alice", got)
	}
	if cfg.Storage.EmbeddingDimensions != 1536 {
		t.Errorf("embedding_dimensions = %d, want 1536", cfg.Storage.EmbeddingDimensions)
	}
	if cfg.Providers.STT.Name != "whisper" {
		t.Errorf("stt provider = %q, want whisper", cfg.Providers.STT.Name)
	}
	if !cfg.MCP.Enabled {
		t.Error("mcp.enabled should be true")
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  bananas: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_EmptyTokenOwner(t *testing.T) {
	t.Parallel()
	yaml := `
auth:
  tokens:
    tok-nobody: ""
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for empty owner, got nil")
	}
	if !strings.Contains(err.Error(), "owner") {
		t.Errorf("error should mention owner, got: %v", err)
	}
}

func TestValidate_TLSRequiresBothFiles(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  tls:
    cert_file: /etc/twinmind/cert.pem
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for partial TLS config, got nil")
	}
	if !strings.Contains(err.Error(), "key_file") {
		t.Errorf("error should mention key_file, got: %v", err)
	}
}

func TestValidate_UnknownProviderNameIsNotFatal(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: my-custom-llm
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err != nil {
		t.Fatalf("unknown provider name should only warn, got: %v", err)
	}
}

func TestLogLevel_Level(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   config.LogLevel
		want string
	}{
		{config.LogDebug, "DEBUG"},
		{config.LogInfo, "INFO"},
		{config.LogWarn, "WARN"},
		{config.LogError, "ERROR"},
		{"", "INFO"},
	}
	for _, tt := range tests {
		if got := tt.in.Level().String(); got != tt.want {
			t.Errorf("LogLevel(%q).Level() = %s, want %s", tt.in, got, tt.want)
		}
	}
}
