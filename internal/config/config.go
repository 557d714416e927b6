// Package config provides the configuration schema, loader, and provider registry
// for the TwinMind transcript server.
package config

import "log/slog"

// LogLevel controls log verbosity for the TwinMind server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to its slog equivalent. Unknown or empty values map to Info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration structure for TwinMind.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Audio     AudioConfig     `yaml:"audio"`
	Providers ProvidersConfig `yaml:"providers"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// ServerConfig holds network and logging settings for the TwinMind server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// AuthConfig holds the bearer tokens accepted by the API.
type AuthConfig struct {
	// Tokens maps bearer token values to owner identifiers. Every session
	// created through the API belongs to the owner whose token was presented.
	Tokens map[string]string `yaml:"tokens"`
}

// StorageConfig selects where sessions, fragments, and uploaded audio live.
type StorageConfig struct {
	// PostgresDSN is the connection string for the session database.
	// When empty, the server falls back to an in-memory store and all
	// sessions are lost on restart.
	PostgresDSN string `yaml:"postgres_dsn"`

	// BlobDir is the directory where uploaded audio segments are staged
	// before transcription. When empty, segments are processed in memory only.
	BlobDir string `yaml:"blob_dir"`

	// EmbeddingDimensions is the vector width for transcript search embeddings.
	// Must match the configured embeddings model. 0 disables vector search.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`
}

// AudioConfig holds settings for the audio normalisation stage.
type AudioConfig struct {
	// FFmpegPath overrides the ffmpeg binary used for format normalisation.
	// Leave empty to resolve "ffmpeg" from PATH.
	FFmpegPath string `yaml:"ffmpeg_path"`

	// TempDir is where intermediate audio files are written. Leave empty
	// to use the system temp directory.
	TempDir string `yaml:"temp_dir"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	LLM        ProviderEntry `yaml:"llm"`
	STT        ProviderEntry `yaml:"stt"`
	Embeddings ProviderEntry `yaml:"embeddings"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "whisper").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o", "whisper-1").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// MCPConfig controls the Model Context Protocol endpoint.
type MCPConfig struct {
	// Enabled exposes the MCP streamable HTTP endpoint under /mcp.
	Enabled bool `yaml:"enabled"`
}
