package config_test

import (
	"testing"

	"github.com/armanbance/TwinMind/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Auth:   config.AuthConfig{Tokens: map[string]string{"tok-a": "alice"}},
	}
	d := config.Diff(cfg, cfg)
	if d.LogLevelChanged || d.TokensChanged {
		t.Errorf("expected empty diff, got %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}
	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Fatal("LogLevelChanged should be true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q, want debug", d.NewLogLevel)
	}
}

func TestDiff_Tokens(t *testing.T) {
	t.Parallel()
	old := &config.Config{Auth: config.AuthConfig{Tokens: map[string]string{
		"tok-a1": "alice",
		"tok-b1": "bob",
	}}}
	new := &config.Config{Auth: config.AuthConfig{Tokens: map[string]string{
		"tok-a2": "alice", // rotated
		"tok-c1": "carol", // added; bob removed
	}}}

	d := config.Diff(old, new)
	if !d.TokensChanged {
		t.Fatal("TokensChanged should be true")
	}

	byOwner := make(map[string]config.TokenDiff, len(d.TokenChanges))
	for _, tc := range d.TokenChanges {
		byOwner[tc.Owner] = tc
	}
	if !byOwner["alice"].Rotated {
		t.Errorf("alice should be rotated, got %+v", byOwner["alice"])
	}
	if !byOwner["bob"].Removed {
		t.Errorf("bob should be removed, got %+v", byOwner["bob"])
	}
	if !byOwner["carol"].Added {
		t.Errorf("carol should be added, got %+v", byOwner["carol"])
	}
}
