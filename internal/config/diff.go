package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel
	TokensChanged   bool        // true if any bearer token was added, removed, or rotated
	TokenChanges    []TokenDiff // per-owner diffs
}

// TokenDiff describes the auth change for a single owner between two configs.
type TokenDiff struct {
	Owner   string
	Added   bool
	Removed bool
	Rotated bool // same owner, different token value
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	// Build owner → token maps. Tokens are stored token → owner; invert so the
	// diff is keyed by owner, which is the stable identity.
	oldTokens := invertTokens(old.Auth.Tokens)
	newTokens := invertTokens(new.Auth.Tokens)

	// Detect rotated and removed owners.
	for owner, oldToken := range oldTokens {
		newToken, exists := newTokens[owner]
		if !exists {
			d.TokenChanges = append(d.TokenChanges, TokenDiff{Owner: owner, Removed: true})
			d.TokensChanged = true
			continue
		}
		if oldToken != newToken {
			d.TokenChanges = append(d.TokenChanges, TokenDiff{Owner: owner, Rotated: true})
			d.TokensChanged = true
		}
	}

	// Detect added owners.
	for owner := range newTokens {
		if _, exists := oldTokens[owner]; !exists {
			d.TokenChanges = append(d.TokenChanges, TokenDiff{Owner: owner, Added: true})
			d.TokensChanged = true
		}
	}

	return d
}

func invertTokens(tokens map[string]string) map[string]string {
	inv := make(map[string]string, len(tokens))
	for token, owner := range tokens {
		inv[owner] = token
	}
	return inv
}
