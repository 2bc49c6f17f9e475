package leaderboard

import (
	"regexp"
	"strings"

	"gatewaybench/internal/core"
)

var (
	paramSuffix   = regexp.MustCompile(`\d+b$`)
	contextSuffix = regexp.MustCompile(`\d+k$`)
	versionSuffix = regexp.MustCompile(`\d+\.\d+$`)
)

var knownProviders = []string{"openai", "anthropic", "google", "meta", "mistral", "groq", "xai"}

// Normalize reduces a model id or leaderboard name to a comparable key: the
// segment after the provider prefix, lowercased, without '-' or '_', then
// stripped of a trailing parameter count ("70b"), context size ("32k") and
// version ("3.5"), in that order.
func Normalize(id string) string {
	name := id
	if parts := strings.Split(id, "/"); len(parts) > 1 {
		name = parts[1]
	}
	name = strings.ToLower(name)
	name = strings.NewReplacer("-", "", "_", "").Replace(name)
	name = paramSuffix.ReplaceAllString(name, "")
	name = contextSuffix.ReplaceAllString(name, "")
	name = versionSuffix.ReplaceAllString(name, "")
	return name
}

// ExtractProvider guesses the provider of a leaderboard name: the prefix
// before '/', else the first known provider mentioned, else "unknown".
func ExtractProvider(name string) string {
	if provider, _, found := strings.Cut(name, "/"); found {
		return provider
	}
	lower := strings.ToLower(name)
	for _, p := range knownProviders {
		if strings.Contains(lower, p) {
			return p
		}
	}
	return "unknown"
}

// Match finds the leaderboard entry for modelID. An exact match of
// normalized names wins; otherwise the first entry whose normalized name
// contains, or is contained in, the normalized id. Empty keys never match.
func Match(entries []core.LeaderboardEntry, modelID string) (core.LeaderboardEntry, bool) {
	key := Normalize(modelID)
	if key == "" {
		return core.LeaderboardEntry{}, false
	}

	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = Normalize(e.Model)
		if keys[i] == key {
			return e, true
		}
	}
	for i, k := range keys {
		if k == "" {
			continue
		}
		if strings.Contains(k, key) || strings.Contains(key, k) {
			return entries[i], true
		}
	}
	return core.LeaderboardEntry{}, false
}
