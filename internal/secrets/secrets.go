// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Recognized key files: openai-api-key, gemini-api-key, openrouter-api-key,
// neo4j-password, redis-password.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// Key file names.
const (
	OpenAIKey     = "openai-api-key"
	GeminiKey     = "gemini-api-key"
	OpenRouterKey = "openrouter-api-key"
	Neo4jPassword = "neo4j-password"
	RedisPassword = "redis-password"
)

// envFallbacks maps key names onto the environment variables consulted when
// no key file is present.
var envFallbacks = map[string]string{
	OpenAIKey:     "OPENAI_API_KEY",
	GeminiKey:     "GEMINI_API_KEY",
	OpenRouterKey: "OPENROUTER_API_KEY",
	Neo4jPassword: "NEO4J_PASSWORD",
	RedisPassword: "REDIS_PASSWORD",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, logger *slog.Logger) (map[string]string, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", "name", name, "error", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// WithEnv adds the environment fallbacks for keys missing from s. It
// returns s for chaining.
func WithEnv(s map[string]string, getenv func(string) string) map[string]string {
	for key, env := range envFallbacks {
		if _, ok := s[key]; ok {
			continue
		}
		if v := strings.TrimSpace(getenv(env)); v != "" {
			s[key] = v
		}
	}
	return s
}

// Apply fills empty credential fields of cfg from s. Values already set in
// cfg are kept.
//
// The generator uses the OpenRouter key when it targets OpenRouter and the
// OpenAI key otherwise. The similarity adapter uses the key of its provider.
func Apply(cfg *types.Config, s map[string]string) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = s[key]
		}
	}

	switch cfg.Similarity.Provider {
	case "gemini":
		fill(&cfg.Similarity.APIKey, GeminiKey)
	default:
		fill(&cfg.Similarity.APIKey, OpenAIKey)
	}

	if strings.Contains(cfg.Generator.BaseURL, "openrouter") {
		fill(&cfg.Generator.APIKey, OpenRouterKey)
	}
	fill(&cfg.Generator.APIKey, OpenAIKey)

	fill(&cfg.Graph.Password, Neo4jPassword)
	fill(&cfg.Cache.RedisPassword, RedisPassword)
}
