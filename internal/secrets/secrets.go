// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files. The
// filename is the key and the trimmed contents are the value.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// DefaultDir is where the CLI looks for secret files.
const DefaultDir = ".secrets/"

// Recognized key files.
const (
	KeySemanticScholar = "semantic-scholar-api-key"
	KeyOpenAI          = "openai-api-key"
	KeyMinioSecret     = "minio-secret-key"
)

// Load reads every regular, non-hidden file in dir. A missing directory
// yields an empty map. Unreadable files are logged and skipped.
func Load(dir string, logger *slog.Logger) (map[string]string, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", logging.String("name", name), logging.Error(err))
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			out[name] = v
		}
	}
	return out, nil
}

// Apply fills credential fields of cfg that are still empty from s and
// returns the keys it used, sorted.
func Apply(cfg *types.Config, s map[string]string) []string {
	targets := map[string]*string{
		KeySemanticScholar: &cfg.Sources.SemanticScholarAPIKey,
		KeyOpenAI:          &cfg.AI.APIKey,
		KeyMinioSecret:     &cfg.Cache.Minio.SecretKey,
	}
	var used []string
	for key, field := range targets {
		if v, ok := s[key]; ok && *field == "" {
			*field = v
			used = append(used, key)
		}
	}
	sort.Strings(used)
	return used
}
