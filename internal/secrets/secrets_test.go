// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// secretsDir writes files (name to content) into a fresh directory.
func secretsDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestLoadTrimsValues(t *testing.T) {
	dir := secretsDir(t, map[string]string{
		KeyOpenAI:          "  sk-test \n",
		KeySemanticScholar: "s2-key",
		KeyMinioSecret:     "minio-pass\n",
	})

	got, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		KeyOpenAI:          "sk-test",
		KeySemanticScholar: "s2-key",
		KeyMinioSecret:     "minio-pass",
	}, got)
}

func TestLoadIgnoresNoise(t *testing.T) {
	dir := secretsDir(t, map[string]string{
		".gitkeep": "",
		".hidden":  "secret",
		"blank":    " \n\t ",
		KeyOpenAI:  "sk-test",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	got, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{KeyOpenAI: "sk-test"}, got)
}

func TestLoadMissingDirectory(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadDirectoryIsAFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := Load(path, nil)
	assert.ErrorContains(t, err, "reading secrets directory")
}

func TestLoadWarnsOnUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := secretsDir(t, map[string]string{KeySemanticScholar: "s2-key"})
	bad := filepath.Join(dir, KeyOpenAI)
	require.NoError(t, os.WriteFile(bad, []byte("sk-test"), 0o000))

	var logs bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "json", Output: &logs})
	require.NoError(t, err)

	got, err := Load(dir, logger)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{KeySemanticScholar: "s2-key"}, got)
	assert.Contains(t, logs.String(), "could not read secret")
	assert.Contains(t, logs.String(), KeyOpenAI)
}

func TestApplyFillsOnlyEmptyFields(t *testing.T) {
	var cfg types.Config
	cfg.AI.APIKey = "sk-config"

	used := Apply(&cfg, map[string]string{
		KeyOpenAI:          "sk-file",
		KeySemanticScholar: "s2-key",
		KeyMinioSecret:     "minio-pass",
		"unrelated":        "x",
	})

	assert.Equal(t, "sk-config", cfg.AI.APIKey)
	assert.Equal(t, "s2-key", cfg.Sources.SemanticScholarAPIKey)
	assert.Equal(t, "minio-pass", cfg.Cache.Minio.SecretKey)
	assert.Equal(t, []string{KeyMinioSecret, KeySemanticScholar}, used)
}

func TestApplyFromDirectory(t *testing.T) {
	dir := secretsDir(t, map[string]string{KeyOpenAI: "sk-file\n"})
	s, err := Load(dir, nil)
	require.NoError(t, err)

	var cfg types.Config
	assert.Equal(t, []string{KeyOpenAI}, Apply(&cfg, s))
	assert.Equal(t, "sk-file", cfg.AI.APIKey)
	assert.Empty(t, Apply(&cfg, nil))
}
