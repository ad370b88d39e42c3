// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/pkg/types"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(types.StoreConfig{DSN: filepath.Join(t.TempDir(), "papers.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func paper(id, title string, citations int) *types.ResearchResult {
	return &types.ResearchResult{
		ID:       id,
		Title:    title,
		Abstract: types.OptionalString("A study of " + title),
		PDFURL:   "https://example.org/" + id + ".pdf",
		Metadata: types.Metadata{
			Source:     types.SourceSemanticScholar,
			ProviderID: "prov-" + id,
			Authors:    []string{"Ada Lovelace"},
			Year:       2020,
			Citations:  citations,
		},
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(types.StoreConfig{Driver: "oracle"})
	assert.Error(t, err)

	_, err = Open(types.StoreConfig{Driver: DriverPostgres})
	assert.Error(t, err, "postgres needs a DSN")
}

func TestUpsertAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := paper("ss-1", "Graph Attention Networks", 5000)
	p.Metadata.Concepts = []types.Concept{{Name: "Attention", Explanation: "weights neighbours", Importance: "high"}}
	require.NoError(t, s.Upsert(ctx, p))

	got, err := s.Get(ctx, "ss-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Graph Attention Networks", got.Title)
	assert.Equal(t, "prov-ss-1", got.Metadata.ProviderID)
	assert.Equal(t, 5000, got.Metadata.Citations)
	assert.Equal(t, []string{"Ada Lovelace"}, got.Metadata.Authors)
	require.Len(t, got.Metadata.Concepts, 1)
	assert.Nil(t, got.CodeURL)
	assert.True(t, got.HasAbstract())
}

func TestUpsertUpdatesExistingRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := paper("ss-1", "GAT", 10)
	require.NoError(t, s.Upsert(ctx, p))

	now := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	p.Metadata.Analyzed = true
	p.Metadata.AnalyzedAt = &now
	p.CodeURL = types.OptionalString("https://github.com/x/gat")
	require.NoError(t, s.Upsert(ctx, p))

	got, err := s.Get(ctx, "ss-1")
	require.NoError(t, err)
	assert.True(t, got.Metadata.Analyzed)
	require.NotNil(t, got.Metadata.AnalyzedAt)
	assert.True(t, now.Equal(*got.Metadata.AnalyzedAt))
	assert.Equal(t, "https://github.com/x/gat", got.CodeURLText())
}

func TestUpsertAssignsUUID(t *testing.T) {
	s := openTestStore(t)
	p := paper("", "No ID", 1)
	require.NoError(t, s.Upsert(context.Background(), p))

	_, err := uuid.Parse(p.ID)
	assert.NoError(t, err, "id %q should be a UUID", p.ID)
}

func TestGetMissingReturnsNil(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.GetByProviderID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetByProviderID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	local := paper("8f14e45f-ceea-467f-a0e6-4e7a3f2b9c1d", "Stored copy", 3)
	local.Metadata.ProviderID = "204e3073870fae3d05bcbc2f6a8e263d9b72e776"
	require.NoError(t, s.Upsert(ctx, local))

	got, err := s.GetByProviderID(ctx, "204e3073870fae3d05bcbc2f6a8e263d9b72e776")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, local.ID, got.ID)
}

func TestSearchOrdersByCitations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, paper("a", "Diffusion Models Beat GANs", 100)))
	require.NoError(t, s.Upsert(ctx, paper("b", "Denoising Diffusion Probabilistic Models", 900)))
	require.NoError(t, s.Upsert(ctx, paper("c", "Unrelated Work", 5000)))

	results, err := s.Search(ctx, "DIFFUSION", 0, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, "a", results[1].ID)

	page, err := s.Search(ctx, "diffusion", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)
}

func TestSearchEscapesWildcards(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, paper("a", "100% Accuracy", 1)))
	require.NoError(t, s.Upsert(ctx, paper("b", "1000 Layers", 1)))

	results, err := s.Search(ctx, "100%", 0, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite := &SQLStore{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}
