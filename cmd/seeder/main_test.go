package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem"
	"github.com/poiesic/brandmem/ai/mock"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagesFromPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "voice.md"), []byte("We write short sentences."), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), []byte{0x89}, 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "menu"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "menu", "drinks.txt"), []byte("Maple cortado."), 0o600))

	source, err := pagesFromPath(dir)
	require.NoError(t, err)
	pages := slices.Collect(source)
	require.Len(t, pages, 2)

	titles := []string{pages[0].Title, pages[1].Title}
	assert.ElementsMatch(t, []string{"voice", "drinks"}, titles)
	assert.Contains(t, pages[0].URL, "file://")

	_, err = pagesFromPath(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestSeedBatched(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	embedder := mock.NewMockEmbedder()
	svc, err := brandmem.New(stores, mock.NewMockProviderWithServices(embedder, mock.NewMockGenerator("mock", "{}")))
	require.NoError(t, err)
	defer svc.Close()

	ctx := context.Background()
	brand, err := svc.Bootstrap(ctx, uuid.New())
	require.NoError(t, err)
	n, err := seedBatched(ctx, svc, brand.ID, pagesFromSlice(sampleBrandBook), 2)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	count, err := svc.CountMemories(ctx, brand.ID)
	require.NoError(t, err)
	assert.Equal(t, n, count)

	_, err = seedBatched(ctx, svc, uuid.New(), pagesFromSlice(sampleBrandBook), 2)
	assert.ErrorIs(t, err, core.ErrUnknownTenant)
}
