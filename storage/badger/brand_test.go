package badger

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProfile_Idempotent(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	owner := uuid.New()

	first, err := stores.Brands.CreateProfile(ctx, owner)
	require.NoError(t, err)
	second, err := stores.Brands.CreateProfile(ctx, owner)
	require.NoError(t, err)

	assert.Equal(t, owner, first.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	_, err = stores.Brands.CreateProfile(ctx, uuid.Nil)
	assert.ErrorIs(t, err, core.ErrMissingTenant)
}

func TestInsertBrand(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	owner := uuid.New()

	t.Run("requires profile", func(t *testing.T) {
		_, err := stores.Brands.InsertBrand(ctx, &core.Brand{OwnerID: owner, Name: "Acme"})
		assert.ErrorIs(t, err, storage.ErrForeignKeyViolation)
	})

	_, err := stores.Brands.CreateProfile(ctx, owner)
	require.NoError(t, err)

	created, err := stores.Brands.InsertBrand(ctx, &core.Brand{
		OwnerID: owner,
		Name:    "Acme",
		Website: "https://acme.example",
		Tone:    core.NewUnstructuredTone("friendly"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	t.Run("existing brand returned unchanged", func(t *testing.T) {
		again, err := stores.Brands.InsertBrand(ctx, &core.Brand{OwnerID: owner, Name: "Other"})
		require.NoError(t, err)
		assert.Equal(t, created.ID, again.ID)
		assert.Equal(t, "Acme", again.Name)
	})

	t.Run("lookups", func(t *testing.T) {
		byOwner, err := stores.Brands.GetBrandByOwner(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, created.ID, byOwner.ID)

		tone, ok := byOwner.Tone.Text()
		assert.True(t, ok)
		assert.Equal(t, "friendly", tone)

		byID, err := stores.Brands.GetBrand(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, owner, byID.OwnerID)

		_, err = stores.Brands.GetBrandByOwner(ctx, uuid.New())
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = stores.Brands.GetBrand(ctx, uuid.New())
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := stores.Brands.InsertBrand(ctx, &core.Brand{OwnerID: owner, Website: "ftp://acme"})
		assert.ErrorIs(t, err, core.ErrInvalidBrand)
	})
}

func TestInsertBrand_ConcurrentCreatesOne(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	owner := uuid.New()

	_, err := stores.Brands.CreateProfile(ctx, owner)
	require.NoError(t, err)

	const workers = 8
	ids := make([]uuid.UUID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			brand, err := stores.Brands.InsertBrand(ctx, &core.Brand{OwnerID: owner, Name: "Acme"})
			if assert.NoError(t, err) {
				ids[i] = brand.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestSaveBrand_KeepsID(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	owner := uuid.New()

	_, err := stores.Brands.CreateProfile(ctx, owner)
	require.NoError(t, err)

	first, err := stores.Brands.SaveBrand(ctx, &core.Brand{OwnerID: owner, Name: "Acme"})
	require.NoError(t, err)

	second, err := stores.Brands.SaveBrand(ctx, &core.Brand{ID: uuid.New(), OwnerID: owner, Name: "Acme Corp", Audience: "founders"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Acme Corp", second.Name)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
}

func TestUpdateTone(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	owner := uuid.New()

	_, err := stores.Brands.CreateProfile(ctx, owner)
	require.NoError(t, err)
	brand, err := stores.Brands.InsertBrand(ctx, &core.Brand{OwnerID: owner, Name: "Acme"})
	require.NoError(t, err)

	tone := core.NewStructuredTone(core.StructuredTone{Archetype: "Sage", Adjectives: []string{"calm"}})
	require.NoError(t, stores.Brands.UpdateTone(ctx, brand.ID, tone))

	stored, err := stores.Brands.GetBrand(ctx, brand.ID)
	require.NoError(t, err)
	st, ok := stored.Tone.Structured()
	require.True(t, ok)
	assert.Equal(t, "Sage", st.Archetype)

	err = stores.Brands.UpdateTone(ctx, uuid.New(), tone)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
