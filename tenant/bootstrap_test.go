package tenant

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/metrics"
	"github.com/poiesic/brandmem/storage"
	"github.com/poiesic/brandmem/storage/badger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBrands wraps a real repository and lets tests override single calls.
type stubBrands struct {
	storage.BrandRepository

	GetBrandByOwnerFunc func(ctx context.Context, ownerID uuid.UUID) (*core.Brand, error)
	InsertBrandFunc     func(ctx context.Context, brand *core.Brand) (*core.Brand, error)
	CreateProfileFunc   func(ctx context.Context, ownerID uuid.UUID) (*core.Profile, error)

	mu          sync.Mutex
	insertCalls int
}

func (s *stubBrands) GetBrandByOwner(ctx context.Context, ownerID uuid.UUID) (*core.Brand, error) {
	if s.GetBrandByOwnerFunc != nil {
		return s.GetBrandByOwnerFunc(ctx, ownerID)
	}
	return s.BrandRepository.GetBrandByOwner(ctx, ownerID)
}

func (s *stubBrands) InsertBrand(ctx context.Context, brand *core.Brand) (*core.Brand, error) {
	s.mu.Lock()
	s.insertCalls++
	s.mu.Unlock()
	if s.InsertBrandFunc != nil {
		return s.InsertBrandFunc(ctx, brand)
	}
	return s.BrandRepository.InsertBrand(ctx, brand)
}

func (s *stubBrands) CreateProfile(ctx context.Context, ownerID uuid.UUID) (*core.Profile, error) {
	if s.CreateProfileFunc != nil {
		return s.CreateProfileFunc(ctx, ownerID)
	}
	return s.BrandRepository.CreateProfile(ctx, ownerID)
}

func newStores(t *testing.T) *storage.Stores {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })
	return stores
}

func TestEnsure_CreatesProfileAndBrand(t *testing.T) {
	stores := newStores(t)
	m := metrics.New()
	b, err := NewBootstrapper(stores.Brands, WithMetrics(m))
	require.NoError(t, err)
	ctx := context.Background()
	owner := uuid.New()

	brand, err := b.Ensure(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, owner, brand.OwnerID)
	assert.Equal(t, DefaultBrandName, brand.Name)

	again, err := b.Ensure(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, brand.ID, again.ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Bootstraps.WithLabelValues(ResultCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Bootstraps.WithLabelValues(ResultExisting)))
}

func TestEnsure_ConcurrentCallersShareOneBrand(t *testing.T) {
	stores := newStores(t)
	b, err := NewBootstrapper(stores.Brands)
	require.NoError(t, err)
	owner := uuid.New()

	const callers = 10
	ids := make([]uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			brand, err := b.Ensure(context.Background(), owner)
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

func TestEnsure_RecoversWithFinalRead(t *testing.T) {
	stores := newStores(t)
	ctx := context.Background()
	owner := uuid.New()

	_, err := stores.Brands.CreateProfile(ctx, owner)
	require.NoError(t, err)
	existing, err := stores.Brands.InsertBrand(ctx, &core.Brand{OwnerID: owner, Name: "Acme"})
	require.NoError(t, err)

	reads := 0
	stub := &stubBrands{BrandRepository: stores.Brands}
	stub.GetBrandByOwnerFunc = func(ctx context.Context, ownerID uuid.UUID) (*core.Brand, error) {
		reads++
		if reads == 1 {
			return nil, storage.ErrNotFound
		}
		return stores.Brands.GetBrandByOwner(ctx, ownerID)
	}
	stub.InsertBrandFunc = func(context.Context, *core.Brand) (*core.Brand, error) {
		return nil, storage.ErrDuplicateKey
	}

	b, err := NewBootstrapper(stub)
	require.NoError(t, err)

	brand, err := b.Ensure(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, brand.ID)
	assert.Equal(t, 2, reads)
}

func TestEnsure_InsertsOnceMoreAfterProfile(t *testing.T) {
	stores := newStores(t)
	stub := &stubBrands{BrandRepository: stores.Brands}
	b, err := NewBootstrapper(stub)
	require.NoError(t, err)

	_, err = b.Ensure(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, stub.insertCalls)
}

func TestEnsure_Fails(t *testing.T) {
	stores := newStores(t)
	stub := &stubBrands{BrandRepository: stores.Brands}
	stub.InsertBrandFunc = func(context.Context, *core.Brand) (*core.Brand, error) {
		return nil, storage.ErrTransactionFailed
	}
	m := metrics.New()
	b, err := NewBootstrapper(stub, WithMetrics(m))
	require.NoError(t, err)

	_, err = b.Ensure(context.Background(), uuid.New())
	assert.ErrorIs(t, err, core.ErrBootstrapFailed)
	assert.ErrorIs(t, err, storage.ErrTransactionFailed)
	assert.Equal(t, core.KindBootstrapFailed, core.KindOf(err))
	assert.Equal(t, 1, stub.insertCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Bootstraps.WithLabelValues(ResultFailed)))
}

func TestEnsure_ProfileCreationFails(t *testing.T) {
	stores := newStores(t)
	stub := &stubBrands{BrandRepository: stores.Brands}
	stub.CreateProfileFunc = func(context.Context, uuid.UUID) (*core.Profile, error) {
		return nil, assert.AnError
	}
	b, err := NewBootstrapper(stub)
	require.NoError(t, err)

	_, err = b.Ensure(context.Background(), uuid.New())
	assert.ErrorIs(t, err, core.ErrBootstrapFailed)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, stub.insertCalls)
}

func TestEnsure_RejectsNilOwner(t *testing.T) {
	stores := newStores(t)
	b, err := NewBootstrapper(stores.Brands)
	require.NoError(t, err)

	_, err = b.Ensure(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, core.ErrMissingTenant)
}

func TestSave_CreatesProfileAndKeepsID(t *testing.T) {
	stores := newStores(t)
	b, err := NewBootstrapper(stores.Brands)
	require.NoError(t, err)
	ctx := context.Background()
	owner := uuid.New()

	first, err := b.Save(ctx, &core.Brand{
		OwnerID: owner,
		Name:    "Harbor Coffee",
		Website: "https://harbor.example",
		Tone:    core.NewUnstructuredTone("warm and plain"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Harbor Coffee", first.Name)

	ensured, err := b.Ensure(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, first.ID, ensured.ID)

	second, err := b.Save(ctx, &core.Brand{OwnerID: owner, Name: "Harbor Roasters", Values: []string{"craft"}})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Harbor Roasters", second.Name)
	assert.Equal(t, []string{"craft"}, second.Values)
}

func TestSave_Validation(t *testing.T) {
	stores := newStores(t)
	stub := &stubBrands{BrandRepository: stores.Brands}
	stub.CreateProfileFunc = func(context.Context, uuid.UUID) (*core.Profile, error) {
		return nil, assert.AnError
	}
	b, err := NewBootstrapper(stub)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = b.Save(ctx, &core.Brand{Name: "No owner"})
	assert.ErrorIs(t, err, core.ErrMissingTenant)

	_, err = b.Save(ctx, &core.Brand{OwnerID: uuid.New(), Website: "ftp://harbor.example"})
	assert.ErrorIs(t, err, core.ErrInvalidURL)

	_, err = b.Save(ctx, &core.Brand{OwnerID: uuid.New(), Name: "Orphan"})
	assert.ErrorIs(t, err, storage.ErrForeignKeyViolation)
	assert.ErrorIs(t, err, assert.AnError)
}
