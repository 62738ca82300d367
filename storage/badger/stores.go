package badger

import "github.com/poiesic/brandmem/storage"

// OpenStores opens a BadgerDB database at path and creates every repository on it.
// Closing the returned Stores closes the database.
func OpenStores(path string) (*storage.Stores, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newStores(backend)
}

// NewMemoryStores creates repositories on an in-memory database, for tests
// and one-shot commands.
func NewMemoryStores() (*storage.Stores, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return newStores(backend)
}

func newStores(backend *Backend) (*storage.Stores, error) {
	memories, err := NewMemoryRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	credits, _ := NewCreditRepository(backend)
	brands, _ := NewBrandRepository(backend)
	artifacts, _ := NewArtifactRepository(backend)

	return &storage.Stores{
		Memories:  memories,
		Credits:   credits,
		Brands:    brands,
		Artifacts: artifacts,
		Closer:    backend.Close,
	}, nil
}
