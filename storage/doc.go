// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for brandmem.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic. Two backends exist: storage/badger, an embedded store used
// by default and in tests, and storage/postgres, backed by Postgres with pgvector.
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces to enforce abstraction:
//
//	memories, err := badger.NewMemoryRepository(backend)  // returns storage.MemoryRepository
//
// Internal constructors (newMemoryRepository, etc.) may return concrete types
// since they're only used within the implementation package.
//
// # Architecture
//
//   - MemoryRepository: append-only, tenant-scoped chunks with vectors
//   - CreditRepository: the credit ledger with an atomic conditional decrement
//   - BrandRepository: profiles and the one brand each owner may have
//   - ArtifactRepository: campaigns, content pieces and tone profiles
//
// Every MemoryRepository query takes the tenant ID; nothing reads across
// tenants except IterateMemories with uuid.Nil, which exists for re-embedding.
//
// # Usage
//
//	stores, err := badger.OpenStores("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stores.Close()
//
// Use in tests with in-memory storage:
//
//	stores, err := badger.NewMemoryStores()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support.
package storage
