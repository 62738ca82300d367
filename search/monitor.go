package search

import (
	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
)

// SearchMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results.
type SearchMonitor interface {
	Start(tenantID uuid.UUID, query string)
	AfterEmbedding(dimensions int, cached bool)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ uuid.UUID, _ string)   {}
func (n *noopMonitor) AfterEmbedding(_ int, _ bool)  {}
func (n *noopMonitor) Finish(_ []*core.SearchResult) {}
