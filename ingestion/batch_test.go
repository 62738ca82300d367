package ingestion

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIngester struct {
	mu       sync.Mutex
	active   atomic.Int32
	maxSeen  int32
	failURLs map[string]bool
}

func (s *stubIngester) Ingest(_ context.Context, rawURL string, _ uuid.UUID, _ *IngestOptions) (*IngestResult, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	s.mu.Lock()
	if n > s.maxSeen {
		s.maxSeen = n
	}
	s.mu.Unlock()
	time.Sleep(10 * time.Millisecond)

	if s.failURLs[rawURL] {
		return nil, stageError(StageCrawl, nil, core.ErrCrawlUnreachable)
	}
	return &IngestResult{PagesCrawled: 1, ChunksIngested: len(rawURL)}, nil
}

func TestNewBatchRunner_RequiresIngester(t *testing.T) {
	_, err := NewBatchRunner(nil)
	assert.ErrorIs(t, err, ErrPipelineRequired)
}

func TestBatchRunner_KeepsJobOrderAndBoundsConcurrency(t *testing.T) {
	stub := &stubIngester{failURLs: map[string]bool{"https://down.example": true}}
	runner, err := NewBatchRunner(stub, WithPoolSize(2))
	require.NoError(t, err)
	defer runner.Release()

	jobs := []Job{
		{URL: "https://a.example", TenantID: uuid.New()},
		{URL: "https://down.example", TenantID: uuid.New()},
		{URL: "https://ccc.example", TenantID: uuid.New()},
		{URL: "https://dddd.example", TenantID: uuid.New()},
		{URL: "https://eeeee.example", TenantID: uuid.New()},
	}
	results := runner.Run(context.Background(), jobs)

	require.Len(t, results, len(jobs))
	for i, r := range results {
		assert.Equal(t, jobs[i], r.Job)
		if jobs[i].URL == "https://down.example" {
			assert.ErrorIs(t, r.Err, core.ErrCrawlUnreachable)
			assert.Nil(t, r.Result)
			continue
		}
		require.NoError(t, r.Err)
		assert.Equal(t, len(jobs[i].URL), r.Result.ChunksIngested)
	}
	assert.LessOrEqual(t, stub.maxSeen, int32(2))
}
