package ingestion

import (
	"errors"
	"fmt"

	"github.com/poiesic/brandmem/crawler"
)

var (
	// ErrCrawlerRequired is returned when no page source is provided.
	ErrCrawlerRequired = errors.New("crawler required")

	// ErrEmbedderRequired is returned when no embedding pipeline is provided.
	ErrEmbedderRequired = errors.New("embedding pipeline required")

	// ErrMemoryRepositoryRequired is returned when a memory repository is not provided.
	ErrMemoryRepositoryRequired = errors.New("memory repository required")

	// ErrBrandRepositoryRequired is returned when no brand repository is provided.
	ErrBrandRepositoryRequired = errors.New("brand repository required")

	// ErrMeterRequired is returned when no credit meter is provided.
	ErrMeterRequired = errors.New("credit meter required")

	// ErrPipelineRequired is returned when a BatchRunner has no pipeline.
	ErrPipelineRequired = errors.New("ingestion pipeline required")
)

// Stage names a step of the bulk ingestion path.
type Stage string

const (
	StageTenant  Stage = "tenant"
	StageCredits Stage = "credits"
	StageCrawl   Stage = "crawl"
	StageChunk   Stage = "chunk"
	StageEmbed   Stage = "embed"
	StageStore   Stage = "store"
)

// StageError reports the stage an ingestion failed in, together with
// whatever scan report had been produced by then.
type StageError struct {
	Stage  Stage
	Report []crawler.PageReport
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingestion failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, report []crawler.PageReport, err error) *StageError {
	return &StageError{Stage: stage, Report: report, Err: err}
}
