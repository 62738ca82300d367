package generation

import "errors"

var (
	// ErrNoGenerators is returned when a Chain has no generators.
	ErrNoGenerators = errors.New("at least one generator required")

	// ErrMeterRequired is returned when no credit meter is provided.
	ErrMeterRequired = errors.New("credit meter required")

	// ErrRepositoryRequired is returned when a brand or artifact repository is missing.
	ErrRepositoryRequired = errors.New("repository required")

	// ErrPageSourceRequired is returned by AnalyzeTone when no page source is configured.
	ErrPageSourceRequired = errors.New("page source required for tone analysis")

	// ErrEmptyPlan marks a campaign response without posts.
	ErrEmptyPlan = errors.New("campaign plan has no posts")

	// ErrEmptyPost marks a content response without text.
	ErrEmptyPost = errors.New("generated post is empty")
)
