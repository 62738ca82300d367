package tenant

import "errors"

// ErrRepositoryRequired is returned when no brand repository is provided.
var ErrRepositoryRequired = errors.New("brand repository required")
