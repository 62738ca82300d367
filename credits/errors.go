package credits

import "errors"

// ErrRepositoryRequired is returned when no credit repository is provided.
var ErrRepositoryRequired = errors.New("credit repository required")
