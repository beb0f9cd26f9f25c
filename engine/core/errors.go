package core

import (
	"errors"
)

var (
	// Caller-contract violations. Programming errors, not scene-data errors.
	ErrEmptySourceSet       = errors.New("vertex source set is empty")
	ErrElementCountMismatch = errors.New("vertex sources disagree on element count")
	ErrEmptyIndexArray      = errors.New("index array is empty")
	ErrUnknownIndexVariant  = errors.New("unrecognized index array variant")
	ErrTopologyChanged      = errors.New("element count changed on an existing record")

	// Staging inconsistencies.
	ErrStagingExhausted = errors.New("staging payload already consumed by a previous commit")
)
