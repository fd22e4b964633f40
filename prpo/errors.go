package prpo

import (
	"errors"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
)

// ErrEmptyBatch means the batch had no header line. The file counts as processed.
var ErrEmptyBatch = errors.New("batch file is empty")

// ErrResolutionAbsent marks a code with no matching reference row.
var ErrResolutionAbsent = errors.New("reference not resolved")

// HeaderMismatchError aborts a file before any row is read.
type HeaderMismatchError struct {
	DocumentType models.DocumentType
	Missing      []string
}

func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf("%s headers do not match, missing: %s", e.DocumentType, strings.Join(e.Missing, ", "))
}

// ParseError is a malformed AQ_ID. It only affects equipment resolution of its row.
type ParseError struct {
	Code string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse aq_id %q", e.Code)
}

// PersistenceError aborts the rest of the current file.
type PersistenceError struct {
	Op       string
	Identity models.Identity
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Identity, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AggregationError aborts the consolidation pass only.
type AggregationError struct {
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("consolidation failed: %v", e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }
