package training

import (
	"errors"
	"fmt"
)

// DataLoadError reports a dataset that could not be opened or parsed.
type DataLoadError struct {
	Path   string
	reason error
}

func (e DataLoadError) Error() string {
	return fmt.Sprintf("load dataset %s: %v", e.Path, e.reason)
}

func (e DataLoadError) Unwrap() error {
	return e.reason
}

func IsDataLoadError(err error) bool {
	var de DataLoadError
	return errors.As(err, &de)
}

// SchemaMismatchError reports required columns that are absent, either from
// the dataset or from a saved artifact.
type SchemaMismatchError struct {
	Missing []string
	reason  error
}

func (e SchemaMismatchError) Error() string {
	if e.reason != nil {
		return fmt.Sprintf("schema mismatch: %v", e.reason)
	}
	return fmt.Sprintf("schema mismatch: missing columns %v", e.Missing)
}

func (e SchemaMismatchError) Unwrap() error {
	return e.reason
}

func IsSchemaMismatchError(err error) bool {
	var se SchemaMismatchError
	return errors.As(err, &se)
}

// PersistenceError reports an artifact that could not be written or read.
type PersistenceError struct {
	Path   string
	reason error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("artifact %s: %v", e.Path, e.reason)
}

func (e PersistenceError) Unwrap() error {
	return e.reason
}

func IsPersistenceError(err error) bool {
	var pe PersistenceError
	return errors.As(err, &pe)
}
