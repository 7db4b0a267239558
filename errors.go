/*
Copyright 2025 Statledger Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package statledger

import (
	"errors"
	"fmt"
)

// StructuralParseError means the header row could not be resolved into the
// minimum viable column set. It aborts the whole file; nothing downstream runs.
type StructuralParseError struct {
	FileID string
	Reason string
}

func (e *StructuralParseError) Error() string {
	return fmt.Sprintf("structural parse error in %s: %s", e.FileID, e.Reason)
}

// RowParseError means a single row's date or amount could not be parsed. The
// row is logged and skipped; the batch continues.
type RowParseError struct {
	RowIndex int
	Field    string
	Reason   string
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("row %d: unparsable %s: %s", e.RowIndex, e.Field, e.Reason)
}

// DimensionConflictError surfaces after the bounded retry of a dimension
// version swap is exhausted. It is a row-level failure, not a job failure.
type DimensionConflictError struct {
	NaturalKey string
	Attempts   int
}

func (e *DimensionConflictError) Error() string {
	return fmt.Sprintf("dimension version conflict on %q after %d attempts", e.NaturalKey, e.Attempts)
}

// ErrDuplicateKeySkip marks an idempotent re-upload: the computed dedupe key
// already exists, so the row is skipped without being treated as a failure.
var ErrDuplicateKeySkip = errors.New("fact with identical dedupe key already loaded")

func IsStructural(err error) bool {
	var structural *StructuralParseError
	return errors.As(err, &structural)
}
