package examination

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrRecordNotFound  = errors.New("patient record not found")
	ErrDuplicateRecord = errors.New("patient record already exists")
	ErrIDExhausted     = errors.New("failed to generate a unique patient ID")
	// ErrIDTaken is returned by a ReserveFunc when the candidate is already
	// reserved.
	ErrIDTaken = errors.New("patient ID already reserved")
)

// StorageError wraps a failure of the storage collaborator.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ValidationError lists the departments that were not submitted and the
// required fields that were missing or blank in the ones that were.
type ValidationError struct {
	Missing []Department
	Fields  map[string]validation.Errors
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		names := make([]string, len(e.Missing))
		for i, d := range e.Missing {
			names[i] = string(d)
		}
		return "Missing data for departments: " + strings.Join(names, ", ")
	}

	sections := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		sections = append(sections, name)
	}
	sort.Strings(sections)
	parts := make([]string, 0, len(sections))
	for _, name := range sections {
		parts = append(parts, name+": "+e.Fields[name].Error())
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}
