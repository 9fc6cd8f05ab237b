package store

import (
	"errors"
	"fmt"
)

var (
	ErrWrongSchemaVersion = errors.New("wrong schema version")
	// ErrUnknownSku is returned when a price sample is added for a sku that was
	// never added, callers are expected to resolve skus first.
	ErrUnknownSku     = errors.New("unknown sku")
	ErrUnknownProduct = errors.New("unknown product")
)

// SchemaVersionError is returned by Open when the database is not at the
// schema version this build expects.
type SchemaVersionError struct {
	Expected string
	// Actual is empty when the database carries no version at all.
	Actual string
}

func (e *SchemaVersionError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("%s: expected %s, database has no schema version", ErrWrongSchemaVersion, e.Expected)
	}
	return fmt.Sprintf("%s: expected %s, got %s", ErrWrongSchemaVersion, e.Expected, e.Actual)
}

func (e *SchemaVersionError) Unwrap() error {
	return ErrWrongSchemaVersion
}
