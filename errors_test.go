package ubimanifest

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
)

func ExampleError() {
	fmt.Println(&Error{
		Inner:   nil,
		Kind:    ErrInternal,
		Message: "test",
		Op:      "ExampleError",
	})

	fmt.Println(&Error{
		Inner:   sql.ErrNoRows,
		Kind:    ErrPrecondition,
		Message: "needed object missing",
		Op:      "Lookup",
	})
	fmt.Println(fmt.Errorf("somepackage: oops: %w", &Error{
		Inner:   sql.ErrNoRows,
		Kind:    ErrPrecondition,
		Message: "needed object missing",
		Op:      "Lookup",
	}))

	// Output:
	// ExampleError [internal]: test
	// Lookup [precondition]: needed object missing: sql: no rows in result set
	// somepackage: oops: Lookup [precondition]: needed object missing: sql: no rows in result set
}

func TestErrorIs(t *testing.T) {
	configMissing := &Error{
		Op:      "config.Resolve",
		Kind:    ErrContentConfigMissing,
		Message: "no config for (rpm, ubi-8, 8.4) after version fallback",
	}
	if !errors.Is(configMissing, ErrContentConfigMissing) {
		t.Error("expected configMissing to match ErrContentConfigMissing")
	}
	if errors.Is(configMissing, ErrInconsistentConfig) {
		t.Error("did not expect configMissing to match ErrInconsistentConfig")
	}

	wrapped := fmt.Errorf("coordinator: %w", configMissing)
	if !errors.Is(wrapped, ErrContentConfigMissing) {
		t.Error("expected wrapped error to still match ErrContentConfigMissing")
	}
}
