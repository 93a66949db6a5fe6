package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Run("returns the kind of a direct error", func(t *testing.T) {
		if KindOf(NotFound("order 1 not found")) != KindNotFound {
			t.Fatal("expected KindNotFound")
		}
	})

	t.Run("sees through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("create payment: %w", Conflict("already paid"))
		if KindOf(wrapped) != KindConflict {
			t.Fatal("expected KindConflict through the wrap")
		}
	})

	t.Run("defaults to internal for plain errors", func(t *testing.T) {
		if KindOf(errors.New("boom")) != KindInternal {
			t.Fatal("expected KindInternal")
		}
	})
}

func TestProviderErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Provider(cause, "cardgate request failed")

	if !errors.Is(err, cause) {
		t.Fatal("expected the cause to survive wrapping")
	}
	if KindOf(err) != KindProvider {
		t.Fatal("expected KindProvider")
	}
}
