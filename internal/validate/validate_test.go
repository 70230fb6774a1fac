package validate_test

import (
	"testing"

	"github.com/rsappia/tvargenta/internal/validate"
)

func TestNonEmptyString(t *testing.T) {
	if err := validate.NonEmptyString("name", "hello"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := validate.NonEmptyString("name", "   "); err == nil {
		t.Error("expected error for whitespace-only string")
	}
	if err := validate.NonEmptyString("name", ""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestMaxLength(t *testing.T) {
	if err := validate.MaxLength("name", "hello", 10); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := validate.MaxLength("name", "hello world!", 5); err == nil {
		t.Error("expected error for too-long string")
	}
}

func TestIsUUID(t *testing.T) {
	if err := validate.IsUUID("id", "550e8400-e29b-41d4-a716-446655440000"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := validate.IsUUID("id", "not-a-uuid"); err == nil {
		t.Error("expected error for invalid UUID")
	}
}

func TestIsAlphanumericSlug(t *testing.T) {
	if err := validate.IsAlphanumericSlug("series", "looney_tunes"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := validate.IsAlphanumericSlug("series", "../../etc/passwd"); err == nil {
		t.Error("expected error for path-traversal-shaped slug")
	}
}

func TestNoPathTraversal(t *testing.T) {
	if err := validate.NoPathTraversal("path", "cartoons/ep1.mp4"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := validate.NoPathTraversal("path", "../../etc/passwd"); err == nil {
		t.Error("expected error for traversal sequence")
	}
}

func TestIsTimeOfDay(t *testing.T) {
	if err := validate.IsTimeOfDay("time_of_day", "evening"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := validate.IsTimeOfDay("time_of_day", "midnight"); err == nil {
		t.Error("expected error for unknown time of day")
	}
}

func TestMultiError(t *testing.T) {
	var m validate.MultiError
	m.Add(validate.NonEmptyString("name", ""))
	m.Add(validate.IsUUID("id", "bad"))
	if !m.HasErrors() {
		t.Fatal("expected errors to be collected")
	}
	if len(m.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d", len(m.Errors))
	}
}
