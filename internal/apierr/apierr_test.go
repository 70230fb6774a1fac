package apierr_test

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/rsappia/tvargenta/internal/apierr"
)

func TestWriteJSONUsesKindStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	apierr.WriteJSON(rr, apierr.NotFound("no such video"))
	if rr.Code != 404 {
		t.Errorf("expected 404, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "not_found" {
		t.Errorf("expected error=not_found, got %q", body["error"])
	}
	if body["message"] != "no such video" {
		t.Errorf("unexpected message %q", body["message"])
	}
}

func TestWriteJSONWrapsPlainError(t *testing.T) {
	rr := httptest.NewRecorder()
	apierr.WriteJSON(rr, errors.New("boom"))
	if rr.Code != 500 {
		t.Errorf("expected 500 for an unclassified error, got %d", rr.Code)
	}
}

func TestWriteSuccessSetsStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	apierr.WriteSuccess(rr, 201, map[string]string{"ok": "true"})
	if rr.Code != 201 {
		t.Errorf("expected 201, got %d", rr.Code)
	}
}
