package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataFor(t *testing.T) {
	tests := []struct {
		code       Code
		wantStatus int
		retryable  bool
	}{
		{CodeValidation, http.StatusBadRequest, false},
		{CodeAuthenticity, http.StatusForbidden, false},
		{CodeStateConflict, http.StatusUnprocessableEntity, false},
		{CodeDependency, http.StatusServiceUnavailable, true},
		{Code("bogus"), http.StatusInternalServerError, true},
	}
	for _, tc := range tests {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.wantStatus {
			t.Errorf("MetadataFor(%s).HTTPStatus = %d, want %d", tc.code, meta.HTTPStatus, tc.wantStatus)
		}
		if meta.Retryable != tc.retryable {
			t.Errorf("MetadataFor(%s).Retryable = %v, want %v", tc.code, meta.Retryable, tc.retryable)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("db down")
	err := Wrap(CodeDependency, cause, "record payment event")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped error should match its cause")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAs(t *testing.T) {
	typed := New(CodeStateConflict, "order already settled")
	wrapped := fmt.Errorf("processing callback: %w", typed)

	got := As(wrapped)
	if got == nil {
		t.Fatal("expected typed error")
	}
	if got.Code() != CodeStateConflict {
		t.Fatalf("unexpected code %s", got.Code())
	}

	if As(stdErrors.New("plain")) != nil {
		t.Fatal("plain errors should not match")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "bad postcode").WithDetails(map[string]string{"postcode": "must be 5 digits"})
	details, ok := err.Details().(map[string]string)
	if !ok || details["postcode"] == "" {
		t.Fatalf("details not retained: %#v", err.Details())
	}
}
