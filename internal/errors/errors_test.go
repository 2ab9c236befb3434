package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestReblockError_Error(t *testing.T) {
	err := &ReblockError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "page not found",
	}

	expected := "NOT_FOUND: page not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("url is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "url is required" {
		t.Errorf("Message = %q, want %q", err.Message, "url is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("01HXYZ")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "01HXYZ" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "01HXYZ")
	}
}

func TestNewFetchFailed(t *testing.T) {
	err := NewFetchFailed("http://ex.com", fmt.Errorf("connection refused"))

	if err.Code != ErrFetchFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrFetchFailed)
	}
	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
	want := "error fetching http://ex.com: connection refused"
	if err.Message != want {
		t.Errorf("Message = %q, want %q", err.Message, want)
	}
}

func TestNewExtractionFailed(t *testing.T) {
	err := NewExtractionFailed("http://ex.com", nil)

	if err.Code != ErrExtractionFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrExtractionFailed)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
}

func TestNewExternalService(t *testing.T) {
	err := NewExternalService("image generator", fmt.Errorf("No image returned"))

	if err.Code != ErrExternalService {
		t.Errorf("Code = %q, want %q", err.Code, ErrExternalService)
	}
	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
	if err.Details["service"] != "image generator" {
		t.Errorf("Details[service] = %v", err.Details["service"])
	}
}

func TestNewTimeout(t *testing.T) {
	err := NewTimeout("text generator", 120)

	if err.Code != ErrTimeout {
		t.Errorf("Code = %q, want %q", err.Code, ErrTimeout)
	}
	if err.Status != 504 {
		t.Errorf("Status = %d, want 504", err.Status)
	}
	if err.Message != "text generator timed out after 120s" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("disk full"))
		if err.Code != ErrInternal || err.Status != 500 {
			t.Errorf("got %q/%d, want INTERNAL/500", err.Code, err.Status)
		}
		if err.Message != "disk full" {
			t.Errorf("Message = %q, want %q", err.Message, "disk full")
		}
	})

	t.Run("nil error", func(t *testing.T) {
		err := NewInternal(nil)
		if err.Message != "internal error" {
			t.Errorf("Message = %q, want %q", err.Message, "internal error")
		}
	})
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewNotFound("x"), ErrNotFound, true},
		{"different code", NewNotFound("x"), ErrInternal, false},
		{"wrapped", fmt.Errorf("ctx: %w", NewInvalidRequest("bad")), ErrInvalidRequest, true},
		{"plain error", stderrors.New("boom"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAs(t *testing.T) {
	orig := NewNotFound("abc")
	if got := As(fmt.Errorf("wrap: %w", orig)); got != orig {
		t.Errorf("As() did not unwrap the original error")
	}

	got := As(stderrors.New("boom"))
	if got.Code != ErrInternal || got.Message != "boom" {
		t.Errorf("As(plain) = %q/%q, want INTERNAL/boom", got.Code, got.Message)
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("/tmp/backup.jsonl")

	if err.Code != ErrFileNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrFileNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["path"] != "/tmp/backup.jsonl" {
		t.Errorf("Details[path] = %v", err.Details["path"])
	}
}

func TestNewCancelled(t *testing.T) {
	err := NewCancelled("export")

	if err.Code != ErrCancelled {
		t.Errorf("Code = %q, want %q", err.Code, ErrCancelled)
	}
	if err.Message != "export cancelled" {
		t.Errorf("Message = %q, want %q", err.Message, "export cancelled")
	}
}
