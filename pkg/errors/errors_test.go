package errors

import (
	stderrors "errors"
	"testing"
)

func TestWrap_NilReturnsNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Fatal("expected nil when wrapping nil error")
	}
}

func TestWrap_PreservesContext(t *testing.T) {
	base := stderrors.New("boom")
	wrapped := Wrap(base, "download failed")

	if wrapped.Error() != "download failed: boom" {
		t.Fatalf("unexpected message: %s", wrapped.Error())
	}
	if !stderrors.Is(wrapped, base) {
		t.Fatal("expected wrapped error to unwrap to base")
	}
}

func TestClassOf_DefaultsToFatal(t *testing.T) {
	if ClassOf(stderrors.New("unclassified")) != ClassFatal {
		t.Fatal("expected unclassified error to default to ClassFatal")
	}
}

func TestClassOf_ReturnsClassifiedClass(t *testing.T) {
	err := New(ClassChecksumMismatch, stderrors.New("digest mismatch"))
	if ClassOf(err) != ClassChecksumMismatch {
		t.Fatalf("expected ClassChecksumMismatch, got %s", ClassOf(err))
	}
}

func TestClassified_IsMatchesByClass(t *testing.T) {
	a := New(ClassIO, stderrors.New("disk full"))
	b := New(ClassIO, stderrors.New("different cause"))

	if !stderrors.Is(a, b) {
		t.Fatal("expected two Classified errors with the same class to match Is")
	}
	if stderrors.Is(a, New(ClassGeometryMismatch, nil)) {
		t.Fatal("expected different classes not to match")
	}
}
