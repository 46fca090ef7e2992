package faults_test

import (
	"errors"
	"strings"
	"testing"

	"epochcap/internal/faults"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("short read")
	err := faults.Wrap(faults.ErrDecode, "dataset", "decode", "night1.edf", base)
	if !errors.Is(err, faults.ErrDecode) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"dataset", "decode", "night1.edf", "short read"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := faults.Wrap(faults.ErrNoDirectory, "", "", "", nil)
	if !errors.Is(err, faults.ErrNoDirectory) {
		t.Fatalf("expected marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "capture failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestFatalClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"decode", faults.Wrap(faults.ErrDecode, "dataset", "decode", "", nil), true},
		{"empty", faults.Wrap(faults.ErrEmptyChannelSet, "dataset", "decode", "", nil), true},
		{"enumeration", faults.Wrap(faults.ErrEnumeration, "batch", "list", "", nil), true},
		{"export", faults.Wrap(faults.ErrExportWrite, "export", "write", "", nil), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := faults.Fatal(tc.err); got != tc.want {
			t.Fatalf("%s: Fatal() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
