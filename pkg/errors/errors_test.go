package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodePackageNotFound, "package %s is not in use", "serde")

	if err.Code != ErrCodePackageNotFound {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodePackageNotFound)
	}
	if err.Message != "package serde is not in use" {
		t.Errorf("Message = %q", err.Message)
	}
	if !strings.Contains(err.Error(), "PACKAGE_NOT_FOUND") {
		t.Errorf("Error() should contain code, got %q", err.Error())
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("exit status 101")
	err := Wrap(ErrCodeMetadata, cause, "cargo metadata failed")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if !strings.Contains(err.Error(), "exit status 101") {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeAlreadyHacked, "manifests already unified")

	if !Is(err, ErrCodeAlreadyHacked) {
		t.Error("Is should match the error's own code")
	}
	if Is(err, ErrCodeChecksumMismatch) {
		t.Error("Is should not match a different code")
	}
	if Is(stderrors.New("plain"), ErrCodeAlreadyHacked) {
		t.Error("Is should not match plain errors")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeMalformedSnapshot, "bad edge")); got != ErrCodeMalformedSnapshot {
		t.Errorf("GetCode = %s", got)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode on plain error = %s, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeChecksumMismatch, "stored hack is stale")
	if got := UserMessage(err); got != "stored hack is stale" {
		t.Errorf("UserMessage = %q", got)
	}
	if got := UserMessage(stderrors.New("plain")); got != "plain" {
		t.Errorf("UserMessage on plain error = %q", got)
	}
}

func TestRecoverable(t *testing.T) {
	cases := []struct {
		code Code
		want bool
	}{
		{ErrCodeAlreadyHacked, true},
		{ErrCodeChecksumMismatch, true},
		{ErrCodeMalformedSnapshot, false},
		{ErrCodeAmbiguousIdentity, false},
		{ErrCodeInternal, false},
	}
	for _, c := range cases {
		if got := Recoverable(New(c.code, "x")); got != c.want {
			t.Errorf("Recoverable(%s) = %v, want %v", c.code, got, c.want)
		}
	}
}
