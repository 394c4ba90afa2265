package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestMetadataFor_KnownCodes(t *testing.T) {
	cases := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeNotFound, http.StatusNotFound},
		{CodeProductNotFound, http.StatusNotFound},
		{CodeCartItemNotFound, http.StatusNotFound},
		{CodeInsufficientStock, http.StatusBadRequest},
		{CodeInvalidQuantity, http.StatusBadRequest},
		{CodeInvalidIdentity, http.StatusBadRequest},
		{CodeRateLimit, http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Errorf("MetadataFor(%s).HTTPStatus = %d, want %d", tc.code, got, tc.status)
		}
	}
}

func TestMetadataFor_UnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown code status = %d, want 500", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := Wrap(CodeDependency, cause, "redis unavailable")
	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped error should match cause via errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("code = %s, want %s", err.Code(), CodeDependency)
	}
}

func TestAsUnwrapsThroughChain(t *testing.T) {
	inner := New(CodeInsufficientStock, "only 2 left")
	outer := fmt.Errorf("add item: %w", inner)
	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error from chain")
	}
	if typed.Code() != CodeInsufficientStock {
		t.Fatalf("code = %s", typed.Code())
	}
}

func TestAsReturnsNilForPlainError(t *testing.T) {
	if As(fmt.Errorf("plain")) != nil {
		t.Fatal("plain error should not produce a typed error")
	}
	if As(nil) != nil {
		t.Fatal("nil error should produce nil")
	}
}

func TestDumpWalksChain(t *testing.T) {
	cause := fmt.Errorf("duplicate key value")
	err := Wrap(CodeConflict, cause, "cart item exists")
	dump := Dump(err)
	if !strings.Contains(dump, "CONFLICT") || !strings.Contains(dump, "duplicate key") {
		t.Fatalf("dump missing chain parts: %s", dump)
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeInsufficientStock, "short").WithDetails(map[string]any{"available": 2})
	details, ok := err.Details().(map[string]any)
	if !ok || details["available"] != 2 {
		t.Fatalf("details = %#v", err.Details())
	}
}
