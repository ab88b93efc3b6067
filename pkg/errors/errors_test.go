package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeInsufficientStock, status: http.StatusConflict, publicMsg: "insufficient stock", detailsOK: true},
		{code: CodeSessionIntegrity, status: http.StatusConflict, publicMsg: "session state is inconsistent"},
		{code: CodeQuantitiesChanged, status: http.StatusConflict, publicMsg: "order quantities were adjusted", detailsOK: true},
		{code: CodePaymentDeclined, status: http.StatusPaymentRequired, publicMsg: "payment not accepted"},
		{code: CodeOrderGone, status: http.StatusGone, publicMsg: "order is no longer available"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	wrapped := Wrap(CodeDependency, stdErrors.New("socket closed"), "erp call failed")
	if wrapped.Unwrap() == nil {
		t.Fatal("expected cause to be preserved")
	}
	if wrapped.Error() != "DEPENDENCY_ERROR: erp call failed" {
		t.Fatalf("unexpected error string %q", wrapped.Error())
	}
}

func TestAsUnwrapsNestedTypedError(t *testing.T) {
	inner := New(CodeNotFound, "no such order")
	outer := Wrap(CodeDependency, inner, "lookup failed")

	if typed := As(outer); typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("expected outermost typed error, got %v", typed)
	}
	if !HasCode(outer, CodeDependency) {
		t.Fatal("expected HasCode to match outer code")
	}
	if HasCode(nil, CodeNotFound) {
		t.Fatal("nil error should not match any code")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeInsufficientStock, "clamped").WithDetails(map[string]int{"available": 1})
	details, ok := err.Details().(map[string]int)
	if !ok || details["available"] != 1 {
		t.Fatalf("unexpected details %v", err.Details())
	}
}
