package responses

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/avidal-labs/brewshop-backend/pkg/errors"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
	"github.com/avidal-labs/brewshop-backend/pkg/types"
)

func TestWriteSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"hello": "world"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["hello"] != "world" {
		t.Fatalf("data = %v", data)
	}
}

func TestWriteErrorCarriesCodeStatusAndDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInsufficientStock, "only 2 left").
		WithDetails(map[string]any{"available": 2})
	WriteError(context.Background(), nil, rec, err)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("code = %q", envelope.Error.Code)
	}
	if envelope.Error.Message != "only 2 left" {
		t.Fatalf("message = %q", envelope.Error.Message)
	}
	details := envelope.Error.Details.(map[string]any)
	if details["available"] != float64(2) {
		t.Fatalf("details = %v", details)
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInternal, "db exploded at 3am").
		WithDetails(map[string]any{"secret": "yes"})
	WriteError(context.Background(), nil, rec, err)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Message != "internal server error" {
		t.Fatalf("internal message leaked: %q", envelope.Error.Message)
	}
	if envelope.Error.Details != nil {
		t.Fatalf("internal details leaked: %v", envelope.Error.Details)
	}
}

func TestWriteErrorEchoesRequestID(t *testing.T) {
	logg := logger.New(logger.Options{Output: io.Discard})
	ctx := logg.WithRequestID(context.Background(), "req-42")

	rec := httptest.NewRecorder()
	WriteError(ctx, nil, rec, pkgerrors.New(pkgerrors.CodeNotFound, "no such order"))

	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.RequestID != "req-42" {
		t.Fatalf("request_id = %q, want req-42", envelope.Error.RequestID)
	}
}

func TestWriteErrorWrapsUntypedErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, context.DeadlineExceeded)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("code = %q", envelope.Error.Code)
	}
}
