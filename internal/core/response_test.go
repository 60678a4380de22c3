package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fishwatch/internal/types"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) APIErrorResponse {
	t.Helper()
	var resp APIErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestJSON_Success(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/assessments", nil)

	count := 3
	JSON(rec, r, http.StatusOK, APIResponse{
		Data: []string{"a", "b", "c"},
		Meta: &ResponseMeta{Count: count},
	})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := rec.Body.String(); got != `{"data":["a","b","c"],"meta":{"count":3}}` {
		t.Errorf("body = %s", got)
	}
}

func TestJSON_MarshalFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(types.WithRequestID(r.Context(), "req-marshal-fail"))

	JSON(rec, r, http.StatusOK, map[string]float64{"confidence": math.NaN()})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	resp := decodeErrorBody(t, rec)
	if resp.Error.Code != string(types.ErrCodeInternalUnexpected) || resp.Error.RequestID != "req-marshal-fail" {
		t.Errorf("unexpected error: %+v", resp.Error)
	}
}

func TestError_StatusMapping(t *testing.T) {
	tests := []struct {
		code   types.ErrorCode
		status int
	}{
		{types.ErrCodeValidationInvalidLat, http.StatusBadRequest},
		{types.ErrCodeValidationBatchSize, http.StatusBadRequest},
		{types.ErrCodeNotFoundAssessment, http.StatusNotFound},
		{types.ErrCodeUpstreamOracle, http.StatusBadGateway},
		{types.ErrCodeUpstreamOracleMalformed, http.StatusBadGateway},
		{types.ErrCodeUpstreamRateLimited, http.StatusServiceUnavailable},
		{types.ErrCodeInternalDB, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/v1/assessments", nil)
			r = r.WithContext(types.WithRequestID(r.Context(), "req-map"))

			Error(rec, r, types.NewAppError(tt.code, "something happened", errors.New("secret cause")))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			resp := decodeErrorBody(t, rec)
			if resp.Error.Code != string(tt.code) {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.code)
			}
			if resp.Error.RequestID != "req-map" {
				t.Errorf("request_id = %q", resp.Error.RequestID)
			}
			if strings.Contains(rec.Body.String(), "secret cause") {
				t.Error("wrapped cause leaked to client")
			}
		})
	}
}

func TestError_WrappedAppErrorAndDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/assessments/batch", nil)

	appErr := types.NewAppErrorWithDetails(types.ErrCodeValidationBatchSize, "too many observations", nil,
		map[string]any{"max": 100})
	Error(rec, r, fmt.Errorf("handler: %w", appErr))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	resp := decodeErrorBody(t, rec)
	if resp.Error.Details["max"] != float64(100) {
		t.Errorf("details = %v", resp.Error.Details)
	}
}

func TestError_GenericError(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	Error(rec, r, errors.New("pq: connection refused at 10.0.0.5"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	resp := decodeErrorBody(t, rec)
	if resp.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("code = %q", resp.Error.Code)
	}
	if strings.Contains(resp.Error.Message, "10.0.0.5") {
		t.Error("internal error message leaked")
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"latitude":36,"longitude":138}`, false},
		{"unknown field", `{"latitude":36,"vessel":"x"}`, true},
		{"syntax error", `{"latitude":`, true},
		{"empty body", ``, true},
		{"type mismatch", `{"latitude":"north"}`, true},
		{"trailing value", `{"latitude":1}{"latitude":2}`, true},
		{"too large", `{"latitude":1,"pad":"` + strings.Repeat("x", maxRequestBodySize) + `"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/v1/assessments", strings.NewReader(tt.body))

			var dst payload
			err := DecodeJSON(rec, r, &dst)

			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if dst.Latitude != 36 || dst.Longitude != 138 {
					t.Errorf("decoded %+v", dst)
				}
				return
			}

			var appErr *types.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *types.AppError, got %T: %v", err, err)
			}
			if appErr.Code != types.ErrCodeValidationInvalidJSON {
				t.Errorf("code = %q, want %q", appErr.Code, types.ErrCodeValidationInvalidJSON)
			}
		})
	}
}
