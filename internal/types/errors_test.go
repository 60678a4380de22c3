package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// TestAppErrorErrorFormat verifies the Error() method produces "code: message".
func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeValidationInvalidLat,
		Message: "latitude must be between -90 and 90",
	}

	expected := "validation_invalid_latitude: latitude must be between -90 and 90"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	appErr := NewAppError(ErrCodeUpstreamOracle, "oracle unavailable", underlying)

	if !errors.Is(appErr, underlying) {
		t.Error("expected errors.Is to find the underlying error")
	}

	wrapped := fmt.Errorf("assess: %w", appErr)
	var target *AppError
	if !errors.As(wrapped, &target) {
		t.Fatal("expected errors.As to extract AppError")
	}
	if target.Code != ErrCodeUpstreamOracle {
		t.Errorf("Code = %q, want %q", target.Code, ErrCodeUpstreamOracle)
	}
}

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationInvalidLat, http.StatusBadRequest},
		{ErrCodeValidationInvalidProximity, http.StatusBadRequest},
		{ErrCodeValidationBatchSize, http.StatusBadRequest},
		{ErrCodeNotFoundAssessment, http.StatusNotFound},
		{ErrCodeUpstreamOracle, http.StatusBadGateway},
		{ErrCodeUpstreamOracleMalformed, http.StatusBadGateway},
		{ErrCodeUpstreamRateLimited, http.StatusServiceUnavailable},
		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrorCode("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorWithDetails_DoesNotMutateOriginal(t *testing.T) {
	orig := NewAppErrorWithDetails(ErrCodeValidationBatchSize, "too many", nil, map[string]any{"max": 50})
	merged := orig.WithDetails(map[string]any{"got": 80})

	if len(orig.Details) != 1 {
		t.Errorf("original details mutated: %v", orig.Details)
	}
	if merged.Details["max"] != 50 || merged.Details["got"] != 80 {
		t.Errorf("merged details = %v", merged.Details)
	}
}
