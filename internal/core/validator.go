package core

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"fishwatch/internal/types"
)

// fieldErrorCodes maps a JSON field name to its validation error code.
var fieldErrorCodes = map[string]types.ErrorCode{
	"latitude":  types.ErrCodeValidationInvalidLat,
	"longitude": types.ErrCodeValidationInvalidLon,
	"speed":     types.ErrCodeValidationInvalidSpeed,
	"proximity": types.ErrCodeValidationInvalidProximity,
}

// Validator wraps go-playground/validator with the domain tags used by
// request types.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator and registers the custom "finite" tag.
// Field names in errors are taken from json tags.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// RegisterValidation only fails on an empty tag or a nil func.
	if err := v.RegisterValidation("finite", validateFinite); err != nil {
		panic(fmt.Sprintf("register finite validation: %v", err))
	}

	return &Validator{validate: v, logger: logger}
}

func validateFinite(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return true
	}
}

// ValidateStruct validates s and converts the first failure into an AppError
// with a field-specific code. Every failing field is listed under
// details["fields"].
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		v.logger.Error("struct validation could not run", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	fields := make([]map[string]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, map[string]string{
			"field": fieldPath(fe),
			"rule":  fe.Tag(),
		})
	}

	first := fieldErrs[0]
	return types.NewAppErrorWithDetails(
		errorCodeFor(first),
		messageFor(first),
		err,
		map[string]any{"fields": fields},
	)
}

func errorCodeFor(fe validator.FieldError) types.ErrorCode {
	if fe.Tag() == "required" {
		return types.ErrCodeValidationMissingField
	}
	if code, ok := fieldErrorCodes[fe.Field()]; ok {
		return code
	}
	return types.ErrCodeValidationMissingField
}

func messageFor(fe validator.FieldError) string {
	path := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return path + " is required"
	case "finite":
		return path + " must be a finite number"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", path, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", path, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", path, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", path, fe.Tag())
	}
}

// fieldPath drops the top-level struct name from the namespace, e.g.
// "BatchAssessmentRequest.observations[2].speed" -> "observations[2].speed".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
