package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"dailypost/internal/schedule"
	"dailypost/internal/types"
)

// Validator wraps go-playground/validator with the domain-specific tags:
//
//	is_timezone  IANA zone name (not "Local")
//	time_of_day  strict 24h HH:MM
//	iso_date     YYYY-MM-DD calendar date
//	not_blank    at least one non-space character
//	post_text    at most types.MaxPostLength characters once trimmed
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// ValidationError describes one failed field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult separates blocking errors from advisory warnings.
type ValidationResult struct {
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// IsValid reports whether the result carries no errors. Warnings do not make
// a result invalid.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// NewValidator creates a Validator and registers the custom tags. Field names
// in errors are the JSON names.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("is_timezone", validateTimezone)
	_ = v.RegisterValidation("time_of_day", validateTimeOfDay)
	_ = v.RegisterValidation("iso_date", validateISODate)
	_ = v.RegisterValidation("not_blank", validateNotBlank)
	_ = v.RegisterValidation("post_text", validatePostText)

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates s and returns a *types.AppError whose code is that
// of the first failing field. Every failure is listed in
// Details["validation_errors"].
func (v *Validator) ValidateStruct(s any) error {
	result := v.ValidateStructWithWarnings(s)
	if result.IsValid() {
		return nil
	}

	first := result.Errors[0]
	return types.NewAppErrorWithDetails(
		types.ErrorCode(first.Code),
		first.Message,
		nil,
		map[string]any{"validation_errors": result.Errors},
	)
}

// ValidateStructWithWarnings validates s and returns all failures.
func (v *Validator) ValidateStructWithWarnings(s any) ValidationResult {
	err := v.validate.Struct(s)
	if err == nil {
		return ValidationResult{}
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.logger.Error("validator misuse", "error", err)
		return ValidationResult{Errors: []ValidationError{{
			Code:    string(types.ErrCodeInternalUnexpected),
			Message: err.Error(),
		}}}
	}

	result := ValidationResult{Errors: make([]ValidationError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fieldPath(fe),
			Code:    tagToErrorCode(fe.Tag()),
			Message: messageFor(fe),
		})
	}
	return result
}

// fieldPath is the JSON path without the top-level struct name.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func tagToErrorCode(tag string) string {
	switch tag {
	case "required", "min", "not_blank":
		return string(types.ErrCodeValidationMissingField)
	case "is_timezone":
		return string(types.ErrCodeValidationInvalidTimezone)
	case "time_of_day":
		return string(types.ErrCodeValidationInvalidTimeOfDay)
	case "iso_date":
		return string(types.ErrCodeValidationInvalidDate)
	case "post_text":
		return string(types.ErrCodeValidationTextTooLong)
	default:
		return string(types.ErrCodeValidationInvalidField)
	}
}

func messageFor(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "is_timezone":
		return fmt.Sprintf("%s must be an IANA timezone name, got %q", field, fe.Value())
	case "time_of_day":
		return fmt.Sprintf("%s must be HH:MM (24h), got %q", field, fe.Value())
	case "iso_date":
		return fmt.Sprintf("%s must be YYYY-MM-DD, got %q", field, fe.Value())
	case "not_blank":
		return field + " must not be blank"
	case "post_text":
		return fmt.Sprintf("%s must be at most %d characters", field, types.MaxPostLength)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// Empty strings pass the custom tags; combine with required when needed.

func validateTimezone(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := schedule.LoadZone(s)
	return err == nil
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := types.ParseTimeOfDay(s)
	return err == nil
}

func validateISODate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := types.ParseDate(s)
	return err == nil
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validatePostText(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.TrimSpace(s) == "" {
		return true
	}
	_, ok := types.NormalizePost(s)
	return ok
}
