package domain

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/utafrali/catalogsearch/pkg/errors"
)

// Domain error sentinels. Match them with errors.Is.
var (
	ErrInvalidFilterRange = errors.New("invalid filter range")
	ErrUnknownEnumValue   = errors.New("unknown enum value")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// InvalidFilterRange reports a numeric range whose minimum exceeds its maximum.
func InvalidFilterRange(field string, lo, hi any) *apperrors.AppError {
	return apperrors.Validation("INVALID_FILTER_RANGE",
		fmt.Sprintf("%s range is invalid: min %v exceeds max %v", field, lo, hi),
		ErrInvalidFilterRange,
	)
}

// NonFiniteFilterBound reports a range bound that is NaN or infinite.
func NonFiniteFilterBound(field string) *apperrors.AppError {
	return apperrors.Validation("INVALID_FILTER_RANGE",
		fmt.Sprintf("%s range bounds must be finite numbers", field),
		ErrInvalidFilterRange,
	)
}

// UnknownEnumValue reports a categorical filter value outside its domain.
func UnknownEnumValue(attr Attribute, value string) *apperrors.AppError {
	return apperrors.Validation("UNKNOWN_ENUM_VALUE",
		fmt.Sprintf("unknown %s value %q", attr, value),
		ErrUnknownEnumValue,
	)
}

// StorageUnavailable wraps a storage collaborator failure. Errors that are
// already classified, and context cancellation, are returned unchanged.
func StorageUnavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.ServiceUnavailable("STORAGE_UNAVAILABLE",
		"search storage is temporarily unavailable",
		fmt.Errorf("%w: %w", ErrStorageUnavailable, err),
	)
}
