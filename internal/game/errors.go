package game

import (
	apperrors "github.com/vikinglords/vikinglords-server/internal/errors"
)

func invalidTransition(format string, args ...any) error {
	return apperrors.Newf(apperrors.CodeInvalidTransition, format, args...)
}

func unknownReference(format string, args ...any) error {
	return apperrors.Newf(apperrors.CodeUnknownReference, format, args...)
}

func insufficientResource(format string, args ...any) error {
	return apperrors.Newf(apperrors.CodeInsufficientResource, format, args...)
}

func invalidArgument(format string, args ...any) error {
	return apperrors.Newf(apperrors.CodeInvalidArgument, format, args...)
}

func permissionDenied(format string, args ...any) error {
	return apperrors.Newf(apperrors.CodePermissionDenied, format, args...)
}
