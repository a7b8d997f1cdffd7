// Package errors provides coded domain errors shared by the engine, the
// stores and the transports.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Rule errors
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeUnknownReference     Code = "UNKNOWN_REFERENCE"
	CodeInsufficientResource Code = "INSUFFICIENT_RESOURCE"
	CodeInvalidArgument      Code = "INVALID_ARGUMENT"
	CodePermissionDenied     Code = "PERMISSION_DENIED"

	// Lobby errors
	CodeGameFull Code = "GAME_FULL"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeInvalidArgument:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeInvalidTransition,
		CodeInsufficientResource,
		CodeGameFull:
		return codes.FailedPrecondition

	case CodeNotFound,
		CodeUnknownReference:
		return codes.NotFound

	case CodeAlreadyExists:
		return codes.AlreadyExists

	case CodePermissionDenied:
		return codes.PermissionDenied

	default:
		return codes.Internal
	}
}
