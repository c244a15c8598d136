package server

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error taxonomy (spec.md §7). Handlers and the lifecycle manager return
// these sentinels (or wrap them); toStatus maps them to the transport's
// status codes at the dispatcher boundary. The client façade reverses the
// mapping so callers can errors.Is against the same sentinels.
var (
	ErrInvalidRequest = errors.New("flightsql: invalid request")
	ErrNotImplemented = errors.New("flightsql: not implemented")
	ErrHandleNotFound = errors.New("flightsql: handle not found")
	ErrHandleBusy     = errors.New("flightsql: handle busy")
	ErrSchemaMismatch = errors.New("flightsql: parameter batch schema does not match prepared statement")
)

// BackendError wraps any failure surfaced by a SqlBackend with a
// human-readable message and, where known, a SQLSTATE-like code (spec.md
// §7). The stack is captured at construction time via github.com/pkg/errors
// so it survives the hop across the dispatcher into server logs.
type BackendError struct {
	Message  string
	SQLState string
	cause    error
}

// NewBackendError wraps cause as a BackendError, capturing its stack trace.
func NewBackendError(cause error, sqlState string) error {
	if cause == nil {
		return nil
	}
	return &BackendError{
		Message:  cause.Error(),
		SQLState: sqlState,
		cause:    pkgerrors.WithStack(cause),
	}
}

func (e *BackendError) Error() string {
	if e.SQLState != "" {
		return e.Message + " (sqlstate " + e.SQLState + ")"
	}
	return e.Message
}

func (e *BackendError) Unwrap() error { return e.cause }

// toStatus maps the abstract error taxonomy onto a transport status error.
// Errors that already carry a grpc status other than Unknown (e.g. produced
// by the transport itself) pass through unchanged; context.Canceled and
// context.DeadlineExceeded map to codes.Canceled and codes.DeadlineExceeded.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		if s, ok2 := status.FromError(err); ok2 && s.Code() != codes.Unknown {
			return err
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrNotImplemented):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, ErrHandleNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrHandleBusy):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, ErrSchemaMismatch):
		return status.Error(codes.FailedPrecondition, err.Error())
	}

	var be *BackendError
	if errors.As(err, &be) {
		return status.Error(codes.Internal, be.Error())
	}

	return status.Error(codes.Unknown, err.Error())
}

// FromStatus recovers the abstract taxonomy from a transport error, for use
// by the client façade. Returns the original error if it does not map to a
// known sentinel.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	s, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch s.Code() {
	case codes.InvalidArgument:
		return errWrap(ErrInvalidRequest, s.Message())
	case codes.Unimplemented:
		return errWrap(ErrNotImplemented, s.Message())
	case codes.NotFound:
		return errWrap(ErrHandleNotFound, s.Message())
	case codes.Aborted:
		return errWrap(ErrHandleBusy, s.Message())
	case codes.FailedPrecondition:
		return errWrap(ErrSchemaMismatch, s.Message())
	default:
		return err
	}
}

type wrappedSentinel struct {
	sentinel error
	message  string
}

func errWrap(sentinel error, message string) error {
	return &wrappedSentinel{sentinel: sentinel, message: message}
}

func (w *wrappedSentinel) Error() string { return w.message }
func (w *wrappedSentinel) Unwrap() error { return w.sentinel }
