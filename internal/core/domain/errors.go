package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks a client-side form violation. Non-fatal.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a mutate or delete target is missing.
	ErrNotFound = errors.New("record not found")
	// ErrPermissionDenied is returned when the remote policy rejects an operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrSchemaMissing is returned when the remote collection does not exist.
	ErrSchemaMissing = errors.New("collection missing")
	// ErrTransport covers every other network or backend fault.
	ErrTransport = errors.New("transport error")
	// ErrUnauthenticated is returned when a role lookup runs without an identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnknownCollection is returned for collection keys outside the module registry.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrInvalidRecord is returned when a record holds a non-scalar value.
	ErrInvalidRecord = errors.New("invalid record")
)

// ValidationError lists the required columns that held a falsy value.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s required", ErrValidation, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Kind is the normalised failure category surfaced upstream.
type Kind string

const (
	KindNone             Kind = ""
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindPermissionDenied Kind = "permission_denied"
	KindSchemaMissing    Kind = "schema_missing"
	KindTransport        Kind = "transport"
	KindUnauthenticated  Kind = "unauthenticated"
	KindUnknown          Kind = "unknown"
)

// Classify maps err onto the failure taxonomy.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidRecord):
		return KindValidation
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownCollection):
		return KindNotFound
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrSchemaMissing):
		return KindSchemaMissing
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrTransport):
		return KindTransport
	default:
		return KindUnknown
	}
}

// UserMessage renders err as the text shown next to a module's table or form.
func UserMessage(err error) string {
	switch Classify(err) {
	case KindNone:
		return ""
	case KindValidation:
		var ve *ValidationError
		if errors.As(err, &ve) {
			return "Please fill in: " + strings.Join(ve.Fields, ", ")
		}
		return "Some values are not valid"
	case KindNotFound:
		return "The record no longer exists"
	case KindPermissionDenied:
		return "You are not allowed to perform this action"
	case KindSchemaMissing:
		return "This module's table has not been set up yet"
	case KindUnauthenticated:
		return "Please sign in again"
	case KindTransport:
		return "Could not reach the data service, please try again"
	default:
		return "Something went wrong: " + err.Error()
	}
}
