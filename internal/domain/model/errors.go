package model

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors shared by ports and services.
var (
	// ErrInvalidConfig marks missing or malformed credentials or path config.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrNotFound marks an absent remote resource. Callers treat it as a
	// decision (skip, create) rather than a failure.
	ErrNotFound = errors.New("not found")

	// ErrBranchExists is returned when a branch to be created already exists.
	// Branch creation treats it as success.
	ErrBranchExists = errors.New("branch already exists")
)

// KeyMaterialError means the private key could not be read or parsed.
type KeyMaterialError struct {
	Err error
}

func (e *KeyMaterialError) Error() string { return "private key: " + e.Err.Error() }
func (e *KeyMaterialError) Unwrap() error { return e.Err }

// SigningError means the assertion could not be signed.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string { return "signing assertion: " + e.Err.Error() }
func (e *SigningError) Unwrap() error { return e.Err }

// RemoteAuthError is a non-2xx answer to the token exchange. It is not
// retried: a bad assertion or a revoked installation will not recover.
type RemoteAuthError struct {
	StatusCode int
	Message    string
}

func (e *RemoteAuthError) Error() string {
	return fmt.Sprintf("token exchange rejected: status %d: %s", e.StatusCode, e.Message)
}

// NetworkError is a transport failure where no HTTP response was received.
// It is the only error class the retry decorators act on.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return e.Op + ": network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteOperationError is any other non-2xx response to a branch, content or
// pull request call.
type RemoteOperationError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteOperationError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// IsRecoverable reports whether err is one of the continue-the-flow conditions.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrBranchExists)
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// Failure kinds recorded on failed jobs.
const (
	KindInvalidConfig   = "invalid_config"
	KindKeyMaterial     = "key_material"
	KindSigning         = "signing"
	KindRemoteAuth      = "remote_auth"
	KindNetwork         = "network"
	KindRemoteOperation = "remote_operation"
	KindCancelled       = "cancelled"
	KindInternal        = "internal"
)

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	var (
		keyErr  *KeyMaterialError
		signErr *SigningError
		authErr *RemoteAuthError
		netErr  *NetworkError
		opErr   *RemoteOperationError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrInvalidConfig):
		return KindInvalidConfig
	case errors.As(err, &keyErr):
		return KindKeyMaterial
	case errors.As(err, &signErr):
		return KindSigning
	case errors.As(err, &authErr):
		return KindRemoteAuth
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &opErr):
		return KindRemoteOperation
	default:
		return KindInternal
	}
}
