package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
)

// classifyError maps a go-github error onto the domain error taxonomy.
// Context errors pass through unchanged so callers can tell cancellation apart.
func classifyError(op string, resp *gh.Response, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return &model.RemoteOperationError{
			Op:         op,
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
		}
	}

	// Rate limit errors and undecodable bodies still carry a response.
	if resp != nil && resp.Response != nil {
		return &model.RemoteOperationError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    err.Error(),
		}
	}

	return &model.NetworkError{Op: op, Err: err}
}

// isNotFound reports whether the call failed with a 404.
func isNotFound(resp *gh.Response, err error) bool {
	if err == nil {
		return false
	}
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode == http.StatusNotFound
	}
	return resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotFound
}

// isRefExists reports whether a ref creation failed because the ref exists.
// GitHub answers 422 "Reference already exists".
func isRefExists(err error) bool {
	var ghErr *gh.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return false
	}
	return ghErr.Response.StatusCode == http.StatusUnprocessableEntity &&
		strings.Contains(strings.ToLower(ghErr.Message), "already exists")
}

// notFound wraps model.ErrNotFound with the path that was missing.
func notFound(op, path string) error {
	return fmt.Errorf("%s %s: %w", op, path, model.ErrNotFound)
}
