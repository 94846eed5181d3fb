package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared by every module. Wrap them with fmt.Errorf("...: %w", ...)
// and match with errors.Is so handlers and workers never string-compare.
var (
	// ErrValidation - a required field is empty or malformed at a creation boundary.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateName - a preset name is already taken.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrNotFound - unknown preset, job or batch id.
	ErrNotFound = errors.New("not found")

	// ErrConflict - a state transition lost the race (job already leased or terminal).
	ErrConflict = errors.New("conflict")

	// ErrUpstreamBlocked - the transform service stopped for a policy/safety reason.
	ErrUpstreamBlocked = errors.New("upstream blocked")

	// ErrUpstreamEmpty - the transform response carried no usable candidate content.
	ErrUpstreamEmpty = errors.New("upstream empty response")

	// ErrUpstreamNoImage - the candidate had parts but none with inline image data.
	ErrUpstreamNoImage = errors.New("upstream returned no image")

	// ErrStorage - artifact persistence failed.
	ErrStorage = errors.New("storage failure")

	// ErrPattern - a filename rewrite pattern did not compile. Recovered locally,
	// never recorded on a job and never sent to a caller.
	ErrPattern = errors.New("invalid filename pattern")
)

// Validationf wraps ErrValidation with a formatted detail message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// HTTPStatus - map a domain error to the status code the facade responds with.
// Upstream and storage failures never travel through here on the job path (the
// orchestrator absorbs them into the job record); the 502/500 arms cover direct
// transform endpoints and unexpected store failures.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstreamBlocked), errors.Is(err, ErrUpstreamEmpty), errors.Is(err, ErrUpstreamNoImage):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
