// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Settings validation errors.
var (
	// ErrInvalidResolution indicates a resolution outside (0, 100].
	ErrInvalidResolution = errors.New("invalid resolution")

	// ErrInvalidPixelCount indicates a similar-pixel count that is not a non-negative integer.
	ErrInvalidPixelCount = errors.New("invalid similar pixel count")

	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")
)

// Upstream fetch errors.
var (
	// ErrHTTPStatusNotOK indicates an HTTP response with a non-200 status code.
	ErrHTTPStatusNotOK = errors.New("HTTP status not OK")

	// ErrBodyTooLarge indicates a response body exceeded the configured limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTooManyRedirects indicates too many HTTP redirects.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")
)

// Media errors.
var (
	// ErrUnsupportedImage indicates the image bytes could not be decoded.
	ErrUnsupportedImage = errors.New("unsupported image")

	// ErrImageTooLarge indicates the declared canvas exceeds the decode limit.
	ErrImageTooLarge = errors.New("image too large")

	// ErrShapeMismatch indicates two reduced images cannot be compared.
	ErrShapeMismatch = errors.New("reduced image shape mismatch")

	// ErrTranscodeFailed indicates the external encoder exited unsuccessfully.
	ErrTranscodeFailed = errors.New("transcode failed")
)

// Client errors.
var (
	// ErrClientDisabled indicates a client or feature is disabled.
	ErrClientDisabled = errors.New("client disabled")

	// ErrNoResults indicates no results were found.
	ErrNoResults = errors.New("no results")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
