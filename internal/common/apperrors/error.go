// Package apperrors provides the error bases used across the MAAS client.
// It implements the standard error interface while adding support for
// error chaining, template-style derivation of more specific errors, and
// HTTP status codes that the CLI layer can map to exit behavior.
package apperrors

// Error defines the interface for application errors. It extends the
// standard error interface with methods for error wrapping and status code
// management. All methods return Error to support method chaining.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // creates a new error using current as template
	Msg(msg string) Error                  // creates a new error with message and wraps original
	MsgErr(msg string, err ...error) Error // creates error with message and wraps extra errors
	Err(err ...error) Error                // attaches additional errors to current error
	SetStatusCode(int) Error               // sets HTTP status code for the error
	StatusCode() int                       // returns the current status code
	UnwrapAll() []error                    // returns all wrapped errors
}
