package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // key not found, write rejected
	ExitCommandError = 2 // bad flags, configuration or backend errors
)

// ExitError is an error carrying a process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err, defaulting to ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// output writes command results as text or as one JSON document per line.
type output struct {
	format string
	w      io.Writer
}

func newOutput(opts *RootOptions, w io.Writer) *output {
	return &output{format: opts.Format, w: w}
}

// emit writes data as JSON in json mode, or text in text mode.
func (o *output) emit(data any, text string) error {
	if o.format == "json" {
		enc := json.NewEncoder(o.w)
		return enc.Encode(data)
	}
	_, err := fmt.Fprintln(o.w, text)
	return err
}
