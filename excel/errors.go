package excel

import (
	"errors"
	"fmt"
)

// ErrFormatNotUnderstood is the fatal error kind for a whole parse: the
// container signature was not recognized, the container could not be read or
// decrypted, or the underlying resource could not be closed. Use errors.Is to
// test for it; the concrete cause is available via errors.Unwrap.
var ErrFormatNotUnderstood = errors.New("excel: format not understood")

// FormatNotUnderstoodError wraps the cause of a failed parse.
type FormatNotUnderstoodError struct {
	Msg string
	Err error
}

func (e *FormatNotUnderstoodError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("excel: %s: %v", e.Msg, e.Err)
	}
	return "excel: " + e.Msg
}

func (e *FormatNotUnderstoodError) Unwrap() error {
	return e.Err
}

// Is reports true for ErrFormatNotUnderstood so callers can classify the
// failure without depending on the concrete type.
func (e *FormatNotUnderstoodError) Is(target error) bool {
	return target == ErrFormatNotUnderstood
}

func notUnderstood(msg string, err error) *FormatNotUnderstoodError {
	return &FormatNotUnderstoodError{Msg: msg, Err: err}
}

func notUnderstoodf(format string, args ...interface{}) *FormatNotUnderstoodError {
	return &FormatNotUnderstoodError{Msg: fmt.Sprintf(format, args...)}
}
