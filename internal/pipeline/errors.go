package pipeline

import "errors"

// FatalError wraps an error to mark it as unrecoverable. A fatal error
// aborts the run even where the surrounding step would otherwise downgrade
// the failure to an advisory.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks an error as unrecoverable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal checks if an error is marked unrecoverable.
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
