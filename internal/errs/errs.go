package errs

import "errors"

// Error kinds surfaced by the order and ledger services. Specific domain
// errors wrap exactly one kind so callers can branch with errors.Is.
var (
	ErrValidation           = errors.New("validation_error")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidState         = errors.New("invalid_state")
	ErrInsufficientResource = errors.New("insufficient_resource")
	ErrConflict             = errors.New("conflict")
	ErrNotFound             = errors.New("not_found")
)

var kinds = []error{
	ErrValidation,
	ErrForbidden,
	ErrInvalidState,
	ErrInsufficientResource,
	ErrConflict,
	ErrNotFound,
}

type kindError struct {
	kind   error
	reason string
}

func (e *kindError) Error() string { return e.reason }

func (e *kindError) Unwrap() error { return e.kind }

// New returns a sentinel error with the given reason that matches kind under errors.Is.
func New(kind error, reason string) error {
	return &kindError{kind: kind, reason: reason}
}

// KindOf returns the name of the kind err belongs to, or "internal".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal"
}

// Reason returns the most specific reason for a kinded error.
func Reason(err error) string {
	var kErr *kindError
	if errors.As(err, &kErr) {
		return kErr.reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
