package formbuilder

import (
	"fmt"

	"emperror.dev/errors"
)

const (
	// ErrMissingRequiredAttribute is returned on commit when the label or key is empty.
	ErrMissingRequiredAttribute = errors.Sentinel("field name and key are required")
	// ErrDuplicateKey is returned on commit when another field already uses the key.
	ErrDuplicateKey = errors.Sentinel("duplicate field key")
	// ErrIndexOutOfRange is returned by list and candidate mutations given a bad index.
	ErrIndexOutOfRange = errors.Sentinel("index out of range")
	// ErrEditorClosed is returned when the editor is used without being opened.
	ErrEditorClosed = errors.Sentinel("field editor is not open")
	// ErrUnknownType is returned for a field or rule type outside the supported set.
	ErrUnknownType = errors.Sentinel("unknown field or rule type")
	// ErrInvalidPattern is returned for a pattern rule whose source does not compile.
	ErrInvalidPattern = errors.Sentinel("invalid pattern")
)

// ValidationError carries the failing attribute alongside one of the sentinels above.
type ValidationError struct {
	Kind  error
	Key   string
	Index int
}

func (e *ValidationError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrDuplicateKey):
		return fmt.Sprintf("%s: %q", e.Kind, e.Key)
	case errors.Is(e.Kind, ErrIndexOutOfRange):
		return fmt.Sprintf("%s: %d", e.Kind, e.Index)
	case errors.Is(e.Kind, ErrUnknownType), errors.Is(e.Kind, ErrInvalidPattern):
		return fmt.Sprintf("%s: %q", e.Kind, e.Key)
	default:
		return e.Kind.Error()
	}
}

func (e *ValidationError) Unwrap() error { return e.Kind }

func duplicateKey(key string) error {
	return errors.WithStack(&ValidationError{Kind: ErrDuplicateKey, Key: key})
}

func outOfRange(i int) error {
	return errors.WithStack(&ValidationError{Kind: ErrIndexOutOfRange, Index: i})
}

// IsValidation reports whether err belongs to the recoverable validation family.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrMissingRequiredAttribute)
}
