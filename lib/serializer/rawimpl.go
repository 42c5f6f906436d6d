package serializer

import (
	"fmt"
)

// NewRawSerializer creates a pass-through serializer for string-like and
// byte-slice-like types.
func NewRawSerializer[T ~string | ~[]byte]() Serializer[T] {
	return rawSerializer[T]{}
}

// rawSerializer copies the bytes of the value as they are
type rawSerializer[T ~string | ~[]byte] struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.Serializer)
// --------------------------------------------------------------------------

func (rawSerializer[T]) Serialize(value T) ([]byte, error) {
	return []byte(value), nil
}

func (rawSerializer[T]) Deserialize(b []byte) (T, error) {
	return T(b), nil
}

// newRawFor resolves the raw serializer for an unconstrained T at runtime
func newRawFor[T any]() (Serializer[T], error) {
	var zero T
	switch any(zero).(type) {
	case string:
		return any(NewRawSerializer[string]()).(Serializer[T]), nil
	case []byte:
		return any(NewRawSerializer[[]byte]()).(Serializer[T]), nil
	default:
		return nil, fmt.Errorf("raw serializer does not support %T", zero)
	}
}
