package serializer

import (
	"bytes"
	"encoding/gob"
)

// NewGOBSerializer creates a new serializer using Go's binary gob format
func NewGOBSerializer[T any]() Serializer[T] {
	return gobSerializer[T]{}
}

// gobSerializer implements the Serializer interface using gob encoding
type gobSerializer[T any] struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.Serializer)
// --------------------------------------------------------------------------

func (gobSerializer[T]) Serialize(value T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobSerializer[T]) Deserialize(b []byte) (T, error) {
	var value T
	err := gob.NewDecoder(bytes.NewReader(b)).Decode(&value)
	return value, err
}
