package serializer

import (
	"encoding/json"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer[T any]() Serializer[T] {
	return jsonSerializer[T]{}
}

// jsonSerializer implements the Serializer interface using json encoding
type jsonSerializer[T any] struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.Serializer)
// --------------------------------------------------------------------------

func (jsonSerializer[T]) Serialize(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (jsonSerializer[T]) Deserialize(b []byte) (T, error) {
	var value T
	err := json.Unmarshal(b, &value)
	return value, err
}
