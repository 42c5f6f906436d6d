package serializer

import (
	"fmt"
)

// Serializer converts values of type T to bytes and back.
type Serializer[T any] interface {
	// Serialize encodes a value.
	Serialize(value T) ([]byte, error)
	// Deserialize decodes a value previously produced by Serialize.
	Deserialize(b []byte) (T, error)
}

// Names lists the formats New understands.
var Names = []string{"json", "gob", "msgpack", "bson", "raw"}

// New returns the serializer registered under name.
// "raw" is only valid for string and []byte.
func New[T any](name string) (Serializer[T], error) {
	switch name {
	case "", "json":
		return NewJSONSerializer[T](), nil
	case "gob":
		return NewGOBSerializer[T](), nil
	case "msgpack":
		return NewMsgPackSerializer[T](), nil
	case "bson":
		return NewBSONSerializer[T](), nil
	case "raw":
		return newRawFor[T]()
	default:
		return nil, fmt.Errorf("invalid serializer %s", name)
	}
}
