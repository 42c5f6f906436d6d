package serializer

import (
	"reflect"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

// NewMsgPackSerializer creates a new serializer using MessagePack
func NewMsgPackSerializer[T any]() Serializer[T] {
	h := &codec.MsgpackHandle{}
	// decode nested maps with string keys so values look the same as after json
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return msgpackSerializer[T]{handle: h}
}

// msgpackSerializer implements the Serializer interface using MessagePack
type msgpackSerializer[T any] struct {
	handle *codec.MsgpackHandle
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.Serializer)
// --------------------------------------------------------------------------

func (m msgpackSerializer[T]) Serialize(value T) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, m.handle).Encode(value); err != nil {
		return nil, err
	}
	return out, nil
}

func (m msgpackSerializer[T]) Deserialize(b []byte) (T, error) {
	var value T
	err := codec.NewDecoderBytes(b, m.handle).Decode(&value)
	return value, err
}
