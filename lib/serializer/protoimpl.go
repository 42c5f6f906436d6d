package serializer

import (
	"google.golang.org/protobuf/proto"
)

// NewProtoSerializer creates a new serializer using Protocol Buffers.
// newMsg must return a fresh, empty message to decode into.
func NewProtoSerializer[T proto.Message](newMsg func() T) Serializer[T] {
	return protoSerializer[T]{newMsg: newMsg}
}

// protoSerializer implements the Serializer interface using Protocol Buffers
type protoSerializer[T proto.Message] struct {
	newMsg func() T
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.Serializer)
// --------------------------------------------------------------------------

func (p protoSerializer[T]) Serialize(value T) ([]byte, error) {
	return proto.Marshal(value)
}

func (p protoSerializer[T]) Deserialize(b []byte) (T, error) {
	msg := p.newMsg()
	err := proto.Unmarshal(b, msg)
	return msg, err
}
