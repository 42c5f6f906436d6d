package serializer

import (
	"github.com/juju/mgo/v3/bson"
)

// NewBSONSerializer creates a new serializer using BSON
func NewBSONSerializer[T any]() Serializer[T] {
	return bsonSerializer[T]{}
}

// bsonSerializer implements the Serializer interface using BSON.
// BSON only encodes documents at the top level, so every value is wrapped.
type bsonSerializer[T any] struct{}

type bsonEnvelope[T any] struct {
	V T `bson:"v"`
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.Serializer)
// --------------------------------------------------------------------------

func (bsonSerializer[T]) Serialize(value T) ([]byte, error) {
	return bson.Marshal(bsonEnvelope[T]{V: value})
}

func (bsonSerializer[T]) Deserialize(b []byte) (T, error) {
	var env bsonEnvelope[T]
	err := bson.Unmarshal(b, &env)
	return env.V, err
}
