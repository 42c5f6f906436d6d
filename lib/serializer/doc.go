// Package serializer turns values into bytes and back for backends that store
// data outside the process, such as the Redis store.
//
// The package focuses on:
//   - One generic interface (Serializer[T]) with exactly two methods
//   - Several interchangeable formats with different size and speed tradeoffs
//
// Key Components:
//
//   - Serializer[T]: Core interface that all implementations satisfy.
//
//   - jsonSerializer: encoding/json. Human readable, works for any JSON-compatible type.
//
//   - gobSerializer: encoding/gob. Go-native, larger payloads for small values.
//
//   - msgpackSerializer: MessagePack through hashicorp/go-msgpack. Compact and fast.
//
//   - bsonSerializer: BSON through juju/mgo. Non-document values are wrapped in a
//     single field document {"v": value}.
//
//   - protoSerializer: Protocol Buffers for proto.Message types.
//
//   - rawSerializer: pass-through for string and []byte, the compact default for keys.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s, err := serializer.New[User]("msgpack")
//	data, err := s.Serialize(user)
//	user, err = s.Deserialize(data)
package serializer
