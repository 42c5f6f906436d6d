package serializer

import (
	"reflect"
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type user struct {
	Name  string   `json:"name" bson:"name"`
	Age   int      `json:"age" bson:"age"`
	Tags  []string `json:"tags" bson:"tags"`
	Admin bool     `json:"admin" bson:"admin"`
}

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() Serializer[user]{
	"JSON":    NewJSONSerializer[user],
	"GOB":     NewGOBSerializer[user],
	"MsgPack": NewMsgPackSerializer[user],
	"BSON":    NewBSONSerializer[user],
}

// testValues creates a set of values with different fields filled
func testValues() []user {
	return []user{
		{},
		{Name: "Alice"},
		{Name: "Bob", Age: 42, Tags: []string{"a", "b"}, Admin: true},
		{Name: "ünïcødé 🔑", Age: -1, Tags: []string{""}},
	}
}

// TestSerializerRoundTrip tests that values can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := factory()

			for i, value := range testValues() {
				data, err := s.Serialize(value)
				if err != nil {
					t.Errorf("Failed to serialize value %d: %v", i, err)
					continue
				}

				result, err := s.Deserialize(data)
				if err != nil {
					t.Errorf("Failed to deserialize value %d: %v", i, err)
					continue
				}

				// nil and empty slices are not distinguished by every format
				if len(value.Tags) == 0 && len(result.Tags) == 0 {
					result.Tags = value.Tags
				}
				if !reflect.DeepEqual(value, result) {
					t.Errorf("Value %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v", i, value, result)
				}
			}
		})
	}
}

// TestScalarValues checks that formats without top-level scalars still handle them
func TestScalarValues(t *testing.T) {
	for _, name := range []string{"json", "gob", "msgpack", "bson", "raw"} {
		t.Run(name, func(t *testing.T) {
			s, err := New[string](name)
			if err != nil {
				t.Fatalf("New(%s) failed: %v", name, err)
			}
			data, err := s.Serialize("Alice")
			if err != nil {
				t.Fatalf("Serialize failed: %v", err)
			}
			value, err := s.Deserialize(data)
			if err != nil || value != "Alice" {
				t.Errorf("Expected Alice, got %q (%v)", value, err)
			}
		})
	}
}

func TestRawSerializer(t *testing.T) {
	s, err := New[[]byte]("raw")
	if err != nil {
		t.Fatalf("New(raw) failed: %v", err)
	}
	data, _ := s.Serialize([]byte{0, 1, 2})
	if !reflect.DeepEqual(data, []byte{0, 1, 2}) {
		t.Errorf("Expected bytes to pass through, got %v", data)
	}

	if _, err := New[int]("raw"); err == nil {
		t.Errorf("Expected raw serializer to reject int")
	}
}

func TestUnknownSerializer(t *testing.T) {
	if _, err := New[string]("yaml"); err == nil {
		t.Errorf("Expected error for unknown serializer")
	}
}

func TestProtoSerializer(t *testing.T) {
	s := NewProtoSerializer(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })

	data, err := s.Serialize(wrapperspb.String("Alice"))
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	value, err := s.Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if value.GetValue() != "Alice" {
		t.Errorf("Expected Alice, got %q", value.GetValue())
	}

	if _, err := s.Deserialize([]byte{0xff, 0xff}); err == nil {
		t.Errorf("Expected error for garbage input")
	}
}

func BenchmarkSerializers(b *testing.B) {
	value := user{Name: "Bob", Age: 42, Tags: []string{"a", "b", "c"}, Admin: true}
	for name, factory := range testSerializers {
		s := factory()
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				data, _ := s.Serialize(value)
				_, _ = s.Deserialize(data)
			}
		})
	}
}
