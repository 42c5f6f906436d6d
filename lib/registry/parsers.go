package registry

import (
	"context"

	"github.com/ValentinKolb/kvkit/lib/parser"
)

// Parser type names
const (
	LineParser = "LineParser"
	JSONParser = "JSONParser"
	BSONParser = "BSONParser"
)

// NewParsers returns a registry holding every built-in parser.
func NewParsers[K comparable, V any]() *Registry[parser.Parser[K, V]] {
	r := New[parser.Parser[K, V]]("parser")
	RegisterParsers(r)
	return r
}

// RegisterParsers adds the built-in parsers to r.
func RegisterParsers[K comparable, V any](r *Registry[parser.Parser[K, V]]) {
	r.Register(LineParser, func(_ context.Context, options map[string]any) (parser.Parser[K, V], error) {
		opts, err := decodeInto(options, parser.DefaultLineOptions())
		if err != nil {
			return nil, err
		}
		return parser.NewLineParser[K, V](opts), nil
	})

	r.Register(JSONParser, func(_ context.Context, options map[string]any) (parser.Parser[K, V], error) {
		opts, err := decodeInto(options, parser.DefaultDocumentOptions())
		if err != nil {
			return nil, err
		}
		return parser.NewJSONParser[K, V](opts), nil
	})

	r.Register(BSONParser, func(_ context.Context, options map[string]any) (parser.Parser[K, V], error) {
		opts, err := decodeInto(options, parser.DefaultDocumentOptions())
		if err != nil {
			return nil, err
		}
		return parser.NewBSONParser[K, V](opts), nil
	})
}
