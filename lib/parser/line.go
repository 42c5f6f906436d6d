package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/ValentinKolb/kvkit/lib/store"
)

// LineOptions configures a LineParser
type LineOptions struct {
	Separator string `mapstructure:"separator"` // field separator (default "\t")
}

// DefaultLineOptions returns the default options
func DefaultLineOptions() *LineOptions {
	return &LineOptions{Separator: "\t"}
}

// LineParser parses key<sep>value<sep>changeType? records.
type LineParser[K comparable, V any] struct {
	separator string
}

// NewLineParser creates a line parser (opts may be nil).
func NewLineParser[K comparable, V any](opts *LineOptions) *LineParser[K, V] {
	if opts == nil || opts.Separator == "" {
		opts = DefaultLineOptions()
	}
	return &LineParser[K, V]{separator: opts.Separator}
}

// Parse splits the record into at most three fields. The third field, if
// present and not empty, carries the change type.
func (p *LineParser[K, V]) Parse(raw []byte) (Record[K, V], error) {
	var rec Record[K, V]
	if !utf8.Valid(raw) {
		return rec, store.NewError(store.CodeParser, "invalid UTF-8 in line")
	}

	parts := strings.SplitN(string(raw), p.separator, 3)
	if len(parts) < 2 {
		rec.Type = ChangeUnknown
		return rec, nil
	}

	key, err := ParseValue[K](parts[0])
	if err != nil {
		return rec, store.WrapError(store.CodeParser, err, "parse key")
	}
	value, err := ParseValue[V](parts[1])
	if err != nil {
		return rec, store.WrapError(store.CodeParser, err, "parse value")
	}

	rec.Type = ChangeAdd
	if len(parts) == 3 {
		rec.Type = ParseChangeType(parts[2])
	}
	rec.Key = key
	rec.Value = value
	return rec, nil
}
