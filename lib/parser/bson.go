package parser

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/juju/mgo/v3/bson"
	"github.com/spf13/cast"
)

// BSONParser parses one BSON document per record.
//
// Keys and change types follow the same DocumentOptions as the JSON parser. The
// value is the document decoded into V; string and []byte values receive the
// document rendered as JSON.
type BSONParser[K comparable, V any] struct {
	keyFields    []string
	keySeparator string
	rules        ruleSet
}

// NewBSONParser creates a BSON parser (opts may be nil).
func NewBSONParser[K comparable, V any](opts *DocumentOptions) *BSONParser[K, V] {
	opts = opts.withDefaults()
	return &BSONParser[K, V]{
		keyFields:    opts.KeyFields,
		keySeparator: opts.KeySeparator,
		rules:        compileRules(opts.ChangeTypeRules),
	}
}

func (p *BSONParser[K, V]) Parse(raw []byte) (Record[K, V], error) {
	var rec Record[K, V]

	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return rec, store.WrapError(store.CodeParser, err, "invalid BSON document")
	}

	get := func(path string) (string, bool) {
		v, ok := lookupBSON(doc, path)
		if !ok {
			return "", false
		}
		return formatBSON(v), true
	}

	keyText, err := buildKey(p.keyFields, p.keySeparator, get)
	if err != nil {
		return rec, err
	}
	key, err := ParseValue[K](keyText)
	if err != nil {
		return rec, store.WrapError(store.CodeParser, err, "parse key")
	}

	var value V
	switch any(value).(type) {
	case string, []byte:
		text, err := json.Marshal(doc)
		if err != nil {
			return rec, store.WrapError(store.CodeParser, err, "render document")
		}
		value, err = decodeDocument[V](text, json.Unmarshal)
		if err != nil {
			return rec, err
		}
	default:
		value, err = decodeDocument[V](raw, bson.Unmarshal)
		if err != nil {
			return rec, err
		}
	}

	rec.Type = p.rules.changeType(get)
	rec.Key = key
	rec.Value = value
	return rec, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// lookupBSON walks a dotted path through nested documents
func lookupBSON(doc bson.M, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case bson.M:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case bson.D:
			found := false
			for _, elem := range m {
				if elem.Name == part {
					cur, found = elem.Value, true
					break
				}
			}
			if !found {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return cur, true
}

// formatBSON renders a BSON value for keys and rule comparison
func formatBSON(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bson.ObjectId:
		return t.Hex()
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
