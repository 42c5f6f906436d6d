package parser

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/tidwall/gjson"
)

// JSONParser parses one JSON document per record.
//
// The key is built from DocumentOptions.KeyFields, the value is the whole
// document decoded into V. String and []byte values receive the document text.
type JSONParser[K comparable, V any] struct {
	keyFields    []string
	keySeparator string
	rules        ruleSet
}

// NewJSONParser creates a JSON parser (opts may be nil).
func NewJSONParser[K comparable, V any](opts *DocumentOptions) *JSONParser[K, V] {
	opts = opts.withDefaults()
	return &JSONParser[K, V]{
		keyFields:    opts.KeyFields,
		keySeparator: opts.KeySeparator,
		rules:        compileRules(opts.ChangeTypeRules),
	}
}

func (p *JSONParser[K, V]) Parse(raw []byte) (Record[K, V], error) {
	var rec Record[K, V]
	if !gjson.ValidBytes(raw) {
		return rec, store.NewError(store.CodeParser, "invalid JSON document")
	}

	get := func(path string) (string, bool) {
		if path == "" {
			return "", false
		}
		r := gjson.GetBytes(raw, path)
		if !r.Exists() {
			return "", false
		}
		return formatJSON(r), true
	}

	keyText, err := buildKey(p.keyFields, p.keySeparator, get)
	if err != nil {
		return rec, err
	}
	key, err := ParseValue[K](keyText)
	if err != nil {
		return rec, store.WrapError(store.CodeParser, err, "parse key")
	}

	value, err := decodeDocument[V](raw, json.Unmarshal)
	if err != nil {
		return rec, err
	}

	rec.Type = p.rules.changeType(get)
	rec.Key = key
	rec.Value = value
	return rec, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// buildKey joins the textual form of every key field
func buildKey(fields []string, sep string, get fieldGetter) (string, error) {
	if len(fields) == 0 {
		return "", store.NewError(store.CodeParser, "no key fields configured")
	}
	parts := make([]string, len(fields))
	for i, field := range fields {
		part, ok := get(field)
		if !ok {
			return "", store.Errorf(store.CodeParser, "key field %q not found", field)
		}
		parts[i] = part
	}
	return strings.Join(parts, sep), nil
}

// decodeDocument decodes the whole record into V. Text-like targets get the raw record.
func decodeDocument[V any](raw []byte, unmarshal func([]byte, any) error) (V, error) {
	var value V
	switch p := any(&value).(type) {
	case *string:
		*p = string(raw)
		return value, nil
	case *[]byte:
		*p = append([]byte(nil), raw...)
		return value, nil
	}
	if err := unmarshal(raw, &value); err != nil {
		return value, store.WrapError(store.CodeParser, err, "decode value")
	}
	return value, nil
}

// formatJSON renders a JSON value the way keys and rule values are compared:
// strings without quotes and whole numbers without a fraction.
func formatJSON(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		if i, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return strconv.FormatFloat(r.Num, 'f', -1, 64)
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.Null:
		return "null"
	default:
		return r.Raw
	}
}
