package parser

import (
	"encoding/json"
	"time"

	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/spf13/cast"
)

// ParseValue converts the textual form of a key or value into T.
//
// Strings and byte slices are taken as they are, numbers, booleans and durations
// are converted with spf13/cast, everything else is decoded as JSON.
func ParseValue[T any](s string) (T, error) {
	var v T
	var err error

	switch p := any(&v).(type) {
	case *string:
		*p = s
	case *[]byte:
		*p = []byte(s)
	case *int:
		*p, err = cast.ToIntE(s)
	case *int8:
		*p, err = cast.ToInt8E(s)
	case *int16:
		*p, err = cast.ToInt16E(s)
	case *int32:
		*p, err = cast.ToInt32E(s)
	case *int64:
		*p, err = cast.ToInt64E(s)
	case *uint:
		*p, err = cast.ToUintE(s)
	case *uint8:
		*p, err = cast.ToUint8E(s)
	case *uint16:
		*p, err = cast.ToUint16E(s)
	case *uint32:
		*p, err = cast.ToUint32E(s)
	case *uint64:
		*p, err = cast.ToUint64E(s)
	case *float32:
		*p, err = cast.ToFloat32E(s)
	case *float64:
		*p, err = cast.ToFloat64E(s)
	case *bool:
		*p, err = cast.ToBoolE(s)
	case *time.Duration:
		*p, err = cast.ToDurationE(s)
	default:
		err = json.Unmarshal([]byte(s), &v)
	}

	if err != nil {
		return v, store.WrapError(store.CodeParser, err, "parse value "+quote(s))
	}
	return v, nil
}

// quote shortens long inputs for error messages
func quote(s string) string {
	const max = 64
	if len(s) > max {
		s = s[:max] + "..."
	}
	return `"` + s + `"`
}
