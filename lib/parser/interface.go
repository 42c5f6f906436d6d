package parser

import (
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Change Types
// --------------------------------------------------------------------------

// ChangeType describes how a parsed record mutates the target store.
type ChangeType uint8

const (
	ChangeUnknown ChangeType = iota // 0: malformed or ambiguous record, applied as no-op
	ChangeAdd                       // 1: insert
	ChangeUpdate                    // 2: overwrite
	ChangeDelete                    // 3: remove
)

func (c ChangeType) String() string {
	switch c {
	case ChangeAdd:
		return "Add"
	case ChangeUpdate:
		return "Update"
	case ChangeDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// ParseChangeType infers a change type from its textual or numeric encoding.
// An empty string means Add.
func ParseChangeType(s string) ChangeType {
	if s == "" {
		return ChangeAdd
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		switch n {
		case 1:
			return ChangeAdd
		case 2:
			return ChangeUpdate
		case 3:
			return ChangeDelete
		default:
			return ChangeUnknown
		}
	}
	switch strings.ToLower(s) {
	case "add":
		return ChangeAdd
	case "update":
		return ChangeUpdate
	case "delete":
		return ChangeDelete
	default:
		return ChangeUnknown
	}
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Record is one parsed change.
type Record[K comparable, V any] struct {
	Type  ChangeType
	Key   K
	Value V
}

// Parser decodes one raw record.
type Parser[K comparable, V any] interface {
	Parse(raw []byte) (Record[K, V], error)
}

// Func adapts a plain function to the Parser interface.
type Func[K comparable, V any] func(raw []byte) (Record[K, V], error)

func (f Func[K, V]) Parse(raw []byte) (Record[K, V], error) {
	return f(raw)
}
