package record

import "fmt"

// KeyKind tags the variant held by a Key.
type KeyKind uint8

const (
	KeyInt KeyKind = iota
	KeyFloat
	KeyBool
	KeyString
)

func (k KeyKind) String() string {
	switch k {
	case KeyInt:
		return "int"
	case KeyFloat:
		return "float"
	case KeyBool:
		return "bool"
	case KeyString:
		return "string"
	default:
		return "unknown"
	}
}

// Key is a tagged index key value: exactly one of the typed fields is
// meaningful, selected by Kind. This replaces the original implementation's
// habit of comparing only the integer payload regardless of declared key
// type (SPEC_FULL.md §9, open question 1).
type Key struct {
	Kind   KeyKind
	Int    int64
	Float  float64
	Bool   bool
	String string
}

func NewIntKey(v int64) Key      { return Key{Kind: KeyInt, Int: v} }
func NewFloatKey(v float64) Key  { return Key{Kind: KeyFloat, Float: v} }
func NewBoolKey(v bool) Key      { return Key{Kind: KeyBool, Bool: v} }
func NewStringKey(v string) Key  { return Key{Kind: KeyString, String: v} }

// Compare returns -1, 0, or 1 as k is less than, equal to, or greater than
// other. Both keys must share a Kind; comparing across kinds is a caller
// error since a tree only ever holds one key kind (set at creation).
func (k Key) Compare(other Key) (int, error) {
	if k.Kind != other.Kind {
		return 0, fmt.Errorf("%w: %s vs %s", ErrKeyKindMismatch, k.Kind, other.Kind)
	}
	switch k.Kind {
	case KeyInt:
		return cmpInt64(k.Int, other.Int), nil
	case KeyFloat:
		return cmpFloat64(k.Float, other.Float), nil
	case KeyBool:
		return cmpBool(k.Bool, other.Bool), nil
	case KeyString:
		return cmpString(k.String, other.String), nil
	default:
		return 0, fmt.Errorf("%w: unknown key kind", ErrKeyKindMismatch)
	}
}

// Less reports whether k sorts before other, panicking on a kind mismatch.
// Intended for contexts (sort, tree descent) that have already validated
// both keys share the tree's configured kind.
func (k Key) Less(other Key) bool {
	c, err := k.Compare(other)
	if err != nil {
		panic(err)
	}
	return c < 0
}

// Equal reports whether k and other compare equal, panicking on a kind
// mismatch.
func (k Key) Equal(other Key) bool {
	c, err := k.Compare(other)
	if err != nil {
		panic(err)
	}
	return c == 0
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
