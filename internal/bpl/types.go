package bpl

import (
	"strconv"
	"strings"
)

// Type represents a semantic type of the intermediate language.
type Type interface {
	isType()
	String() string
}

// BasicKind enumerates the built-in scalar types.
type BasicKind int

const (
	_ BasicKind = iota
	KindBool
	KindInt
)

// BasicType is one of the built-in scalar types (bool, int).
type BasicType struct {
	Kind BasicKind
}

func (BasicType) isType() {}
func (t BasicType) String() string {
	switch t.Kind {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	default:
		return "?"
	}
}

// BvType is a fixed-width bitvector type, written bvN.
type BvType struct {
	Width int
}

func (BvType) isType() {}
func (t BvType) String() string {
	return "bv" + strconv.Itoa(t.Width)
}

// MapType is a map (array) type [K1, K2, ...]V.
type MapType struct {
	Keys  []Type
	Value Type
}

func (MapType) isType() {}
func (t MapType) String() string {
	keys := make([]string, len(t.Keys))
	for i, k := range t.Keys {
		keys[i] = k.String()
	}
	return "[" + strings.Join(keys, ", ") + "]" + t.Value.String()
}

// NamedType refers to a user type declared with `type Name;`.
type NamedType struct {
	Name string
}

func (NamedType) isType() {}
func (t NamedType) String() string {
	return t.Name
}

var (
	Bool Type = BasicType{Kind: KindBool}
	Int  Type = BasicType{Kind: KindInt}
)

// Bv returns the bitvector type of the given width.
func Bv(width int) Type {
	return BvType{Width: width}
}

// TypeEqual reports whether two types are structurally equal.
// A nil type never equals anything, including another nil.
func TypeEqual(a, b Type) bool {
	if a == nil || b == nil {
		return false
	}
	switch x := a.(type) {
	case BasicType:
		y, ok := b.(BasicType)
		return ok && x.Kind == y.Kind
	case BvType:
		y, ok := b.(BvType)
		return ok && x.Width == y.Width
	case NamedType:
		y, ok := b.(NamedType)
		return ok && x.Name == y.Name
	case MapType:
		y, ok := b.(MapType)
		if !ok || len(x.Keys) != len(y.Keys) {
			return false
		}
		for i := range x.Keys {
			if !TypeEqual(x.Keys[i], y.Keys[i]) {
				return false
			}
		}
		return TypeEqual(x.Value, y.Value)
	default:
		return false
	}
}
