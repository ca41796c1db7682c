// Package value defines the runtime value model of the Econ language: a
// small sum of nil, number, boolean, string, ordered array, and
// insertion-ordered object, together with conversions to and from host Go
// types.
package value

import (
	"fmt"
	"sort"
)

// Kind identifies a Value variant. Kind names double as the type tags used
// by constraint declarations ("string", "bool", "number", "nil").
type Kind int

const (
	KindNil Kind = iota
	KindNum
	KindBool
	KindStr
	KindArr
	KindObj
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindNum:
		return "number"
	case KindBool:
		return "bool"
	case KindStr:
		return "string"
	case KindArr:
		return "array"
	case KindObj:
		return "object"
	}
	return "unknown"
}

// Value is the runtime value sum. All numbers are double-precision; arrays
// and objects own their elements and are never aliased by the language.
type Value interface {
	Kind() Kind
}

// Nil is the absent value.
type Nil struct{}

// Num is a double-precision number.
type Num float64

// Bool is a boolean.
type Bool bool

// Str is a UTF-8 string.
type Str string

// Arr is an ordered sequence.
type Arr []Value

func (Nil) Kind() Kind  { return KindNil }
func (Num) Kind() Kind  { return KindNum }
func (Bool) Kind() Kind { return KindBool }
func (Str) Kind() Kind  { return KindStr }
func (Arr) Kind() Kind  { return KindArr }

// AsNum reports v as a float64 when it is a number.
func AsNum(v Value) (float64, bool) {
	n, ok := v.(Num)
	return float64(n), ok
}

// AsBool reports v as a bool when it is a boolean.
func AsBool(v Value) (bool, bool) {
	b, ok := v.(Bool)
	return bool(b), ok
}

// AsStr reports v as a string when it is a string.
func AsStr(v Value) (string, bool) {
	s, ok := v.(Str)
	return string(s), ok
}

// AsArr reports v as a slice when it is an array.
func AsArr(v Value) (Arr, bool) {
	a, ok := v.(Arr)
	return a, ok
}

// AsObj reports v as an ordered object.
func AsObj(v Value) (*Object, bool) {
	o, ok := v.(*Object)
	return o, ok
}

// FromGo converts a host Go value into a Value. It accepts nil, bool,
// string, every signed and unsigned integer width, float32/64, []any,
// map[string]any, and Value itself.
func FromGo(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Nil{}, nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case string:
		return Str(v), nil
	case int:
		return Num(v), nil
	case int8:
		return Num(v), nil
	case int16:
		return Num(v), nil
	case int32:
		return Num(v), nil
	case int64:
		return Num(v), nil
	case uint:
		return Num(v), nil
	case uint8:
		return Num(v), nil
	case uint16:
		return Num(v), nil
	case uint32:
		return Num(v), nil
	case uint64:
		return Num(v), nil
	case float32:
		return Num(v), nil
	case float64:
		return Num(v), nil
	case []any:
		arr := make(Arr, 0, len(v))
		for _, e := range v {
			ev, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			arr = append(arr, ev)
		}
		return arr, nil
	case map[string]any:
		obj := NewObject()
		for _, k := range sortedKeys(v) {
			ev, err := FromGo(v[k])
			if err != nil {
				return nil, err
			}
			obj.Set(k, ev)
		}
		return obj, nil
	}
	return nil, fmt.Errorf("value: cannot convert %T", x)
}

// ToGo converts a Value into plain Go data: nil, float64, bool, string,
// []any, or map[string]any. Object key order is not representable in a Go
// map; use the printer when order matters.
func ToGo(v Value) any {
	switch t := v.(type) {
	case Nil, nil:
		return nil
	case Num:
		return float64(t)
	case Bool:
		return bool(t)
	case Str:
		return string(t)
	case Arr:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ToGo(e)
		}
		return out
	case *Object:
		out := make(map[string]any, t.Len())
		t.Range(func(k string, e Value) bool {
			out[k] = ToGo(e)
			return true
		})
		return out
	}
	return nil
}

// Equal reports deep equality, including object key order.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Num:
		bv, ok := b.(Num)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case Arr:
		bv, ok := b.(Arr)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Object:
		bv, ok := b.(*Object)
		return ok && av.Equal(bv)
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
