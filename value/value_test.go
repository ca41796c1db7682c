package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromGo(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Nil{}},
		{"bool", true, Bool(true)},
		{"string", "hi", Str("hi")},
		{"int", 42, Num(42)},
		{"int8", int8(-3), Num(-3)},
		{"int16", int16(300), Num(300)},
		{"int32", int32(7), Num(7)},
		{"int64", int64(9), Num(9)},
		{"uint", uint(5), Num(5)},
		{"uint8", uint8(255), Num(255)},
		{"uint16", uint16(65535), Num(65535)},
		{"uint32", uint32(11), Num(11)},
		{"uint64", uint64(13), Num(13)},
		{"float32", float32(1.5), Num(1.5)},
		{"float64", 2.5, Num(2.5)},
		{"slice", []any{1, "a"}, Arr{Num(1), Str("a")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.in)
			if err != nil {
				t.Fatalf("FromGo(%v): %v", tt.in, err)
			}
			if !Equal(got, tt.want) {
				t.Errorf("FromGo(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromGoMapSortsKeys(t *testing.T) {
	got, err := FromGo(map[string]any{"b": 1, "a": 2})
	if err != nil {
		t.Fatal(err)
	}
	obj, ok := got.(*Object)
	if !ok {
		t.Fatalf("got %T, want *Object", got)
	}
	if diff := cmp.Diff([]string{"a", "b"}, obj.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestFromGoUnsupported(t *testing.T) {
	if _, err := FromGo(make(chan int)); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestToGoRoundTrip(t *testing.T) {
	obj := NewObject()
	obj.Set("n", Num(1))
	obj.Set("s", Str("x"))
	obj.Set("b", Bool(false))
	obj.Set("z", Nil{})
	v := Arr{obj, Num(2)}

	got := ToGo(v)
	want := []any{
		map[string]any{"n": float64(1), "s": "x", "b": false, "z": nil},
		float64(2),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ToGo mismatch (-want +got):\n%s", diff)
	}
}

func TestAsAccessors(t *testing.T) {
	if n, ok := AsNum(Num(3)); !ok || n != 3 {
		t.Errorf("AsNum = %v, %v", n, ok)
	}
	if _, ok := AsNum(Str("3")); ok {
		t.Error("AsNum accepted a string")
	}
	if s, ok := AsStr(Str("x")); !ok || s != "x" {
		t.Errorf("AsStr = %v, %v", s, ok)
	}
	if b, ok := AsBool(Bool(true)); !ok || !b {
		t.Errorf("AsBool = %v, %v", b, ok)
	}
	if a, ok := AsArr(Arr{Num(1)}); !ok || len(a) != 1 {
		t.Errorf("AsArr = %v, %v", a, ok)
	}
	if _, ok := AsObj(NewObject()); !ok {
		t.Error("AsObj rejected an object")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nils", Nil{}, Nil{}, true},
		{"nums", Num(1), Num(1), true},
		{"num vs str", Num(1), Str("1"), false},
		{"arrays", Arr{Num(1), Num(2)}, Arr{Num(1), Num(2)}, true},
		{"array length", Arr{Num(1)}, Arr{Num(1), Num(2)}, false},
		{"nested", Arr{Arr{Str("a")}}, Arr{Arr{Str("a")}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindNames(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Nil{}, "nil"},
		{Num(0), "number"},
		{Bool(false), "bool"},
		{Str(""), "string"},
		{Arr{}, "array"},
		{NewObject(), "object"},
	}
	for _, tt := range tests {
		if got := tt.v.Kind().String(); got != tt.want {
			t.Errorf("Kind().String() = %q, want %q", got, tt.want)
		}
	}
}
