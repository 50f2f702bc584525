package convert

import (
	"reflect"
	"testing"
)

func TestGlobalScalarRoundTrip(t *testing.T) {
	r := NewRegistry()

	cases := []interface{}{"hello", true, int(7), int64(-9), uint(3), float64(3.5)}
	for _, v := range cases {
		typ := reflect.TypeOf(v)
		c, ok := r.Get(typ)
		if !ok {
			t.Fatalf("Get(%v): no converter", typ)
		}
		s, err := c.ToString(reflect.ValueOf(v))
		if err != nil {
			t.Fatalf("ToString(%v): %v", v, err)
		}
		back, err := c.FromString(s, typ)
		if err != nil {
			t.Fatalf("FromString(%q): %v", s, err)
		}
		if !reflect.DeepEqual(back.Interface(), v) {
			t.Errorf("round trip %v -> %q -> %v, want %v", v, s, back.Interface(), v)
		}
	}
}

type customID int

func TestRegisterLocalMakesTypeAvailable(t *testing.T) {
	r := NewRegistry()
	typ := reflect.TypeOf(customID(0))

	if _, ok := r.Get(typ); ok {
		t.Fatalf("Get(customID) unexpectedly found a converter before registration")
	}

	r.Register(typ, intConverter{bits: 64})
	c, ok := r.Get(typ)
	if !ok {
		t.Fatalf("Get(customID) after Register: not found")
	}
	s, err := c.ToString(reflect.ValueOf(customID(42)))
	if err != nil || s != "42" {
		t.Errorf("ToString(customID(42)) = %q, %v, want \"42\", nil", s, err)
	}
}

func TestEnumConverter(t *testing.T) {
	names := map[int64]string{0: "OFF", 1: "ON"}
	values := map[string]int64{"OFF": 0, "ON": 1}
	ec := EnumConverter{
		NameOf: func(v reflect.Value) (string, bool) {
			n, ok := names[v.Int()]
			return n, ok
		},
		ValueOf: func(name string, t reflect.Type) (reflect.Value, bool) {
			n, ok := values[name]
			if !ok {
				return reflect.Value{}, false
			}
			v := reflect.New(t).Elem()
			v.SetInt(n)
			return v, true
		},
	}

	typ := reflect.TypeOf(customID(0))
	s, err := ec.ToString(reflect.ValueOf(customID(1)))
	if err != nil || s != "ON" {
		t.Fatalf("ToString = %q, %v, want ON, nil", s, err)
	}
	v, err := ec.FromString("OFF", typ)
	if err != nil || v.Int() != 0 {
		t.Fatalf("FromString(OFF) = %v, %v, want 0, nil", v, err)
	}
	if _, err := ec.FromString("UNKNOWN", typ); err == nil {
		t.Fatal("FromString(UNKNOWN) = nil error, want error")
	}
}
