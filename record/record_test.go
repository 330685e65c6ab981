package record

import "testing"

func testSchema(t *testing.T) *Schema {
	s, err := NewSchema([]Attribute{
		{Name: "flag", Type: TypeBool},
		{Name: "count", Type: TypeInt},
		{Name: "ratio", Type: TypeFloat},
		{Name: "label", Type: TypeString, Length: 8},
	}, nil)
	if err != nil {
		t.Fatalf("new schema: %v", err)
	}
	return s
}

func TestSetGetAttrRoundTrip(t *testing.T) {
	s := testSchema(t)
	r := NewRecord(s)

	if err := SetAttr(r, s, 0, true); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if err := SetAttr(r, s, 1, int32(-42)); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if err := SetAttr(r, s, 2, float32(3.25)); err != nil {
		t.Fatalf("set float: %v", err)
	}
	if err := SetAttr(r, s, 3, "hi"); err != nil {
		t.Fatalf("set string: %v", err)
	}

	if v, err := GetAttr(r, s, 0); err != nil || v != true {
		t.Fatalf("bool round trip: %v %v", v, err)
	}
	if v, err := GetAttr(r, s, 1); err != nil || v != int32(-42) {
		t.Fatalf("int round trip: %v %v", v, err)
	}
	if v, err := GetAttr(r, s, 2); err != nil || v != float32(3.25) {
		t.Fatalf("float round trip: %v %v", v, err)
	}
	if v, err := GetAttr(r, s, 3); err != nil || v != "hi" {
		t.Fatalf("string round trip: %v %v", v, err)
	}
}

func TestSetAttrStringTruncatesAndZeroPads(t *testing.T) {
	s := testSchema(t)
	r := NewRecord(s)
	if err := SetAttr(r, s, 3, "way too long"); err != nil {
		t.Fatalf("set string: %v", err)
	}
	v, err := GetAttr(r, s, 3)
	if err != nil {
		t.Fatalf("get string: %v", err)
	}
	if v != "way too " {
		t.Fatalf("expected truncation to 8 bytes, got %q", v)
	}

	if err := SetAttr(r, s, 3, "hi"); err != nil {
		t.Fatalf("set shorter string: %v", err)
	}
	v, err = GetAttr(r, s, 3)
	if err != nil {
		t.Fatalf("get string: %v", err)
	}
	if v != "hi" {
		t.Fatalf("expected zero-padded short string to read back as %q, got %q", "hi", v)
	}
}

func TestSetAttrWrongTypeFails(t *testing.T) {
	s := testSchema(t)
	r := NewRecord(s)
	if err := SetAttr(r, s, 0, "not a bool"); err == nil {
		t.Fatalf("expected type error for bool attribute")
	}
	if err := SetAttr(r, s, 1, "not an int"); err == nil {
		t.Fatalf("expected type error for int attribute")
	}
}

func TestGetAttrOutOfRange(t *testing.T) {
	s := testSchema(t)
	r := NewRecord(s)
	if _, err := GetAttr(r, s, 99); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestSetAttrAcceptsPlainIntAndFloat64(t *testing.T) {
	s := testSchema(t)
	r := NewRecord(s)
	if err := SetAttr(r, s, 1, 7); err != nil {
		t.Fatalf("set plain int: %v", err)
	}
	if v, err := GetAttr(r, s, 1); err != nil || v != int32(7) {
		t.Fatalf("got %v %v", v, err)
	}
	if err := SetAttr(r, s, 2, 1.5); err != nil {
		t.Fatalf("set plain float64: %v", err)
	}
	if v, err := GetAttr(r, s, 2); err != nil || v != float32(1.5) {
		t.Fatalf("got %v %v", v, err)
	}
}
