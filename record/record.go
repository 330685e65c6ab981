package record

import (
	"encoding/binary"
	"math"

	"github.com/ferrolabs/ferrodb/errs"
)

// Record is one tuple's raw on-disk bytes: the concatenation, in attribute
// order, of each attribute's fixed-width encoding.
type Record struct {
	Data []byte
}

// NewRecord allocates a zeroed record buffer sized for schema.
func NewRecord(schema *Schema) *Record {
	return &Record{Data: make([]byte, schema.RecordSize())}
}

func (r *Record) checkIndex(schema *Schema, i int) error {
	if i < 0 || i >= len(schema.Attributes) {
		return errs.Newf(errs.InvalidArg, "attribute index %d out of range", i)
	}
	return nil
}

// GetAttr reads attribute i's value out of the record as a bool, int32,
// float32, or string depending on the schema's declared type.
func GetAttr(r *Record, schema *Schema, i int) (interface{}, error) {
	if err := r.checkIndex(schema, i); err != nil {
		return nil, err
	}
	a := schema.Attributes[i]
	off := schema.offsetOf(i)
	buf := r.Data[off : off+a.size()]
	switch a.Type {
	case TypeBool:
		return buf[0] != 0, nil
	case TypeInt:
		return int32(binary.LittleEndian.Uint32(buf)), nil
	case TypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(buf)), nil
	case TypeString:
		end := len(buf)
		for k, b := range buf {
			if b == 0 {
				end = k
				break
			}
		}
		// freshly allocated copy: string() over a byte slice always copies.
		return string(buf[:end]), nil
	default:
		return nil, errs.Newf(errs.UnknownDataType, "attribute %d has unknown type", i)
	}
}

// SetAttr writes v into attribute i of the record, type-checking against
// the schema.
func SetAttr(r *Record, schema *Schema, i int, v interface{}) error {
	if err := r.checkIndex(schema, i); err != nil {
		return err
	}
	a := schema.Attributes[i]
	off := schema.offsetOf(i)
	buf := r.Data[off : off+a.size()]
	switch a.Type {
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return errs.Newf(errs.InvalidArg, "attribute %d: expected bool", i)
		}
		if b {
			buf[0] = 1
		} else {
			buf[0] = 0
		}
	case TypeInt:
		n, ok := v.(int32)
		if !ok {
			if n64, ok64 := v.(int); ok64 {
				n, ok = int32(n64), true
			}
		}
		if !ok {
			return errs.Newf(errs.InvalidArg, "attribute %d: expected int32", i)
		}
		binary.LittleEndian.PutUint32(buf, uint32(n))
	case TypeFloat:
		f, ok := v.(float32)
		if !ok {
			if f64, ok64 := v.(float64); ok64 {
				f, ok = float32(f64), true
			}
		}
		if !ok {
			return errs.Newf(errs.InvalidArg, "attribute %d: expected float32", i)
		}
		binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return errs.Newf(errs.InvalidArg, "attribute %d: expected string", i)
		}
		sb := []byte(s)
		if len(sb) > a.Length {
			sb = sb[:a.Length]
		}
		for k := range buf {
			buf[k] = 0
		}
		copy(buf, sb)
	default:
		return errs.Newf(errs.UnknownDataType, "attribute %d has unknown type", i)
	}
	return nil
}
