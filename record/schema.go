package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ferrolabs/ferrodb/errs"
)

// AttrType is one of the four fixed-layout attribute types a Schema can
// describe.
type AttrType int

const (
	TypeBool AttrType = iota
	TypeInt
	TypeFloat
	TypeString
)

// Attribute describes one column: its name, type, and (for TypeString) its
// fixed length in bytes.
type Attribute struct {
	Name   string
	Type   AttrType
	Length int // only meaningful for TypeString
}

// size returns the on-disk byte width of one value of this attribute.
func (a Attribute) size() int {
	switch a.Type {
	case TypeBool:
		return 1
	case TypeInt, TypeFloat:
		return 4
	case TypeString:
		return a.Length
	default:
		return 0
	}
}

// Schema is an ordered list of attributes plus a set of key attribute
// indices.
type Schema struct {
	Attributes []Attribute
	Keys       []int // indices into Attributes
}

// NewSchema builds a Schema and resolves keyNames against attrs' names.
func NewSchema(attrs []Attribute, keyNames []string) (*Schema, error) {
	s := &Schema{Attributes: attrs}
	for _, kn := range keyNames {
		idx := -1
		for i, a := range attrs {
			if a.Name == kn {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, errs.Newf(errs.InvalidSchema, "key attribute %q not found", kn)
		}
		s.Keys = append(s.Keys, idx)
	}
	return s, nil
}

// RecordSize is the total byte width of one record under this schema: the
// sum of each attribute's fixed width, in attribute order.
func (s *Schema) RecordSize() int {
	n := 0
	for _, a := range s.Attributes {
		n += a.size()
	}
	return n
}

// offsetOf returns the byte offset of attribute i within a record buffer.
func (s *Schema) offsetOf(i int) int {
	off := 0
	for j := 0; j < i; j++ {
		off += s.Attributes[j].size()
	}
	return off
}

func typeName(t AttrType, length int) string {
	switch t {
	case TypeBool:
		return "BOOL"
	case TypeInt:
		return "INT"
	case TypeFloat:
		return "FLOAT"
	case TypeString:
		return fmt.Sprintf("STRING[%d]", length)
	default:
		return "UNKNOWN"
	}
}

// Serialize renders the ASCII form described in spec.md §4.D:
//
//	Schema with <n> attributes (name1: type1, name2: type2, ...) with keys (keyname1, keyname2, ...)
func (s *Schema) Serialize() string {
	var names []string
	for _, a := range s.Attributes {
		names = append(names, fmt.Sprintf("%s: %s", a.Name, typeName(a.Type, a.Length)))
	}
	var keys []string
	for _, idx := range s.Keys {
		keys = append(keys, s.Attributes[idx].Name)
	}
	return fmt.Sprintf("Schema with %d attributes (%s) with keys (%s)",
		len(s.Attributes), strings.Join(names, ", "), strings.Join(keys, ", "))
}

// ParseSchema reconstructs a Schema from the ASCII form Serialize produces.
// The key list is read up to the closing ')', counting attributes between
// commas properly rather than scanning for commas across the rest of the
// buffer (spec.md §9's fix for the source's unterminated comma count).
func ParseSchema(s string) (*Schema, error) {
	const prefix = "Schema with "
	if !strings.HasPrefix(s, prefix) {
		return nil, errs.New(errs.InvalidSchema, "missing schema prefix")
	}
	rest := s[len(prefix):]

	sp := strings.Index(rest, " attributes (")
	if sp < 0 {
		return nil, errs.New(errs.InvalidSchema, "missing attribute count marker")
	}
	if _, err := strconv.Atoi(rest[:sp]); err != nil {
		return nil, errs.Wrap(errs.InvalidSchema, err, "parse attribute count")
	}
	rest = rest[sp+len(" attributes ("):]

	closeIdx := strings.Index(rest, ") with keys (")
	if closeIdx < 0 {
		return nil, errs.New(errs.InvalidSchema, "missing attribute list terminator")
	}
	attrList := rest[:closeIdx]
	rest = rest[closeIdx+len(") with keys ("):]

	keysEnd := strings.Index(rest, ")")
	if keysEnd < 0 {
		return nil, errs.New(errs.InvalidSchema, "missing key list terminator")
	}
	keyList := rest[:keysEnd]

	var attrs []Attribute
	if strings.TrimSpace(attrList) != "" {
		for _, part := range strings.Split(attrList, ", ") {
			nameType := strings.SplitN(part, ": ", 2)
			if len(nameType) != 2 {
				return nil, errs.Newf(errs.InvalidSchema, "malformed attribute %q", part)
			}
			name := nameType[0]
			typ, length, err := parseType(nameType[1])
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, Attribute{Name: name, Type: typ, Length: length})
		}
	}

	var keyNames []string
	if strings.TrimSpace(keyList) != "" {
		for _, k := range strings.Split(keyList, ", ") {
			keyNames = append(keyNames, strings.TrimSpace(k))
		}
	}
	return NewSchema(attrs, keyNames)
}

func parseType(s string) (AttrType, int, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "BOOL":
		return TypeBool, 0, nil
	case s == "INT":
		return TypeInt, 0, nil
	case s == "FLOAT":
		return TypeFloat, 0, nil
	case strings.HasPrefix(s, "STRING[") && strings.HasSuffix(s, "]"):
		n, err := strconv.Atoi(s[len("STRING[") : len(s)-1])
		if err != nil {
			return 0, 0, errs.Wrap(errs.InvalidSchema, err, "parse string length")
		}
		return TypeString, n, nil
	default:
		return 0, 0, errs.Newf(errs.UnknownDataType, "unknown type %q", s)
	}
}
