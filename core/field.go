package core

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/mail"
	"net/url"
	"reflect"
	"time"
	"unicode"
	"unicode/utf8"
)

// FieldKind defines the semantic type of a field
type FieldKind string

const (
	KindString     FieldKind = "string"
	KindInteger    FieldKind = "integer"
	KindFloat      FieldKind = "float"
	KindBoolean    FieldKind = "boolean"
	KindDate       FieldKind = "date"
	KindDateTime   FieldKind = "datetime"
	KindEmail      FieldKind = "email"
	KindIPAddress  FieldKind = "ip_address"
	KindNetmask    FieldKind = "netmask"
	KindMACAddress FieldKind = "mac_address"
	KindURL        FieldKind = "url"
	KindOneToOne   FieldKind = "one_to_one"
	KindOneToMany  FieldKind = "one_to_many"
	KindList       FieldKind = "list"
	KindDict       FieldKind = "dict"
)

// Charset names a class of characters used by string fields
type Charset string

const (
	CharsetAlpha        Charset = "alpha"
	CharsetAlphanumeric Charset = "alphanumeric"
	CharsetNumeric      Charset = "numeric"
	CharsetLatin1       Charset = "latin1"
	CharsetUTF8         Charset = "utf8"
	CharsetHTML         Charset = "html"
)

// Defaults applied to string and integer fields when no constraint is declared.
// Strings stay short because the server limits most columns to 255 bytes and
// a utf8 rune may take up to 3 of them.
const (
	DefaultMinLength = 1
	DefaultMaxLength = 30

	DefaultMinInteger int64 = math.MinInt32
	DefaultMaxInteger int64 = math.MaxInt32
)

// Date layouts used on the wire
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Field describes one attribute of an entity kind. Fields are built once per
// kind and shared by every instance; treat them as read-only.
type Field struct {
	Name     string    `json:"name"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
	Unique   bool      `json:"unique"`
	Choices  []any     `json:"choices,omitempty"`

	DefaultVal any  `json:"default,omitempty"`
	hasDefault bool

	MinLength   int       `json:"min_length,omitempty"`
	MaxLength   int       `json:"max_length,omitempty"`
	Charsets    []Charset `json:"charsets,omitempty"`
	lengthSet   bool
	charsetsSet bool

	Min *int64 `json:"min,omitempty"`
	Max *int64 `json:"max,omitempty"`

	MinTime *time.Time `json:"min_time,omitempty"`
	MaxTime *time.Time `json:"max_time,omitempty"`

	// Targets lists the entity kinds a relationship may point to, in order
	Targets []string `json:"targets,omitempty"`
}

// HasDefault reports whether a default was declared. A nil default is a valid default.
func (f *Field) HasDefault() bool {
	return f.hasDefault
}

// IsRelationship reports whether the field references other entities
func (f *Field) IsRelationship() bool {
	return f.Kind == KindOneToOne || f.Kind == KindOneToMany
}

// IntRange returns the effective integer bounds
func (f *Field) IntRange() (int64, int64) {
	lo, hi := DefaultMinInteger, DefaultMaxInteger
	if f.Min != nil {
		lo = *f.Min
	}
	if f.Max != nil {
		hi = *f.Max
	}
	return lo, hi
}

// LengthRange returns the effective string length bounds
func (f *Field) LengthRange() (int, int) {
	if !f.lengthSet {
		return DefaultMinLength, DefaultMaxLength
	}
	return f.MinLength, f.MaxLength
}

// EffectiveCharsets returns the declared charsets or utf8
func (f *Field) EffectiveCharsets() []Charset {
	if len(f.Charsets) == 0 {
		return []Charset{CharsetUTF8}
	}
	return f.Charsets
}

// checkType verifies the Go type of a non-relationship value and returns its
// canonical form. Temporal strings are parsed into time.Time.
func (f *Field) checkType(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch f.Kind {
	case KindString, KindEmail, KindIPAddress, KindNetmask, KindMACAddress, KindURL:
		if _, ok := value.(string); !ok {
			return nil, fmt.Errorf("expected a string, got %T", value)
		}
	case KindInteger:
		if _, ok := asInt64(value); !ok {
			return nil, fmt.Errorf("expected an integer, got %T", value)
		}
	case KindFloat:
		if _, ok := asFloat64(value); !ok {
			return nil, fmt.Errorf("expected a number, got %T", value)
		}
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			return nil, fmt.Errorf("expected a boolean, got %T", value)
		}
	case KindDate, KindDateTime:
		t, err := parseTime(f.Kind, value)
		if err != nil {
			return nil, err
		}
		return t, nil
	case KindList:
		if !isSlice(value) {
			return nil, fmt.Errorf("expected a list, got %T", value)
		}
	case KindDict:
		if reflect.ValueOf(value).Kind() != reflect.Map {
			return nil, fmt.Errorf("expected a dict, got %T", value)
		}
	}
	return value, nil
}

// Validate checks a value against every constraint of the field. Nil is
// always accepted. Relationship fields only have their shape checked.
func (f *Field) Validate(value any) error {
	if value == nil {
		return nil
	}
	if f.IsRelationship() {
		if f.Kind == KindOneToMany && !isSlice(value) {
			return f.invalid(value, "expected a list of entities or ids")
		}
		if f.Kind == KindOneToOne && isSlice(value) {
			return f.invalid(value, "expected a single entity or id, got a list")
		}
		return nil
	}
	canonical, err := f.checkType(value)
	if err != nil {
		return f.invalid(value, err.Error())
	}
	if len(f.Choices) > 0 && !containsValue(f.Choices, canonical) {
		return f.invalid(value, fmt.Sprintf("must be one of %v", f.Choices))
	}

	switch f.Kind {
	case KindString:
		s := canonical.(string)
		if f.lengthSet {
			n := utf8.RuneCountInString(s)
			if n < f.MinLength || n > f.MaxLength {
				return f.invalid(value, fmt.Sprintf("length %d outside [%d, %d]", n, f.MinLength, f.MaxLength))
			}
		}
		if f.charsetsSet && !matchesAnyCharset(s, f.Charsets) {
			return f.invalid(value, fmt.Sprintf("characters outside %v", f.Charsets))
		}
	case KindInteger:
		n, _ := asInt64(canonical)
		lo, hi := f.IntRange()
		if (f.Min != nil && n < lo) || (f.Max != nil && n > hi) {
			return f.invalid(value, fmt.Sprintf("outside [%d, %d]", lo, hi))
		}
	case KindDate, KindDateTime:
		t := canonical.(time.Time)
		if f.MinTime != nil && t.Before(*f.MinTime) {
			return f.invalid(value, "before minimum")
		}
		if f.MaxTime != nil && t.After(*f.MaxTime) {
			return f.invalid(value, "after maximum")
		}
	case KindEmail:
		addr, err := mail.ParseAddress(canonical.(string))
		if err != nil || addr.Address != canonical.(string) {
			return f.invalid(value, "not an email address")
		}
	case KindIPAddress:
		if net.ParseIP(canonical.(string)) == nil {
			return f.invalid(value, "not an IP address")
		}
	case KindNetmask:
		ip := net.ParseIP(canonical.(string))
		if ip == nil || ip.To4() == nil {
			return f.invalid(value, "not a netmask")
		}
		if _, bits := net.IPMask(ip.To4()).Size(); bits == 0 {
			return f.invalid(value, "not a contiguous netmask")
		}
	case KindMACAddress:
		if _, err := net.ParseMAC(canonical.(string)); err != nil {
			return f.invalid(value, "not a MAC address")
		}
	case KindURL:
		u, err := url.Parse(canonical.(string))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return f.invalid(value, "not an absolute URL")
		}
	}
	return nil
}

func (f *Field) invalid(value any, reason string) error {
	return &InvalidFieldValueError{Field: f.Name, Value: value, Reason: reason}
}

// FieldBuilder provides fluent API for declaring fields
type FieldBuilder struct {
	field *Field
}

// NewFieldBuilder creates a new FieldBuilder for the given kind
func NewFieldBuilder(kind FieldKind) *FieldBuilder {
	return &FieldBuilder{field: &Field{Kind: kind}}
}

func StringField() *FieldBuilder    { return NewFieldBuilder(KindString) }
func IntegerField() *FieldBuilder   { return NewFieldBuilder(KindInteger) }
func FloatField() *FieldBuilder     { return NewFieldBuilder(KindFloat) }
func BooleanField() *FieldBuilder   { return NewFieldBuilder(KindBoolean) }
func DateField() *FieldBuilder      { return NewFieldBuilder(KindDate) }
func DateTimeField() *FieldBuilder  { return NewFieldBuilder(KindDateTime) }
func EmailField() *FieldBuilder     { return NewFieldBuilder(KindEmail) }
func IPAddressField() *FieldBuilder { return NewFieldBuilder(KindIPAddress) }
func NetmaskField() *FieldBuilder   { return NewFieldBuilder(KindNetmask) }
func MACAddressField() *FieldBuilder {
	return NewFieldBuilder(KindMACAddress)
}
func URLField() *FieldBuilder  { return NewFieldBuilder(KindURL) }
func ListField() *FieldBuilder { return NewFieldBuilder(KindList) }
func DictField() *FieldBuilder { return NewFieldBuilder(KindDict) }

// OneToOne declares a reference to a single entity of one of the target kinds
func OneToOne(targets ...string) *FieldBuilder {
	fb := NewFieldBuilder(KindOneToOne)
	fb.field.Targets = targets
	return fb
}

// OneToMany declares a reference to zero or more entities of the target kinds
func OneToMany(targets ...string) *FieldBuilder {
	fb := NewFieldBuilder(KindOneToMany)
	fb.field.Targets = targets
	return fb
}

// Required marks the field as required on create
func (fb *FieldBuilder) Required(required bool) *FieldBuilder {
	fb.field.Required = required
	return fb
}

// Unique marks values of the field as unique per entity
func (fb *FieldBuilder) Unique(unique bool) *FieldBuilder {
	fb.field.Unique = unique
	return fb
}

// Default sets the value used by create-missing. Nil is a valid default.
func (fb *FieldBuilder) Default(value any) *FieldBuilder {
	fb.field.DefaultVal = value
	fb.field.hasDefault = true
	return fb
}

// Choices restricts the field to the given values
func (fb *FieldBuilder) Choices(choices ...any) *FieldBuilder {
	fb.field.Choices = choices
	return fb
}

// Length sets the allowed string length in runes
func (fb *FieldBuilder) Length(min, max int) *FieldBuilder {
	fb.field.MinLength = min
	fb.field.MaxLength = max
	fb.field.lengthSet = true
	return fb
}

// Charset sets the character classes of generated and validated strings
func (fb *FieldBuilder) Charset(charsets ...Charset) *FieldBuilder {
	fb.field.Charsets = charsets
	fb.field.charsetsSet = len(charsets) > 0
	return fb
}

// Range sets integer bounds
func (fb *FieldBuilder) Range(min, max int64) *FieldBuilder {
	fb.field.Min = &min
	fb.field.Max = &max
	return fb
}

// Between sets bounds for date and datetime fields
func (fb *FieldBuilder) Between(min, max time.Time) *FieldBuilder {
	fb.field.MinTime = &min
	fb.field.MaxTime = &max
	return fb
}

// Build returns the final Field
func (fb *FieldBuilder) Build() *Field {
	f := *fb.field
	return &f
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int64(v), true
	case float32:
		return asInt64(float64(v))
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

func asFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	if n, ok := asInt64(value); ok {
		return float64(n), true
	}
	return 0, false
}

func isSlice(value any) bool {
	if value == nil {
		return false
	}
	k := reflect.ValueOf(value).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func toSlice(value any) []any {
	if items, ok := value.([]any); ok {
		return items
	}
	rv := reflect.ValueOf(value)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func parseTime(kind FieldKind, value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		layouts := []string{DateLayout}
		if kind == KindDateTime {
			layouts = []string{time.RFC3339Nano, DateTimeLayout + " MST", DateTimeLayout + " UTC", DateTimeLayout, DateLayout}
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		// The server sometimes returns a full timestamp for date columns
		if kind == KindDate {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as %s", v, kind)
	}
	return time.Time{}, fmt.Errorf("expected a time or string, got %T", value)
}

func formatTime(kind FieldKind, t time.Time) string {
	if kind == KindDate {
		return t.Format(DateLayout)
	}
	return t.Format(DateTimeLayout)
}

func matchesAnyCharset(s string, charsets []Charset) bool {
	for _, cs := range charsets {
		if matchesCharset(s, cs) {
			return true
		}
	}
	return false
}

func matchesCharset(s string, cs Charset) bool {
	for _, r := range s {
		switch cs {
		case CharsetAlpha:
			if !isASCIILetter(r) {
				return false
			}
		case CharsetAlphanumeric:
			if !isASCIILetter(r) && !unicode.IsDigit(r) {
				return false
			}
		case CharsetNumeric:
			if r < '0' || r > '9' {
				return false
			}
		case CharsetLatin1:
			if r > 0xFF {
				return false
			}
		}
	}
	return utf8.ValidString(s)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func containsValue(choices []any, value any) bool {
	for _, c := range choices {
		if valuesEqual(c, value) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	if ai, ok := asInt64(a); ok {
		if bi, ok := asInt64(b); ok {
			return ai == bi
		}
	}
	return reflect.DeepEqual(a, b)
}
