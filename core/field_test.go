package core

import (
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldBuilderDefaults(t *testing.T) {
	f := StringField().Build()

	lo, hi := f.LengthRange()
	assert.Equal(t, DefaultMinLength, lo)
	assert.Equal(t, DefaultMaxLength, hi)
	assert.Equal(t, []Charset{CharsetUTF8}, f.EffectiveCharsets())
	assert.False(t, f.HasDefault())

	n := IntegerField().Build()
	min, max := n.IntRange()
	assert.Equal(t, int64(-2147483648), min)
	assert.Equal(t, int64(2147483647), max)
}

func TestFieldNilDefaultIsADefault(t *testing.T) {
	f := OneToOne("Organization").Default(nil).Build()
	assert.True(t, f.HasDefault())
	assert.Nil(t, f.DefaultVal)
}

func TestFieldValidate(t *testing.T) {
	tests := []struct {
		name  string
		field *Field
		value any
		ok    bool
	}{
		{"nil always accepted", IntegerField().Range(1, 2).Build(), nil, true},
		{"string", StringField().Build(), "héllo", true},
		{"string wrong type", StringField().Build(), 5, false},
		{"string too long", StringField().Length(1, 3).Build(), "abcd", false},
		{"string rune length", StringField().Length(1, 2).Build(), "日本", true},
		{"alpha", StringField().Charset(CharsetAlpha).Build(), "abcXYZ", true},
		{"alpha rejects digits", StringField().Charset(CharsetAlpha).Build(), "abc1", false},
		{"numeric", StringField().Charset(CharsetNumeric).Build(), "0123", true},
		{"either charset", StringField().Charset(CharsetAlpha, CharsetNumeric).Build(), "123", true},
		{"latin1", StringField().Charset(CharsetLatin1).Build(), "ÀÿA", true},
		{"latin1 rejects cjk", StringField().Charset(CharsetLatin1).Build(), "日", false},
		{"integer", IntegerField().Build(), 12, true},
		{"integer json number", IntegerField().Build(), json.Number("12"), true},
		{"integer integral float", IntegerField().Build(), 12.0, true},
		{"integer fractional", IntegerField().Build(), 12.5, false},
		{"integer range", IntegerField().Range(1, 10).Build(), 11, false},
		{"float", FloatField().Build(), 1.5, true},
		{"float from int", FloatField().Build(), 1, true},
		{"boolean", BooleanField().Build(), true, true},
		{"boolean string", BooleanField().Build(), "true", false},
		{"date string", DateField().Build(), "2024-02-29", true},
		{"date garbage", DateField().Build(), "yesterday", false},
		{"datetime", DateTimeField().Build(), "2024-01-02 03:04:05", true},
		{"datetime bounds", DateTimeField().Between(fixedTime, fixedTime.Add(time.Hour)).Build(), fixedTime.Add(2 * time.Hour), false},
		{"email", EmailField().Build(), "admin@example.com", true},
		{"email with name", EmailField().Build(), "Admin <admin@example.com>", false},
		{"ip", IPAddressField().Build(), "192.168.0.1", true},
		{"ip v6", IPAddressField().Build(), "::1", true},
		{"ip garbage", IPAddressField().Build(), "300.1.1.1", false},
		{"netmask", NetmaskField().Build(), "255.255.255.0", true},
		{"netmask non contiguous", NetmaskField().Build(), "255.0.255.0", false},
		{"mac", MACAddressField().Build(), "00:1a:2b:3c:4d:5e", true},
		{"mac garbage", MACAddressField().Build(), "00:1a", false},
		{"url", URLField().Build(), "https://example.com/repo", true},
		{"url relative", URLField().Build(), "/repo", false},
		{"choices", StringField().Choices("a", "b").Build(), "b", true},
		{"choices miss", StringField().Choices("a", "b").Build(), "c", false},
		{"int choices", IntegerField().Choices(1, 2).Build(), int64(2), true},
		{"list", ListField().Build(), []string{"a"}, true},
		{"list scalar", ListField().Build(), "a", false},
		{"dict", DictField().Build(), map[string]any{"a": 1}, true},
		{"one to one shape", OneToOne("Organization").Build(), 5, true},
		{"one to one list", OneToOne("Organization").Build(), []int{5}, false},
		{"one to many scalar", OneToMany("Organization").Build(), 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Validate(tt.value)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidFieldValue), "got %v", err)
		})
	}
}

func TestGenValueSatisfiesConstraints(t *testing.T) {
	gen := NewFakeGenerator(7)
	lo := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	hi := time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)

	fields := map[string]*Field{
		"utf8":      StringField().Build(),
		"alpha":     StringField().Charset(CharsetAlpha).Length(5, 5).Build(),
		"alnum":     StringField().Charset(CharsetAlphanumeric).Length(1, 10).Build(),
		"numeric":   StringField().Charset(CharsetNumeric).Length(3, 8).Build(),
		"latin1":    StringField().Charset(CharsetLatin1).Length(2, 4).Build(),
		"html":      StringField().Charset(CharsetHTML).Length(10, 20).Build(),
		"integer":   IntegerField().Build(),
		"small":     IntegerField().Range(-3, 3).Build(),
		"date":      DateField().Between(lo, hi).Build(),
		"datetime":  DateTimeField().Between(lo, hi).Build(),
		"email":     EmailField().Build(),
		"ip":        IPAddressField().Build(),
		"netmask":   NetmaskField().Build(),
		"mac":       MACAddressField().Build(),
		"url":       URLField().Build(),
		"choices":   StringField().Choices("hourly", "daily").Build(),
		"boolean":   BooleanField().Build(),
		"float":     FloatField().Build(),
		"list":      ListField().Build(),
		"dict":      DictField().Build(),
		"html_tiny": StringField().Charset(CharsetHTML).Length(3, 3).Build(),
	}

	for name, f := range fields {
		f.Name = name
		for i := 0; i < 50; i++ {
			v, err := f.GenValue(gen)
			require.NoError(t, err, name)
			require.NoError(t, f.Validate(v), "%s generated %#v", name, v)
		}
	}
}

func TestGenValueStringLength(t *testing.T) {
	gen := NewFakeGenerator(1)
	f := StringField().Build()
	for i := 0; i < 100; i++ {
		v, err := f.GenValue(gen)
		require.NoError(t, err)
		n := utf8.RuneCountInString(v.(string))
		assert.GreaterOrEqual(t, n, DefaultMinLength)
		assert.LessOrEqual(t, n, DefaultMaxLength)
	}
}

func TestGenValueNetmaskIsContiguous(t *testing.T) {
	gen := NewFakeGenerator(3)
	for i := 0; i < 20; i++ {
		ip := net.ParseIP(gen.Netmask()).To4()
		require.NotNil(t, ip)
		_, bits := net.IPMask(ip).Size()
		assert.Equal(t, 32, bits)
	}
}

func TestGenValueRelationship(t *testing.T) {
	_, err := OneToOne("Organization").Build().GenValue(NewFakeGenerator(1))
	assert.ErrorIs(t, err, ErrGenerateRelationship)

	_, err = OneToMany("Organization").Build().GenValue(NewFakeGenerator(1))
	assert.ErrorIs(t, err, ErrGenerateRelationship)
}

func TestFieldDescriptorsAreCopies(t *testing.T) {
	reg := newTestRegistry()
	org := reg.MustKind("Organization")

	fields := org.Fields()
	fields[1].Required = false
	fields[1].Name = "changed"

	f, ok := org.Field("name")
	require.True(t, ok)
	assert.True(t, f.Required)
	assert.Equal(t, "id", org.Fields()[0].Name, "id is added first")
}
