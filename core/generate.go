package core

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Generator produces random values for fields. Implementations must be safe
// for concurrent use.
type Generator interface {
	String(charset Charset, length int) string
	Integer(min, max int64) int64
	Float() float64
	Bool() bool
	Email() string
	IPAddress() string
	Netmask() string
	MAC() string
	URL() string
	Time(min, max time.Time) time.Time
	Choice(choices []any) any
}

// Bounds used when a temporal field declares none
var (
	defaultMinTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	defaultMaxTime = time.Date(2030, 12, 31, 23, 59, 59, 0, time.UTC)
)

// FakeGenerator is the default Generator, backed by gofakeit
type FakeGenerator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// NewFakeGenerator creates a generator. A zero seed picks a random one.
func NewFakeGenerator(seed uint64) *FakeGenerator {
	return &FakeGenerator{faker: gofakeit.New(seed)}
}

func (g *FakeGenerator) String(charset Charset, length int) string {
	if length <= 0 {
		return ""
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	switch charset {
	case CharsetAlpha:
		return g.faker.LetterN(uint(length))
	case CharsetNumeric:
		return g.faker.DigitN(uint(length))
	case CharsetAlphanumeric:
		var sb strings.Builder
		for range length {
			if g.faker.Bool() {
				sb.WriteString(g.faker.Letter())
			} else {
				sb.WriteString(g.faker.Digit())
			}
		}
		return sb.String()
	case CharsetLatin1:
		return g.runes(length, 0xC0, 0xFF)
	case CharsetHTML:
		// <b></b> takes 7 runes; shorter lengths fall back to plain letters
		if length <= 7 {
			return g.faker.LetterN(uint(length))
		}
		return "<b>" + g.faker.LetterN(uint(length-7)) + "</b>"
	default:
		// CJK unified ideographs
		return g.runes(length, 0x4E00, 0x9FFF)
	}
}

func (g *FakeGenerator) runes(length int, lo, hi int) string {
	out := make([]rune, length)
	for i := range out {
		r := rune(g.faker.IntRange(lo, hi))
		// skip multiplication and division signs in the latin1 block
		if r == 0xD7 || r == 0xF7 {
			r++
		}
		out[i] = r
	}
	return string(out)
}

func (g *FakeGenerator) Integer(min, max int64) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int64(g.faker.IntRange(int(min), int(max)))
}

func (g *FakeGenerator) Float() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.Float64Range(-1e6, 1e6)
}

func (g *FakeGenerator) Bool() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.Bool()
}

func (g *FakeGenerator) Email() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return strings.ToLower(g.faker.LetterN(10)) + "@example.com"
}

func (g *FakeGenerator) IPAddress() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.IPv4Address()
}

func (g *FakeGenerator) Netmask() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	mask := net.CIDRMask(g.faker.IntRange(1, 32), 32)
	return net.IP(mask).String()
}

func (g *FakeGenerator) MAC() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.MacAddress()
}

func (g *FakeGenerator) URL() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return "https://" + strings.ToLower(g.faker.LetterN(12)) + ".example.com"
}

func (g *FakeGenerator) Time(min, max time.Time) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.DateRange(min, max).UTC()
}

func (g *FakeGenerator) Choice(choices []any) any {
	if len(choices) == 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return choices[g.faker.IntRange(0, len(choices)-1)]
}

// GenValue produces a random value satisfying the field's constraints.
// Defaults are not consulted here.
func (f *Field) GenValue(gen Generator) (any, error) {
	if len(f.Choices) > 0 {
		return gen.Choice(f.Choices), nil
	}

	switch f.Kind {
	case KindString:
		lo, hi := f.LengthRange()
		n := int(gen.Integer(int64(lo), int64(hi)))
		charsets := f.EffectiveCharsets()
		cs := charsets[0]
		if len(charsets) > 1 {
			cs = gen.Choice(charsetsAsAny(charsets)).(Charset)
		}
		return gen.String(cs, n), nil
	case KindInteger:
		lo, hi := f.IntRange()
		return int(gen.Integer(lo, hi)), nil
	case KindFloat:
		return gen.Float(), nil
	case KindBoolean:
		return gen.Bool(), nil
	case KindDate, KindDateTime:
		lo, hi := defaultMinTime, defaultMaxTime
		if f.MinTime != nil {
			lo = *f.MinTime
		}
		if f.MaxTime != nil {
			hi = *f.MaxTime
		}
		t := gen.Time(lo, hi)
		if f.Kind == KindDate {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			if t.Before(lo) {
				t = t.AddDate(0, 0, 1)
			}
		} else {
			t = t.Truncate(time.Second)
		}
		return t, nil
	case KindEmail:
		return gen.Email(), nil
	case KindIPAddress:
		return gen.IPAddress(), nil
	case KindNetmask:
		return gen.Netmask(), nil
	case KindMACAddress:
		return gen.MAC(), nil
	case KindURL:
		return gen.URL(), nil
	case KindList:
		return []any{}, nil
	case KindDict:
		return map[string]any{}, nil
	case KindOneToOne, KindOneToMany:
		return nil, fmt.Errorf("%s: %w", f.Name, ErrGenerateRelationship)
	}
	return nil, fmt.Errorf("%s: cannot generate values of kind %q", f.Name, f.Kind)
}

func charsetsAsAny(charsets []Charset) []any {
	out := make([]any, len(charsets))
	for i, cs := range charsets {
		out[i] = cs
	}
	return out
}
