package core

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/preslavrachev/nailgun/config"
)

// DecodeOptions controls how server data becomes an entity
type DecodeOptions struct {
	// Ignore lists fields that are skipped entirely
	Ignore []string
	// Require fails when a non-ignored field is absent from the data
	Require bool
	// Strict fails on keys that are not fields of the kind, once references
	// and read aliases are accounted for
	Strict bool
}

// Decode builds an entity of kind from a server JSON object. A top-level
// {<wrapper key>: {...}} envelope is removed first. Keys that are not
// fields of the kind are dropped unless opts.Strict is set.
func Decode(kind *Kind, cfg *config.ServerConfig, attrs map[string]any, opts DecodeOptions) (*Entity, error) {
	return decodeInto(kind, cfg, attrs, opts)
}

func decodeInto(kind *Kind, cfg *config.ServerConfig, attrs map[string]any, opts DecodeOptions) (*Entity, error) {
	attrs = unwrap(kind, attrs)
	if opts.Strict {
		if unknown := unknownKeys(kind, attrs); len(unknown) > 0 {
			return nil, &SchemaError{Kind: kind.Name, Fields: unknown, Valid: kind.validFieldNames(), Err: ErrUnknownField}
		}
	}
	attrs = normalizeRelationships(kind, attrs)

	e := newBare(kind, cfg, nil)
	var missing []string
	for _, f := range kind.fields {
		if slices.Contains(opts.Ignore, f.Name) {
			continue
		}
		raw, ok := attrs[f.Name]
		if !ok {
			if opts.Require {
				missing = append(missing, f.Name)
			}
			continue
		}
		value, err := decodeValue(kind, f, cfg, raw)
		if err != nil {
			return nil, err
		}
		e.values[f.Name] = value
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Kind: kind.Name, Fields: missing, Err: ErrMissingValue}
	}
	return e, nil
}

// unknownKeys lists the keys of attrs that name no field, reference or read
// alias of kind
func unknownKeys(kind *Kind, attrs map[string]any) []string {
	known := make(map[string]bool, len(kind.fields)*2)
	for serverKey := range kind.readAlias {
		known[serverKey] = true
	}
	for _, f := range kind.fields {
		known[f.Name] = true
		switch f.Kind {
		case KindOneToOne:
			known[f.Name+"_id"] = true
		case KindOneToMany:
			known[f.Name+"_ids"] = true
			known[f.Name+"s"] = true
			known[pluralize(f.Name)] = true
		}
	}
	var unknown []string
	for k := range attrs {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	slices.Sort(unknown)
	return unknown
}

func unwrap(kind *Kind, attrs map[string]any) map[string]any {
	if len(attrs) != 1 {
		return attrs
	}
	if inner, ok := attrs[kind.WrapperKey].(map[string]any); ok {
		if _, isField := kind.Field(kind.WrapperKey); !isField {
			return inner
		}
	}
	return attrs
}

// normalizeRelationships maps read aliases and the server's many spellings
// of references onto field names: one-to-one from <f> or <f>_id, one-to-many from <f>_ids,
// <f> or the plural of <f>.
func normalizeRelationships(kind *Kind, attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	for serverKey, field := range kind.readAlias {
		if v, ok := out[serverKey]; ok {
			if _, set := out[field]; !set {
				out[field] = v
			}
		}
	}
	for _, f := range kind.fields {
		switch f.Kind {
		case KindOneToOne:
			if _, ok := out[f.Name]; ok {
				continue
			}
			if id, ok := out[f.Name+"_id"]; ok {
				out[f.Name] = id
			}
		case KindOneToMany:
			if ids, ok := out[f.Name+"_ids"]; ok {
				out[f.Name] = ids
				continue
			}
			if _, ok := out[f.Name]; ok {
				continue
			}
			for _, plural := range []string{f.Name + "s", pluralize(f.Name)} {
				if items, ok := out[plural]; ok {
					out[f.Name] = items
					break
				}
			}
		}
	}
	return out
}

func decodeValue(kind *Kind, f *Field, cfg *config.ServerConfig, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch f.Kind {
	case KindOneToOne, KindOneToMany:
		return decodeRelationship(kind, f, cfg, raw)
	case KindInteger:
		if n, ok := asInt64(raw); ok {
			return int(n), nil
		}
		if s, ok := raw.(string); ok {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return int(n), nil
			}
		}
	case KindFloat:
		if x, ok := asFloat64(raw); ok {
			return x, nil
		}
	case KindDate, KindDateTime:
		if t, err := parseTime(f.Kind, raw); err == nil {
			return t, nil
		}
	case KindString, KindEmail, KindIPAddress, KindNetmask, KindMACAddress, KindURL:
		if n, ok := raw.(json.Number); ok {
			return n.String(), nil
		}
	case KindList, KindDict:
		return plainJSON(raw), nil
	}
	// Values the server sends in an unexpected shape are kept as-is
	return plainJSON(raw), nil
}

func decodeRelationship(kind *Kind, f *Field, cfg *config.ServerConfig, raw any) (any, error) {
	targets, err := kind.registry.targets(f)
	if err != nil {
		return nil, err
	}
	if f.Kind == KindOneToOne {
		if isSlice(raw) {
			return nil, &InvalidFieldValueError{Kind: kind.Name, Field: f.Name, Value: raw, Reason: "expected a single entity or id, got a list"}
		}
		related, err := f.resolveOne(targets, cfg, raw, true)
		if err != nil {
			return nil, withKind(err, kind.Name)
		}
		return related, nil
	}
	if !isSlice(raw) {
		return nil, &InvalidFieldValueError{Kind: kind.Name, Field: f.Name, Value: raw, Reason: "expected a list"}
	}
	items := toSlice(raw)
	out := make([]*Entity, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		related, err := f.resolveOne(targets, cfg, item, true)
		if err != nil {
			return nil, withKind(err, kind.Name)
		}
		out = append(out, related)
	}
	return out, nil
}

// plainJSON converts json.Number leaves to int or float64
func plainJSON(v any) any {
	switch tv := v.(type) {
	case json.Number:
		if n, err := tv.Int64(); err == nil {
			return int(n)
		}
		f, _ := tv.Float64()
		return f
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, item := range tv {
			out[k] = plainJSON(item)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = plainJSON(item)
		}
		return out
	}
	return v
}

// decodeObject reads a JSON object from a response
func decodeObject(resp *Response) (map[string]any, error) {
	var attrs map[string]any
	if err := resp.JSON(&attrs); err != nil {
		where := ""
		if resp.Request != nil {
			where = resp.Request.Method + " " + resp.Request.URL + ": "
		}
		return nil, fmt.Errorf("%sdecoding response: %w", where, err)
	}
	return attrs, nil
}
