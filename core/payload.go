package core

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// CreatePayload builds the body of a create request. Unset fields are
// omitted, relationships become <field>_id and <field>_ids, and the result is
// nested under the wrapper key unless the kind is flat.
func CreatePayload(e *Entity) map[string]any {
	return wrap(e.kind, fieldsPayload(e, nil))
}

// UpdatePayload builds the body of an update request. With no names every
// assigned field is sent; otherwise only the named ones, which must be
// assigned.
func UpdatePayload(e *Entity, names ...string) (map[string]any, error) {
	if len(names) == 0 {
		return wrap(e.kind, fieldsPayload(e, nil)), nil
	}
	if err := checkAssigned(e, names); err != nil {
		return nil, err
	}
	return wrap(e.kind, fieldsPayload(e, names)), nil
}

// SearchPayload builds search parameters. A nil names uses every assigned
// field; query is merged last and wins over field values.
func SearchPayload(e *Entity, names []string, query map[string]any) (map[string]any, error) {
	var payload map[string]any
	if names == nil {
		payload = fieldsPayload(e, nil)
	} else {
		if err := checkAssigned(e, names); err != nil {
			return nil, err
		}
		payload = fieldsPayload(e, names)
	}
	for k, v := range query {
		payload[k] = v
	}
	return payload, nil
}

func checkAssigned(e *Entity, names []string) error {
	var unknown, missing []string
	for _, name := range names {
		if _, ok := e.kind.Field(name); !ok {
			unknown = append(unknown, name)
			continue
		}
		if _, ok := e.values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(unknown) > 0 {
		return &SchemaError{Kind: e.kind.Name, Fields: unknown, Valid: e.kind.validFieldNames(), Err: ErrUnknownField}
	}
	if len(missing) > 0 {
		return &SchemaError{Kind: e.kind.Name, Fields: missing, Err: ErrMissingValue}
	}
	return nil
}

// fieldsPayload converts assigned values to their wire form. names == nil
// selects every assigned field.
func fieldsPayload(e *Entity, names []string) map[string]any {
	selected := names
	if selected == nil {
		selected = e.kind.FieldNames()
	}
	payload := make(map[string]any, len(selected))
	for _, name := range selected {
		value, ok := e.values[name]
		if !ok {
			continue
		}
		f, _ := e.kind.Field(name)
		switch f.Kind {
		case KindOneToOne:
			if related, ok := value.(*Entity); ok && related != nil {
				payload[name+"_id"] = related.ID()
			} else {
				payload[name+"_id"] = nil
			}
		case KindOneToMany:
			if value == nil {
				payload[name+"_ids"] = nil
				continue
			}
			related, _ := value.([]*Entity)
			ids := make([]any, len(related))
			for i, r := range related {
				ids[i] = r.ID()
			}
			payload[name+"_ids"] = ids
		case KindList:
			payload[name] = listPayload(value)
		default:
			payload[name] = scalarPayload(f.Kind, value)
		}
	}
	return payload
}

func listPayload(value any) any {
	if value == nil || !isSlice(value) {
		return value
	}
	items := toSlice(value)
	out := make([]any, len(items))
	for i, item := range items {
		if related, ok := item.(*Entity); ok {
			out[i] = fieldsPayload(related, nil)
		} else {
			out[i] = item
		}
	}
	return out
}

func scalarPayload(kind FieldKind, value any) any {
	if t, ok := value.(time.Time); ok {
		return formatTime(kind, t)
	}
	return value
}

func wrap(kind *Kind, payload map[string]any) map[string]any {
	if kind.Flat {
		return payload
	}
	return map[string]any{kind.WrapperKey: payload}
}

// EncodeParams renders a payload as URL query parameters. Lists become
// repeated key[] parameters; keys are emitted in sorted order.
func EncodeParams(payload map[string]any) url.Values {
	params := url.Values{}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := payload[k]
		if isSlice(v) {
			for _, item := range toSlice(v) {
				params.Add(k+"[]", paramString(item))
			}
			continue
		}
		params.Set(k, paramString(v))
	}
	return params
}

func paramString(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case string:
		return tv
	case bool:
		return strconv.FormatBool(tv)
	case time.Time:
		return tv.Format(DateTimeLayout)
	case *Entity:
		return tv.IDString()
	}
	if n, ok := asInt64(v); ok {
		return strconv.FormatInt(n, 10)
	}
	return fmt.Sprint(v)
}
