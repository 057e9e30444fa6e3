package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/preslavrachev/nailgun/core"
)

// ErrBadAssignment is returned for arguments that are not field=value
var ErrBadAssignment = errors.New("expected field=value")

// parseAssignments turns field=value arguments into entity values. Values
// are converted to the field's type; relationships take ids, comma separated
// for one-to-many fields.
func parseAssignments(kind *core.Kind, args []string) (map[string]any, error) {
	values := make(map[string]any, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%q: %w", arg, ErrBadAssignment)
		}
		f, ok := kind.Field(name)
		if !ok {
			return nil, &core.SchemaError{Kind: kind.Name, Fields: []string{name}, Valid: kind.FieldNames(), Err: core.ErrUnknownField}
		}
		v, err := parseValue(f, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", arg, err)
		}
		values[name] = v
	}
	return values, nil
}

func parseValue(f *core.Field, raw string) (any, error) {
	switch f.Kind {
	case core.KindInteger:
		return strconv.ParseInt(raw, 10, 64)
	case core.KindFloat:
		return strconv.ParseFloat(raw, 64)
	case core.KindBoolean:
		return strconv.ParseBool(raw)
	case core.KindOneToMany:
		if raw == "" {
			return []any{}, nil
		}
		ids := []any{}
		for _, id := range strings.Split(raw, ",") {
			ids = append(ids, strings.TrimSpace(id))
		}
		return ids, nil
	case core.KindList, core.KindDict:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return raw, nil
}

// parseOrder reads "field [asc|desc]"
func parseOrder(order string) (string, core.SortDirection, error) {
	parts := strings.Fields(order)
	if len(parts) == 0 || len(parts) > 2 {
		return "", "", fmt.Errorf("bad order %q: want \"field [asc|desc]\"", order)
	}
	direction := core.SortAsc
	if len(parts) == 2 {
		direction = core.SortDirection(strings.ToLower(parts[1]))
		if !direction.IsValid() {
			return "", "", fmt.Errorf("bad sort direction %q", parts[1])
		}
	}
	return parts[0], direction, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
