package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/preslavrachev/nailgun/config"
)

// Ref names an entity by kind and id. It disambiguates relationships that
// accept more than one kind.
type Ref struct {
	Kind string
	ID   any
}

// Entity is an instance of a kind: a server config plus the values assigned
// so far. A key that is absent is unset; a key holding nil is an explicit null.
type Entity struct {
	kind   *Kind
	cfg    *config.ServerConfig
	values map[string]any
}

// New creates an entity of kind. A nil cfg falls back to Global.
func New(kind *Kind, cfg *config.ServerConfig, values map[string]any) (*Entity, error) {
	if kind == nil {
		return nil, fmt.Errorf("nil kind: %w", ErrUnknownKind)
	}
	if cfg == nil {
		fallback, err := Global.ServerConfig()
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", kind.Name, ErrNoServerConfig, err)
		}
		cfg = fallback
	}
	e := &Entity{kind: kind, cfg: cfg, values: make(map[string]any, len(values))}

	var unknown []string
	for name := range values {
		if _, ok := kind.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &SchemaError{Kind: kind.Name, Fields: unknown, Valid: kind.validFieldNames(), Err: ErrUnknownField}
	}

	for _, name := range kind.FieldNames() {
		value, ok := values[name]
		if !ok {
			continue
		}
		if err := e.Set(name, value); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// MustNew is New that panics on error
func MustNew(kind *Kind, cfg *config.ServerConfig, values map[string]any) *Entity {
	e, err := New(kind, cfg, values)
	if err != nil {
		panic(err)
	}
	return e
}

// newBare builds an entity without validation, for decoded and generated data
func newBare(kind *Kind, cfg *config.ServerConfig, values map[string]any) *Entity {
	if values == nil {
		values = make(map[string]any)
	}
	return &Entity{kind: kind, cfg: cfg, values: values}
}

func (e *Entity) Kind() *Kind { return e.kind }
func (e *Entity) ServerConfig() *config.ServerConfig { return e.cfg }

// Fields returns copies of the kind's field descriptors
func (e *Entity) Fields() []Field {
	return e.kind.Fields()
}

// Values returns a shallow copy of the assigned values
func (e *Entity) Values() map[string]any {
	return maps.Clone(e.values)
}

// Get returns the value of a field and whether it is assigned
func (e *Entity) Get(name string) (any, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Related returns a one-to-one value, or nil
func (e *Entity) Related(name string) *Entity {
	related, _ := e.values[name].(*Entity)
	return related
}

// RelatedList returns a one-to-many value
func (e *Entity) RelatedList(name string) []*Entity {
	related, _ := e.values[name].([]*Entity)
	return related
}

// Set assigns a value, validating its shape. Relationship values are
// resolved to entities.
func (e *Entity) Set(name string, value any) error {
	f, ok := e.kind.Field(name)
	if !ok {
		return &SchemaError{Kind: e.kind.Name, Fields: []string{name}, Valid: e.kind.validFieldNames(), Err: ErrUnknownField}
	}
	if f.IsRelationship() {
		resolved, err := f.Resolve(e.kind.registry, e.cfg, value)
		if err != nil {
			return withKind(err, e.kind.Name)
		}
		e.values[name] = resolved
		return nil
	}
	canonical, err := f.checkType(value)
	if err != nil {
		return &InvalidFieldValueError{Kind: e.kind.Name, Field: name, Value: value, Reason: err.Error()}
	}
	e.values[name] = canonical
	return nil
}

// Unset removes a value. This differs from Set(name, nil), which sends null.
func (e *Entity) Unset(name string) error {
	if _, ok := e.kind.Field(name); !ok {
		return &SchemaError{Kind: e.kind.Name, Fields: []string{name}, Valid: e.kind.validFieldNames(), Err: ErrUnknownField}
	}
	delete(e.values, name)
	return nil
}

// ID returns the id value, or nil
func (e *Entity) ID() any {
	return e.values["id"]
}

// HasID reports whether a non-nil id is assigned
func (e *Entity) HasID() bool {
	return e.values["id"] != nil
}

// IDString formats the id for use in paths
func (e *Entity) IDString() string {
	switch id := e.ID().(type) {
	case nil:
		return ""
	case string:
		return id
	default:
		if n, ok := asInt64(id); ok {
			return strconv.FormatInt(n, 10)
		}
		return fmt.Sprint(id)
	}
}

// Path returns a URL for the entity. which is "" (instance if the id is set,
// else collection), "base", "self", or the name of a declared sub-path.
func (e *Entity) Path(which string) (string, error) {
	if sp, rest, ok := e.kind.lookupSubPath(which); ok {
		var prefix string
		var err error
		if sp.Scope == ScopeSelf {
			prefix, err = e.selfPath()
		} else {
			prefix, err = e.basePath()
		}
		if err != nil {
			return "", err
		}
		return joinPath(prefix, sp.Segment, rest), nil
	}

	switch which {
	case "":
		if e.HasID() || e.kind.SelfOnly {
			return e.selfPath()
		}
		return e.basePath()
	case "self":
		return e.selfPath()
	case "base":
		if e.kind.SelfOnly {
			return e.selfPath()
		}
		return e.basePath()
	}
	if e.kind.SelfOnly {
		return e.selfPath()
	}
	return "", fmt.Errorf("%s: %q: %w", e.kind.Name, which, ErrNoSuchPath)
}

func (e *Entity) basePath() (string, error) {
	if e.kind.parent != nil {
		parent := e.Related(e.kind.parent.field)
		if parent == nil {
			return "", fmt.Errorf("%s: %s must be set to build a path: %w", e.kind.Name, e.kind.parent.field, ErrNoSuchPath)
		}
		parentPath, err := parent.selfPath()
		if err != nil {
			return "", err
		}
		return joinPath(parentPath, e.kind.parent.segment), nil
	}
	if e.cfg == nil {
		return "", ErrNoServerConfig
	}
	return joinPath(e.cfg.URL, e.kind.APIPath), nil
}

func (e *Entity) selfPath() (string, error) {
	if !e.HasID() {
		return "", fmt.Errorf("%s: %w: %w", e.kind.Name, ErrMissingID, ErrNoSuchPath)
	}
	base, err := e.basePath()
	if err != nil {
		return "", err
	}
	return joinPath(base, e.IDString()), nil
}

// lookupSubPath finds a sub-path by exact name or by a "prefix/*" pattern
func (k *Kind) lookupSubPath(which string) (SubPath, string, bool) {
	if which == "" {
		return SubPath{}, "", false
	}
	if sp, ok := k.subPaths[which]; ok {
		return sp, "", true
	}
	for name, sp := range k.subPaths {
		prefix, ok := strings.CutSuffix(name, "*")
		if ok && strings.HasPrefix(which, prefix) {
			return SubPath{Name: which, Segment: strings.TrimSuffix(sp.Segment, "*"), Scope: sp.Scope}, strings.TrimPrefix(which, prefix), true
		}
	}
	return SubPath{}, "", false
}

func joinPath(parts ...string) string {
	out := strings.TrimRight(parts[0], "/")
	for _, p := range parts[1:] {
		p = strings.Trim(p, "/")
		if p != "" {
			out += "/" + p
		}
	}
	return out
}

// Clone copies the entity. Related entities are shared, lists are copied.
func (e *Entity) Clone() *Entity {
	values := make(map[string]any, len(e.values))
	for k, v := range e.values {
		switch tv := v.(type) {
		case []*Entity:
			values[k] = append([]*Entity(nil), tv...)
		case []any:
			values[k] = append([]any(nil), tv...)
		default:
			values[k] = v
		}
	}
	return &Entity{kind: e.kind, cfg: e.cfg, values: values}
}

// FieldFilter selects fields for ToJSONMap and Compare
type FieldFilter func(name string, f *Field) bool

// ToJSONMap renders assigned values as plain JSON-friendly data. Related
// entities are rendered recursively.
func (e *Entity) ToJSONMap(filter FieldFilter) map[string]any {
	out := make(map[string]any, len(e.values))
	for _, f := range e.kind.fields {
		v, ok := e.values[f.Name]
		if !ok || (filter != nil && !filter(f.Name, f)) {
			continue
		}
		out[f.Name] = jsonValue(f.Kind, v, filter)
	}
	return out
}

func jsonValue(kind FieldKind, v any, filter FieldFilter) any {
	switch tv := v.(type) {
	case nil:
		return nil
	case *Entity:
		return tv.ToJSONMap(filter)
	case []*Entity:
		items := make([]any, len(tv))
		for i, item := range tv {
			items[i] = item.ToJSONMap(filter)
		}
		return items
	case time.Time:
		return formatTime(kind, tv)
	case json.Number:
		if n, err := tv.Int64(); err == nil {
			return n
		}
		f, _ := tv.Float64()
		return f
	}
	return v
}

// ToJSON renders the entity as a JSON object
func (e *Entity) ToJSON() ([]byte, error) {
	return json.Marshal(e.ToJSONMap(nil))
}

// MarshalJSON implements json.Marshaler
func (e *Entity) MarshalJSON() ([]byte, error) {
	return e.ToJSON()
}

// Equal reports whether both entities are of the same kind with equal values
func (e *Entity) Equal(other *Entity) bool {
	if other == nil || e.kind != other.kind {
		return false
	}
	return reflect.DeepEqual(normalizeJSON(e.ToJSONMap(nil)), normalizeJSON(other.ToJSONMap(nil)))
}

// Compare is Equal restricted to the fields accepted by filter. A nil
// filter skips unique fields.
func (e *Entity) Compare(other *Entity, filter FieldFilter) bool {
	if other == nil || e.kind != other.kind {
		return false
	}
	if filter == nil {
		filter = func(_ string, f *Field) bool { return !f.Unique }
	}
	return reflect.DeepEqual(normalizeJSON(e.ToJSONMap(filter)), normalizeJSON(other.ToJSONMap(filter)))
}

// normalizeJSON makes int and int64 values compare equal
func normalizeJSON(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, item := range tv {
			out[k] = normalizeJSON(item)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = normalizeJSON(item)
		}
		return out
	}
	if n, ok := asInt64(v); ok {
		if _, isFloat := v.(float64); !isFloat {
			return n
		}
	}
	return v
}

func (e *Entity) String() string {
	names := make([]string, 0, len(e.values))
	for name := range e.values {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		v := e.values[name]
		switch tv := v.(type) {
		case *Entity:
			v = fmt.Sprintf("%s(id=%v)", tv.kind.Name, tv.ID())
		case []*Entity:
			ids := make([]any, len(tv))
			for i, item := range tv {
				ids[i] = item.ID()
			}
			v = ids
		case time.Time:
			f, _ := e.kind.Field(name)
			v = formatTime(f.Kind, tv)
		}
		parts = append(parts, fmt.Sprintf("%s=%v", name, v))
	}
	return fmt.Sprintf("%s(%s)", e.kind.Name, strings.Join(parts, ", "))
}

// Resolve canonicalises a relationship value into *Entity (one-to-one) or
// []*Entity (one-to-many). Accepted inputs are ids, entities, Refs, and maps
// with an id.
func (f *Field) Resolve(reg *Registry, cfg *config.ServerConfig, raw any) (any, error) {
	if !f.IsRelationship() {
		return nil, fmt.Errorf("%s is not a relationship", f.Name)
	}
	if reg == nil {
		return nil, fmt.Errorf("%s: no registry: %w", f.Name, ErrUnknownKind)
	}
	targets, err := reg.targets(f)
	if err != nil {
		return nil, err
	}

	if f.Kind == KindOneToOne {
		if raw == nil {
			return nil, nil
		}
		if isSlice(raw) {
			return nil, f.invalid(raw, "expected a single entity or id, got a list")
		}
		return f.resolveOne(targets, cfg, raw, false)
	}

	if raw == nil {
		return nil, nil
	}
	if typed, ok := raw.([]*Entity); ok {
		raw = toSlice(typed)
	}
	if !isSlice(raw) {
		return nil, f.invalid(raw, "expected a list of entities or ids")
	}
	items := toSlice(raw)
	out := make([]*Entity, 0, len(items))
	for _, item := range items {
		if item == nil {
			return nil, f.invalid(raw, "list contains null")
		}
		resolved, err := f.resolveOne(targets, cfg, item, false)
		if err != nil {
			return nil, err
		}
		if resolved == nil {
			return nil, f.invalid(raw, "list contains null")
		}
		out = append(out, resolved)
	}
	return out, nil
}

// resolveOne turns one relationship value into an entity. lenient picks the
// first target kind for bare ids instead of failing; decoding uses it because
// servers send bare ids for polymorphic references.
func (f *Field) resolveOne(targets []*Kind, cfg *config.ServerConfig, raw any, lenient bool) (*Entity, error) {
	switch v := raw.(type) {
	case *Entity:
		if v == nil {
			return nil, nil
		}
		if !containsKind(targets, v.kind) {
			return nil, f.invalid(raw, fmt.Sprintf("entity of kind %s is not one of %v", v.kind.Name, f.Targets))
		}
		return v, nil
	case Ref:
		target, err := pickKind(targets, v.Kind)
		if err != nil {
			return nil, f.invalid(raw, err.Error())
		}
		id, err := canonicalID(target, v.ID)
		if err != nil {
			return nil, f.invalid(raw, err.Error())
		}
		return newBare(target, cfg, map[string]any{"id": id}), nil
	case map[string]any:
		target := targets[0]
		if tag, ok := v["type"].(string); ok && len(targets) > 1 {
			picked, err := pickKind(targets, tag)
			if err != nil {
				return nil, f.invalid(raw, err.Error())
			}
			target = picked
		} else if len(targets) > 1 && !lenient {
			return nil, f.invalid(raw, fmt.Sprintf("ambiguous: may be any of %v; add a \"type\" key or use core.Ref", f.Targets))
		}
		return decodeInto(target, cfg, v, DecodeOptions{})
	}

	if len(targets) > 1 && !lenient {
		return nil, f.invalid(raw, fmt.Sprintf("ambiguous id: may be any of %v; use core.Ref", f.Targets))
	}
	id, err := canonicalID(targets[0], raw)
	if err != nil {
		return nil, f.invalid(raw, err.Error())
	}
	return newBare(targets[0], cfg, map[string]any{"id": id}), nil
}

// canonicalID normalises an id to int, or string for kinds with string ids
func canonicalID(kind *Kind, raw any) (any, error) {
	idField, _ := kind.Field("id")
	if s, ok := raw.(string); ok {
		if idField.Kind == KindString {
			return s, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an id of %s", s, kind.Name)
		}
		return int(n), nil
	}
	if n, ok := asInt64(raw); ok {
		if idField.Kind == KindString {
			return strconv.FormatInt(n, 10), nil
		}
		return int(n), nil
	}
	return nil, fmt.Errorf("%T is not an id, entity, Ref or map", raw)
}

func pickKind(targets []*Kind, name string) (*Kind, error) {
	for _, k := range targets {
		if k.Name == name || k.WrapperKey == name || strings.EqualFold(k.Name, name) {
			return k, nil
		}
	}
	names := make([]string, len(targets))
	for i, k := range targets {
		names[i] = k.Name
	}
	return nil, fmt.Errorf("kind %q is not one of %v", name, names)
}

func containsKind(kinds []*Kind, kind *Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// withKind fills in the kind name of a field error raised below the entity
func withKind(err error, kind string) error {
	var ife *InvalidFieldValueError
	if errors.As(err, &ife) && ife.Kind == "" {
		ife.Kind = kind
	}
	return err
}
