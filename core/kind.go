package core

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/preslavrachev/nailgun/config"
)

// Operation is a bit set of the CRUD operations a kind supports
type Operation uint8

const (
	OpCreate Operation = 1 << iota
	OpRead
	OpUpdate
	OpDelete
	OpSearch

	OpAll = OpCreate | OpRead | OpUpdate | OpDelete | OpSearch
)

func (o Operation) String() string {
	names := []string{}
	for i, name := range []string{"create", "read", "update", "delete", "search"} {
		if o&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}

// PathScope tells whether a sub-path hangs off the collection or an instance
type PathScope int

const (
	ScopeBase PathScope = iota
	ScopeSelf
)

// SubPath is a named path below a kind's collection or instance path
type SubPath struct {
	Name    string    `json:"name"`
	Segment string    `json:"segment"`
	Scope   PathScope `json:"scope"`
}

type versionedIgnore struct {
	before *version.Version
	fields []string
}

type parentPath struct {
	field   string
	segment string
}

// Kind is the schema of an entity type: its fields, API location and the
// operations the server supports for it.
type Kind struct {
	Name         string `json:"name"`
	APIPath      string `json:"api_path"`
	WrapperKey   string `json:"wrapper_key"`
	Flat         bool   `json:"flat"`
	UpdateMethod string `json:"update_method"`
	SelfOnly     bool   `json:"self_only"`
	AsyncDelete  bool   `json:"async_delete"`

	fields     []*Field
	fieldIndex map[string]int
	ops        Operation
	subPaths   map[string]SubPath
	actions    []CustomAction
	readIgnore []string
	readAlias  map[string]string
	versioned  []versionedIgnore
	parent     *parentPath
	registry   *Registry
}

func newKind(name string) *Kind {
	k := &Kind{
		Name:         name,
		APIPath:      "api/v2/" + generateTableName(name),
		WrapperKey:   generateWrapperKey(name),
		UpdateMethod: http.MethodPut,
		fieldIndex:   make(map[string]int),
		ops:          OpAll,
		subPaths:     make(map[string]SubPath),
	}
	k.addField(IntegerField().Build(), "id")
	return k
}

func (k *Kind) addField(f *Field, name string) {
	f.Name = name
	if i, ok := k.fieldIndex[name]; ok {
		k.fields[i] = f
		return
	}
	k.fieldIndex[name] = len(k.fields)
	k.fields = append(k.fields, f)
}

// Fields returns copies of the field descriptors in declaration order
func (k *Kind) Fields() []Field {
	out := make([]Field, len(k.fields))
	for i, f := range k.fields {
		out[i] = *f
	}
	return out
}

// FieldNames returns the field names in declaration order
func (k *Kind) FieldNames() []string {
	names := make([]string, len(k.fields))
	for i, f := range k.fields {
		names[i] = f.Name
	}
	return names
}

// Field looks a field up by name
func (k *Kind) Field(name string) (*Field, bool) {
	i, ok := k.fieldIndex[name]
	if !ok {
		return nil, false
	}
	return k.fields[i], true
}

// Supports reports whether the kind declares all of the given operations
func (k *Kind) Supports(op Operation) bool {
	return k.ops&op == op
}

// Actions returns the custom actions declared for the kind
func (k *Kind) Actions() []CustomAction {
	return append([]CustomAction(nil), k.actions...)
}

// Action looks a custom action up by id
func (k *Kind) Action(id string) (CustomAction, bool) {
	for _, a := range k.actions {
		if a.ID == id {
			return a, true
		}
	}
	return CustomAction{}, false
}

// SubPaths returns the named sub-paths of the kind
func (k *Kind) SubPaths() []SubPath {
	out := make([]SubPath, 0, len(k.subPaths))
	for _, sp := range k.subPaths {
		out = append(out, sp)
	}
	return out
}

// Registry returns the registry the kind was declared in
func (k *Kind) Registry() *Registry {
	return k.registry
}

// ParentField names the relationship that scopes a nested kind, if any
func (k *Kind) ParentField() string {
	if k.parent == nil {
		return ""
	}
	return k.parent.field
}

// ParentSegment is the path segment a nested kind uses below its parent
func (k *Kind) ParentSegment() string {
	if k.parent == nil {
		return ""
	}
	return k.parent.segment
}

// ReadIgnore returns the fields skipped when reading, for the given server
func (k *Kind) ReadIgnore(cfg *config.ServerConfig) []string {
	ignore := append([]string(nil), k.readIgnore...)
	for _, vi := range k.versioned {
		if cfg != nil && cfg.Version != nil && cfg.Version.LessThan(vi.before) {
			ignore = append(ignore, vi.fields...)
		}
	}
	return ignore
}

func (k *Kind) validFieldNames() []string {
	return k.FieldNames()
}

func (k *Kind) requireOp(op Operation) error {
	if !k.Supports(op) {
		return fmt.Errorf("%s: %s: %w", k.Name, op, ErrOperationNotSupported)
	}
	return nil
}

// KindBuilder provides fluent API for kind declaration
type KindBuilder struct {
	registry *Registry
	kind     *Kind
}

// Kind returns the kind being declared
func (kb *KindBuilder) Kind() *Kind {
	return kb.kind
}

// WithAPIPath sets the collection path relative to the server root
func (kb *KindBuilder) WithAPIPath(path string) *KindBuilder {
	kb.kind.APIPath = strings.Trim(path, "/")
	return kb
}

// WithWrapperKey sets the key payloads are nested under
func (kb *KindBuilder) WithWrapperKey(key string) *KindBuilder {
	kb.kind.WrapperKey = key
	return kb
}

// Flat sends payloads without a wrapper key
func (kb *KindBuilder) Flat() *KindBuilder {
	kb.kind.Flat = true
	return kb
}

// WithField declares a field
func (kb *KindBuilder) WithField(name string, fb *FieldBuilder) *KindBuilder {
	kb.kind.addField(fb.Build(), name)
	return kb
}

// WithOperations restricts the supported operations
func (kb *KindBuilder) WithOperations(ops Operation) *KindBuilder {
	kb.kind.ops = ops
	return kb
}

// WithPatch makes updates use PATCH instead of PUT
func (kb *KindBuilder) WithPatch() *KindBuilder {
	kb.kind.UpdateMethod = http.MethodPatch
	return kb
}

// WithSubPath declares a named sub-path
func (kb *KindBuilder) WithSubPath(name, segment string, scope PathScope) *KindBuilder {
	kb.kind.subPaths[name] = SubPath{Name: name, Segment: strings.Trim(segment, "/"), Scope: scope}
	return kb
}

// WithAction declares a custom action. Its path is registered as a self-scoped
// sub-path unless one with the same name exists.
func (kb *KindBuilder) WithAction(action CustomAction) *KindBuilder {
	if action.Path == "" {
		action.Path = action.ID
	}
	if action.Method == "" {
		action.Method = http.MethodPut
	}
	if _, ok := kb.kind.subPaths[action.Path]; !ok {
		kb.WithSubPath(action.Path, action.Path, ScopeSelf)
	}
	kb.kind.actions = append(kb.kind.actions, action)
	return kb
}

// WithReadIgnore skips fields when reading from the server
func (kb *KindBuilder) WithReadIgnore(fields ...string) *KindBuilder {
	kb.kind.readIgnore = append(kb.kind.readIgnore, fields...)
	return kb
}

// WithReadAlias reads field from the server key serverKey, for fields the
// server names differently in its answers
func (kb *KindBuilder) WithReadAlias(serverKey, field string) *KindBuilder {
	if kb.kind.readAlias == nil {
		kb.kind.readAlias = make(map[string]string)
	}
	kb.kind.readAlias[serverKey] = field
	return kb
}

// WithReadIgnoreBefore skips fields when the server is older than v
func (kb *KindBuilder) WithReadIgnoreBefore(v string, fields ...string) *KindBuilder {
	kb.kind.versioned = append(kb.kind.versioned, versionedIgnore{
		before: version.Must(version.NewVersion(v)),
		fields: fields,
	})
	return kb
}

// NestedUnder scopes the kind below the instance path of the entity held in
// field, e.g. /api/v2/hosts/:host_id/interfaces.
func (kb *KindBuilder) NestedUnder(field, segment string) *KindBuilder {
	kb.kind.parent = &parentPath{field: field, segment: strings.Trim(segment, "/")}
	return kb
}

// SelfOnly makes every path resolve to the instance path. Used by kinds the
// server does not list.
func (kb *KindBuilder) SelfOnly() *KindBuilder {
	kb.kind.SelfOnly = true
	return kb
}

// WithAsyncDelete marks deletes as answered with 202 and a task
func (kb *KindBuilder) WithAsyncDelete() *KindBuilder {
	kb.kind.AsyncDelete = true
	return kb
}
