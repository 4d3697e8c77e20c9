package forecast

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownField is returned when a selection names a field the object does not expose.
var ErrUnknownField = errors.New("unknown field")

// Field is a named, pure resolver over a source value. Type is set when the
// resolver yields an object (or a list of objects) that is resolved further.
type Field struct {
	Name        string
	Description string
	Type        *Object
	resolve     func(src any) any
}

// Object is a set of fields resolvable against one source type.
type Object struct {
	Name        string
	Description string
	Fields      []Field
	index       map[string]int
}

func newObject(name, description string, fields ...Field) *Object {
	o := &Object{
		Name:        name,
		Description: description,
		Fields:      fields,
		index:       make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if _, dup := o.index[f.Name]; dup {
			panic(fmt.Sprintf("forecast: duplicate field %s.%s", name, f.Name))
		}
		o.index[f.Name] = i
	}
	return o
}

// Field looks up a field by name.
func (o *Object) Field(name string) (Field, bool) {
	i, ok := o.index[name]
	if !ok {
		return Field{}, false
	}
	return o.Fields[i], true
}

// Validate checks sel against the object graph without resolving anything.
func (o *Object) Validate(sel Selection) error {
	for name, child := range sel {
		f, ok := o.Field(name)
		if !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, o.Name, name)
		}
		if len(child) == 0 {
			continue
		}
		if f.Type == nil {
			return fmt.Errorf("%w: %s.%s has no subfields", ErrInvalidSelection, o.Name, name)
		}
		if err := f.Type.Validate(child); err != nil {
			return err
		}
	}
	return nil
}

// Resolve evaluates the selected fields of src. Unselected resolvers never run.
// sel must already have passed Validate; unknown names are skipped.
func (o *Object) Resolve(src any, sel Selection) map[string]any {
	if len(sel) == 0 {
		out := make(map[string]any, len(o.Fields))
		for _, f := range o.Fields {
			out[f.Name] = f.value(src, nil)
		}
		return out
	}
	out := make(map[string]any, len(sel))
	for name, child := range sel {
		f, ok := o.Field(name)
		if !ok {
			continue
		}
		out[name] = f.value(src, child)
	}
	return out
}

func (f Field) value(src any, sel Selection) any {
	v := f.resolve(src)
	if f.Type == nil {
		return scalarValue(v)
	}
	if items, ok := v.([]any); ok {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = f.Type.Resolve(item, sel)
		}
		return out
	}
	return f.Type.Resolve(v, sel)
}

// scalarValue renders NaN as nil so the result stays JSON-encodable.
func scalarValue(v any) any {
	if x, ok := v.(float64); ok && math.IsNaN(x) {
		return nil
	}
	return v
}

func scalar[T any](name, description string, fn func(T) any) Field {
	return Field{
		Name:        name,
		Description: description,
		resolve:     func(src any) any { return fn(src.(T)) },
	}
}

func object[T, C any](name, description string, typ *Object, fn func(T) C) Field {
	return Field{
		Name:        name,
		Description: description,
		Type:        typ,
		resolve:     func(src any) any { return fn(src.(T)) },
	}
}

func objectList[T, C any](name, description string, typ *Object, fn func(T) []C) Field {
	return Field{
		Name:        name,
		Description: description,
		Type:        typ,
		resolve: func(src any) any {
			items := fn(src.(T))
			out := make([]any, len(items))
			for i := range items {
				out[i] = items[i]
			}
			return out
		},
	}
}

// FieldDoc describes one selectable field path.
type FieldDoc struct {
	Path        string
	Description string
}

// Describe lists every selectable dotted path under o, depth first in
// declaration order.
func (o *Object) Describe() []FieldDoc {
	var out []FieldDoc
	var walk func(prefix string, obj *Object)
	walk = func(prefix string, obj *Object) {
		for _, f := range obj.Fields {
			p := f.Name
			if prefix != "" {
				p = prefix + "." + f.Name
			}
			out = append(out, FieldDoc{Path: p, Description: f.Description})
			if f.Type != nil {
				walk(p, f.Type)
			}
		}
	}
	walk("", o)
	return out
}
