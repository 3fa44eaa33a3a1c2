package servicedef

import (
	"fmt"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// EntityDescriptor is an entity as declared by a test: the attributes used both to create it and
// to recognize an equivalent entity that already exists. Ref is the test-local identifier that
// the entity is known by in feature tables; it never reaches the service.
type EntityDescriptor struct {
	Ref         string
	Title       string
	Description string
	Flags       map[string]bool
}

// Flag returns the declared value of a boolean field, or the kind's default if it was not declared.
func (d EntityDescriptor) Flag(kind Kind, name string) bool {
	if v, ok := d.Flags[name]; ok {
		return v
	}
	for _, f := range kind.BoolFields() {
		if f.Name == name {
			return f.Default
		}
	}
	return false
}

// Body is the JSON creation body for this descriptor.
func (d EntityDescriptor) Body(kind Kind) ldvalue.Value {
	b := ldvalue.ObjectBuild().
		Set(FieldTitle, ldvalue.String(d.Title)).
		Set(FieldDescription, ldvalue.String(d.Description))
	for _, f := range kind.BoolFields() {
		b.Set(f.Name, ldvalue.Bool(d.Flag(kind, f.Name)))
	}
	return b.Build()
}

// Matches reports whether an entity returned by the service has exactly the declared title and
// description, and the same value for every boolean field of the kind.
func (d EntityDescriptor) Matches(kind Kind, entity ldvalue.Value) bool {
	if FieldValue(entity, FieldTitle) != d.Title || FieldValue(entity, FieldDescription) != d.Description {
		return false
	}
	for _, f := range kind.BoolFields() {
		if !BoolMatches(entity.GetByKey(f.Name), d.Flag(kind, f.Name)) {
			return false
		}
	}
	return true
}

// DescriptorFromRow builds a descriptor from a table row keyed by column name. Text cells may be
// wrapped in double quotes. Columns other than id, title and description must be booleans of
// the kind.
func DescriptorFromRow(kind Kind, row map[string]string) (EntityDescriptor, error) {
	d := EntityDescriptor{Flags: make(map[string]bool)}
	for column, cell := range row {
		switch column {
		case FieldID:
			d.Ref = strings.TrimSpace(cell)
		case FieldTitle:
			d.Title = Unquote(cell)
		case FieldDescription:
			d.Description = Unquote(cell)
		default:
			if !kind.IsBoolField(column) {
				return EntityDescriptor{}, fmt.Errorf("column %q is not a field of %s", column, kind)
			}
			b, err := ParseBool(cell)
			if err != nil {
				return EntityDescriptor{}, fmt.Errorf("column %q: %w", column, err)
			}
			d.Flags[column] = b
		}
	}
	return d, nil
}

// Unquote trims whitespace and any surrounding double quotes from a table cell.
func Unquote(cell string) string {
	return strings.Trim(strings.TrimSpace(cell), `"`)
}

// ParseBool accepts "true" and "false" in any letter case.
func ParseBool(cell string) (bool, error) {
	switch strings.ToLower(Unquote(cell)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", cell)
}
