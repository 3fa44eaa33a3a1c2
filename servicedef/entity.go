package servicedef

import (
	"strconv"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Scalar renders a JSON value the way the service's string-typed fields compare: strings as
// themselves, booleans and numbers in their JSON form, null as "".
func Scalar(v ldvalue.Value) string {
	switch v.Type() {
	case ldvalue.StringType:
		return v.StringValue()
	case ldvalue.BoolType:
		return strconv.FormatBool(v.BoolValue())
	case ldvalue.NumberType:
		if v.IsInt() {
			return strconv.Itoa(v.IntValue())
		}
		return strconv.FormatFloat(v.Float64Value(), 'f', -1, 64)
	case ldvalue.NullType:
		return ""
	default:
		return v.JSONString()
	}
}

// EntityID returns the "id" field of an entity as a string, or "" if there is none.
func EntityID(entity ldvalue.Value) string {
	return Scalar(entity.GetByKey(FieldID))
}

// FieldValue returns a field of an entity as a string.
func FieldValue(entity ldvalue.Value, name string) string {
	return Scalar(entity.GetByKey(name))
}

// BoolMatches compares a boolean field case-insensitively, so that "False", "false" and false
// are all equal.
func BoolMatches(v ldvalue.Value, want bool) bool {
	return strings.EqualFold(Scalar(v), strconv.FormatBool(want))
}

// IsScalar is true for values that can be sent back to the service as an attribute.
func IsScalar(v ldvalue.Value) bool {
	switch v.Type() {
	case ldvalue.StringType, ldvalue.BoolType, ldvalue.NumberType:
		return true
	}
	return false
}

// RestoreBody builds a creation body from a previously listed entity: every scalar attribute
// except the id. Boolean fields come back from the service as strings and are converted to JSON
// booleans. Relationship arrays are dropped.
func RestoreBody(kind Kind, entity ldvalue.Value) ldvalue.Value {
	b := ldvalue.ObjectBuild()
	for _, key := range entity.Keys() {
		if key == FieldID {
			continue
		}
		v := entity.GetByKey(key)
		if !IsScalar(v) {
			continue
		}
		if kind.IsBoolField(key) {
			b.Set(key, ldvalue.Bool(strings.EqualFold(Scalar(v), "true")))
			continue
		}
		b.Set(key, v)
	}
	return b.Build()
}
