package apiclient

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Unwrap normalizes the shapes in which the service returns entities: a bare JSON array, an
// envelope object such as {"todos": [...]}, or a single entity object. Anything else is an
// empty list.
func Unwrap(v ldvalue.Value, key string) []ldvalue.Value {
	switch v.Type() {
	case ldvalue.ArrayType:
		return arrayItems(v)
	case ldvalue.ObjectType:
		if inner := v.GetByKey(key); inner.Type() == ldvalue.ArrayType {
			return arrayItems(inner)
		}
		if !v.GetByKey("id").IsNull() {
			return []ldvalue.Value{v}
		}
	}
	return nil
}

func arrayItems(v ldvalue.Value) []ldvalue.Value {
	ret := make([]ldvalue.Value, 0, v.Count())
	for i := 0; i < v.Count(); i++ {
		ret = append(ret, v.GetByIndex(i))
	}
	return ret
}

// FindByID returns the entity whose "id" field equals id.
func FindByID(entities []ldvalue.Value, id string) (ldvalue.Value, bool) {
	for _, e := range entities {
		if idString(e.GetByKey("id")) == id {
			return e, true
		}
	}
	return ldvalue.Null(), false
}

// IDs returns the "id" field of every entity.
func IDs(entities []ldvalue.Value) []string {
	ret := make([]string, 0, len(entities))
	for _, e := range entities {
		if id := idString(e.GetByKey("id")); id != "" {
			ret = append(ret, id)
		}
	}
	return ret
}

func idString(v ldvalue.Value) string {
	switch v.Type() {
	case ldvalue.StringType:
		return v.StringValue()
	case ldvalue.NumberType:
		return v.JSONString()
	}
	return ""
}
