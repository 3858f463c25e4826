package model

import (
	"reflect"
)

// Wrap exposes v as Fields.
//
// A nil value (including a typed nil pointer) yields nil. Values that already
// implement Fields are returned unchanged. Structs and pointers to structs are
// snapshotted into a Map keyed by exported field name, embedded structs
// contributing their promoted fields. Maps with string keys are copied. Any
// other value yields an empty Map.
func Wrap(v any) Fields {
	if v == nil {
		return nil
	}
	if fields, ok := v.(Fields); ok {
		if isNilPointer(reflect.ValueOf(v)) {
			return nil
		}
		return fields
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		return snapshotStruct(rv)
	case reflect.Map:
		return snapshotMap(rv)
	default:
		return Map{}
	}
}

func snapshotStruct(rv reflect.Value) Map {
	fields := reflect.VisibleFields(rv.Type())
	out := make(Map, len(fields))
	for _, field := range fields {
		if !field.IsExported() || field.Anonymous && isStructLike(field.Type) {
			continue
		}
		value, ok := fieldByIndex(rv, field.Index)
		if !ok {
			continue
		}
		out[field.Name] = value.Interface()
	}
	return out
}

// fieldByIndex walks index without panicking on nil embedded pointers;
// fields behind a nil embedded pointer are unreadable and skipped.
func fieldByIndex(rv reflect.Value, index []int) (reflect.Value, bool) {
	for i, idx := range index {
		if i > 0 {
			if rv.Kind() == reflect.Pointer {
				if rv.IsNil() {
					return reflect.Value{}, false
				}
				rv = rv.Elem()
			}
		}
		rv = rv.Field(idx)
	}
	if !rv.CanInterface() {
		return reflect.Value{}, false
	}
	return rv, true
}

func snapshotMap(rv reflect.Value) Map {
	if rv.Type().Key().Kind() != reflect.String {
		return Map{}
	}
	out := make(Map, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out
}

func isStructLike(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func isNilPointer(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
