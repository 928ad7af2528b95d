package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// floatPrecision is the number of decimal places kept in rendered floats.
const floatPrecision = 6

// DeterministicEncode marshals v to compact JSON with sorted object
// keys, floats rounded to 6 decimal places, and nil or empty fields
// omitted. Equal values encode to equal bytes.
func DeterministicEncode(v interface{}) ([]byte, error) {
	return encode(v, "")
}

// DeterministicEncodeIndented is DeterministicEncode with one level of
// indentation per nesting depth.
func DeterministicEncodeIndented(v interface{}, indent string) ([]byte, error) {
	return encode(v, indent)
}

func encode(v interface{}, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(normalize(v)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// normalize converts v into a tree of maps, slices, and scalars that
// both the JSON and YAML encoders render with sorted keys. Struct
// fields take their names from json tags, so every format shows the
// same keys. Nil values and empty collections collapse to nil and are
// dropped from their containers.
func normalize(v interface{}) interface{} {
	return normalizeValue(reflect.ValueOf(v))
}

func normalizeValue(rv reflect.Value) interface{} {
	switch rv.Kind() {
	case reflect.Invalid:
		return nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return normalizeValue(rv.Elem())
	case reflect.Map:
		return normalizeMap(rv)
	case reflect.Slice, reflect.Array:
		return normalizeSlice(rv)
	case reflect.Struct:
		return normalizeStruct(rv)
	case reflect.Float32, reflect.Float64:
		return RoundFloat(rv.Float())
	default:
		if !rv.CanInterface() {
			return nil
		}
		return rv.Interface()
	}
}

func normalizeMap(rv reflect.Value) interface{} {
	if rv.IsNil() || rv.Len() == 0 {
		return nil
	}
	out := make(map[string]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key()
		name := ""
		if key.Kind() == reflect.String {
			name = key.String()
		} else {
			name = fmt.Sprint(key.Interface())
		}
		if norm := normalizeValue(iter.Value()); norm != nil {
			out[name] = norm
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeSlice(rv reflect.Value) interface{} {
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return nil
	}
	if rv.Len() == 0 {
		return nil
	}
	out := make([]interface{}, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, normalizeValue(rv.Index(i)))
	}
	return out
}

func normalizeStruct(rv reflect.Value) interface{} {
	rt := rv.Type()
	out := make(map[string]interface{}, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if field.PkgPath != "" {
			continue
		}
		name, omitempty := jsonName(field)
		if name == "-" {
			continue
		}
		fv := rv.Field(i)
		if omitempty && fv.IsZero() {
			continue
		}
		if norm := normalizeValue(fv); norm != nil {
			out[name] = norm
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// jsonName resolves a struct field's output key and omitempty option
// from its json tag.
func jsonName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name, false
	}
	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" {
		name = field.Name
	}
	omitempty := false
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty
}

// RoundFloat rounds f to 6 decimal places. NaN and infinities become 0
// because neither JSON nor the snapshot diff can carry them.
func RoundFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	pow := math.Pow(10, floatPrecision)
	return math.Round(f*pow) / pow
}
