package expr

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// FormatValue converts a value to the text an interpolation prints.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float32:
		return strconv.FormatFloat(float64(x), 'g', 10, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', 15, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

// IsTruthy reports whether v counts as true in a condition. nil, false, zero
// numbers and empty strings, slices and maps are false.
func IsTruthy(v any) bool {
	if v == nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	case Range:
		return x.Len() > 0
	}
	if f, ok := ToFloat64(v); ok {
		return f != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// ToFloat64 converts any Go number to float64.
func ToFloat64(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// toInt converts v to int when it holds a whole number.
func toInt(v any) (int, bool) {
	f, ok := ToFloat64(v)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func isInteger(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// ToSlice returns the items a for loop iterates over. Maps yield
// {"key", "value"} entries in key order; strings yield their characters.
func ToSlice(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.([]any); ok {
		return s, nil
	}
	if r, ok := v.(Range); ok {
		out := make([]any, r.Len())
		for i := range out {
			out[i] = r.At(i)
		}
		return out, nil
	}
	if s, ok := v.(string); ok {
		out := make([]any, 0, len(s))
		for _, r := range s {
			out = append(out, string(r))
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = map[string]any{"key": k.Interface(), "value": rv.MapIndex(k).Interface()}
		}
		return out, nil
	}
	return nil, fmt.Errorf("type %T is not iterable", v)
}

// Field reads name from a string-keyed map or an exported struct field.
// Missing fields yield nil.
func Field(obj any, name string) any {
	if obj == nil {
		return nil
	}
	if m, ok := obj.(map[string]any); ok {
		return m[name]
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil
		}
		return val.Interface()
	case reflect.Struct:
		f := rv.FieldByName(name)
		if !f.IsValid() || !f.CanInterface() {
			return nil
		}
		return f.Interface()
	}
	return nil
}

// Index reads obj[idx]. Negative indexes count from the end; out-of-range
// indexes yield nil.
func Index(obj, idx any) (any, error) {
	if obj == nil {
		return nil, nil
	}
	if key, ok := idx.(string); ok {
		return Field(obj, key), nil
	}
	i, ok := toInt(idx)
	if !ok {
		return nil, fmt.Errorf("invalid index type: %T", idx)
	}
	if r, ok := obj.(Range); ok {
		if i < 0 {
			i += r.Len()
		}
		if i < 0 || i >= r.Len() {
			return nil, nil
		}
		return r.At(i), nil
	}
	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		if i < 0 {
			i += rv.Len()
		}
		if i < 0 || i >= rv.Len() {
			return nil, nil
		}
		if rv.Kind() == reflect.String {
			return string(rv.String()[i]), nil
		}
		return rv.Index(i).Interface(), nil
	}
	return nil, fmt.Errorf("cannot index %T", obj)
}

// BinaryOp applies a non-short-circuit binary operator.
func BinaryOp(left any, op string, right any) (any, error) {
	switch op {
	case "+":
		if ls, ok := left.(string); ok {
			return ls + FormatValue(right), nil
		}
		if rs, ok := right.(string); ok {
			return FormatValue(left) + rs, nil
		}
		return arithmetic(left, op, right)
	case "-", "*", "/", "%":
		return arithmetic(left, op, right)
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	case "<", "<=", ">", ">=":
		return compare(left, op, right)
	case "&&", "&":
		return IsTruthy(left) && IsTruthy(right), nil
	case "||", "|":
		return IsTruthy(left) || IsTruthy(right), nil
	}
	return nil, fmt.Errorf("unknown operator: %s", op)
}

func arithmetic(left any, op string, right any) (any, error) {
	lf, lok := ToFloat64(left)
	rf, rok := ToFloat64(right)
	if !lok || !rok {
		return nil, fmt.Errorf("cannot apply %s to %T and %T", op, left, right)
	}
	ints := isInteger(left) && isInteger(right)
	switch op {
	case "+":
		if ints {
			return int(lf) + int(rf), nil
		}
		return lf + rf, nil
	case "-":
		if ints {
			return int(lf) - int(rf), nil
		}
		return lf - rf, nil
	case "*":
		if ints {
			return int(lf) * int(rf), nil
		}
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		if ints && int(lf)%int(rf) == 0 {
			return int(lf) / int(rf), nil
		}
		return lf / rf, nil
	case "%":
		if !ints {
			return nil, fmt.Errorf("modulo requires integers, got %T and %T", left, right)
		}
		if rf == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return int(lf) % int(rf), nil
	}
	return nil, fmt.Errorf("unknown arithmetic operator: %s", op)
}

func equal(left, right any) bool {
	if lf, ok := ToFloat64(left); ok {
		if rf, ok := ToFloat64(right); ok {
			return lf == rf
		}
	}
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	return reflect.DeepEqual(left, right)
}

func compare(left any, op string, right any) (any, error) {
	var c int
	if ls, ok := left.(string); ok {
		rs, ok := right.(string)
		if !ok {
			return nil, fmt.Errorf("cannot compare %T with %T", left, right)
		}
		c = strings.Compare(ls, rs)
	} else {
		lf, lok := ToFloat64(left)
		rf, rok := ToFloat64(right)
		if !lok || !rok {
			return nil, fmt.Errorf("cannot compare %T with %T", left, right)
		}
		switch {
		case lf < rf:
			c = -1
		case lf > rf:
			c = 1
		}
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}
