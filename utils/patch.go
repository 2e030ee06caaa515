package utils

import (
	"reflect"
	"strconv"
	"strings"
)

// ChangedColumns maps every non-nil pointer field of a patch struct to its
// column name. The column comes from a `column` tag, else from the json tag
// name. Fields tagged `column:"-"` are skipped.
func ChangedColumns(patch any) map[string]any {
	res := make(map[string]any)
	v := reflect.ValueOf(patch)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return res
	}
	s := v.Elem()
	t := s.Type()
	for i := 0; i < t.NumField(); i++ {
		fv := s.Field(i)
		if fv.Kind() != reflect.Ptr || fv.IsNil() {
			continue
		}
		if name := columnName(t.Field(i)); name != "" {
			res[name] = fv.Elem().Interface()
		}
	}
	return res
}

func columnName(sf reflect.StructField) string {
	if col, ok := sf.Tag.Lookup("column"); ok {
		if col == "-" {
			return ""
		}
		return col
	}
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// ParseLimit reads a non-negative page size from a query value, capped at
// max. Anything unparsable yields def.
func ParseLimit(s string, def, max int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
