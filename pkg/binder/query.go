package binder

import (
	"fmt"
	"net/http"
	"reflect"
)

// Query binds URL query parameters into struct fields tagged
// `query:"name"`. Only the first value of a repeated parameter is used.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		values := r.URL.Query()
		if len(values) == 0 {
			return ErrNotApplicable
		}

		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("%w: target must be a pointer to struct", ErrFailedToParseQuery)
		}
		rv = rv.Elem()
		rt := rv.Type()

		for i := range rv.NumField() {
			field := rv.Field(i)
			if !field.CanSet() {
				continue
			}
			name, skip := parseFieldTag(rt.Field(i), "query")
			if skip {
				continue
			}
			value := values.Get(name)
			if value == "" {
				continue
			}
			if err := setFieldValue(field, rt.Field(i).Type, value); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrFailedToParseQuery, name, err)
			}
		}
		return nil
	}
}
