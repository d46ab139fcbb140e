package binder

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"

	"github.com/go-chi/chi/v5"
)

// Extractor returns the raw value of a named path parameter.
type Extractor func(r *http.Request, name string) string

// Path binds chi URL parameters into struct fields tagged `path:"name"`.
// Fields without a tag use the lower-cased field name; `path:"-"` skips the
// field. Values are URL-unescaped, so a queue named "order updates" arrives
// intact. Missing parameters leave the field at its zero value.
//
//	type jobRequest struct {
//		Queue string `path:"name"`
//		JobID string `path:"id"`
//	}
func Path() func(r *http.Request, v any) error {
	return PathFrom(chi.URLParam)
}

// PathFrom is Path with a custom extractor, for routers other than chi.
func PathFrom(extract Extractor) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extract == nil {
			return fmt.Errorf("%w: nil extractor", ErrFailedToParsePath)
		}

		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.IsNil() {
			return fmt.Errorf("%w: target must be a non-nil pointer", ErrFailedToParsePath)
		}
		rv = rv.Elem()
		if rv.Kind() != reflect.Struct {
			return fmt.Errorf("%w: target must be a pointer to struct", ErrFailedToParsePath)
		}

		rt := rv.Type()
		for i := range rv.NumField() {
			field := rv.Field(i)
			if !field.CanSet() {
				continue
			}
			name, skip := parseFieldTag(rt.Field(i), "path")
			if skip {
				continue
			}

			raw := extract(r, name)
			if raw == "" {
				continue
			}
			value, err := url.PathUnescape(raw)
			if err != nil {
				return fmt.Errorf("%w: field %s: %v", ErrFailedToParsePath, rt.Field(i).Name, err)
			}
			if err := setFieldValue(field, rt.Field(i).Type, value); err != nil {
				return fmt.Errorf("%w: field %s: %v", ErrFailedToParsePath, rt.Field(i).Name, err)
			}
		}
		return nil
	}
}
