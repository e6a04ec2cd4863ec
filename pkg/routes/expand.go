package routes

import (
	"fmt"
	"reflect"
)

// Expand turns a descriptor plus its resolved data into concrete page
// jobs, one per collection item. The data must be a list (after the
// hook-shape unwrapping done by the caller); anything else returns
// ErrNotCollection and the route is skipped.
//
// Failures extracting params or path for a single item are collected as
// ItemErrors and do not stop expansion of the remaining items.
func Expand(d Descriptor, data any) ([]PageJob, []*ItemError, error) {
	items, ok := asList(data)
	if !ok {
		return nil, nil, fmt.Errorf("route %s: %w (got %T)", d.Template, ErrNotCollection, data)
	}

	jobs := make([]PageJob, 0, len(items))
	var itemErrs []*ItemError

	for i, item := range items {
		job, err := expandItem(d, item)
		if err != nil {
			itemErrs = append(itemErrs, &ItemError{Index: i, Err: err})
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, itemErrs, nil
}

// expandItem builds one job, converting panics in the caller-supplied
// functions into per-item errors.
func expandItem(d Descriptor, item any) (job PageJob, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("expanding item: %v", r)
		}
	}()

	var params map[string]any
	if d.Params != nil {
		params = d.Params(item)
	}

	if d.Path == nil {
		return PageJob{}, fmt.Errorf("descriptor has no path function")
	}
	out := d.Path(item)
	if out == "" {
		return PageJob{}, fmt.Errorf("path function returned an empty path")
	}

	return PageJob{Template: d.Template, Params: params, OutputPath: out}, nil
}

// asList normalizes any slice or array into []any. Strings and byte
// slices are not collections for routing purposes.
func asList(data any) ([]any, bool) {
	if data == nil {
		return nil, false
	}
	if items, ok := data.([]any); ok {
		return items, true
	}

	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, false
	}
	if v.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}

	items := make([]any, v.Len())
	for i := range items {
		items[i] = v.Index(i).Interface()
	}
	return items, true
}
