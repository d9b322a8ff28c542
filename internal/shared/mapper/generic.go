// Package mapper provides small generic helpers for converting slices between layers.
package mapper

import "fmt"

// MapSlice applies fn to each element. A nil input yields nil.
func MapSlice[T any, R any](items []T, fn func(T) R) []R {
	if items == nil {
		return nil
	}
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

// MapSliceWithError applies fn to each element and stops at the first error.
func MapSliceWithError[T any, R any](items []T, fn func(T) (R, error)) ([]R, error) {
	if items == nil {
		return nil, nil
	}
	out := make([]R, 0, len(items))
	for i, item := range items {
		r, err := fn(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// MapSlicePtrWithID maps pointer slices, skipping nil inputs and nil results.
// Errors are annotated with the item's ID so a single corrupt row is easy to find.
func MapSlicePtrWithID[T any, R any, ID any](items []*T, fn func(*T) (*R, error), idOf func(*T) ID) ([]*R, error) {
	if items == nil {
		return nil, nil
	}
	out := make([]*R, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		r, err := fn(item)
		if err != nil {
			return nil, fmt.Errorf("failed to map item with ID %v: %w", idOf(item), err)
		}
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}
