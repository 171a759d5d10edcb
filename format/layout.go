package format

import (
	"fmt"
)

// A named field of a layout and its size in bytes. A size of zero marks a
// variable-length field that runs to the end of the data, and may only come
// last.
type field struct {
	name string
	size int
}

// A fixed arrangement of named byte fields, used to slice container headers
// without hand-computing offsets everywhere.
type layout struct {
	// a map of field names to their indices, tuples of (inclusive, exclusive).
	// the trailing variable field, if any, ends at -1.
	boundaries map[string][2]int

	// the combined size of all the fixed fields
	size int
}

// Builds a layout from the given fields. Misuse is a programming error, so it
// panics rather than returning one.
func newLayout(fields ...field) layout {
	if len(fields) == 0 {
		panic("At least one field is required")
	}

	boundaries := make(map[string][2]int, len(fields))
	start := 0
	for i, f := range fields {
		if len(f.name) == 0 {
			panic("Field names must not be empty")
		} else if _, ok := boundaries[f.name]; ok {
			panic(fmt.Sprintf("Duplicate field name: %s", f.name))
		} else if f.size < 0 {
			panic(fmt.Sprintf("Field sizes must be >= 0 (got: %d)", f.size))
		}

		if f.size == 0 {
			if i != len(fields)-1 {
				panic("Only the last field may be variable-length")
			}
			boundaries[f.name] = [2]int{start, -1}
			continue
		}

		boundaries[f.name] = [2]int{start, start + f.size}
		start += f.size
	}

	return layout{
		boundaries,
		start,
	}
}

// Wraps some data in the layout. Data shorter than the fixed fields is
// reported as not ok.
func (l layout) view(data []byte) (view, bool) {
	if len(data) < l.size {
		return view{}, false
	}
	return view{l, data}, true
}

// Allocates a zeroed buffer for the fixed fields followed by room for a
// variable-length tail of the given size.
func (l layout) alloc(tail int) view {
	return view{l, make([]byte, l.size+tail)}
}

// Some data seen through a layout. Slices returned from a view share its
// memory, so writing to them fills in the underlying field.
type view struct {
	layout layout
	data   []byte
}

// Returns the bytes of the named field, panicking on unknown names since
// field names are treated as accessors.
func (v view) Get(name string) []byte {
	boundary, ok := v.layout.boundaries[name]
	if !ok {
		panic(fmt.Sprintf("Invalid field name: %s", name))
	}

	if boundary[1] < 0 {
		return v.data[boundary[0]:]
	}
	return v.data[boundary[0]:boundary[1]]
}

// Returns all the bytes of the view.
func (v view) Bytes() []byte {
	return v.data
}
