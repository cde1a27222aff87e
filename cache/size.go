package cache

import (
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// FallbackSize is the cost charged for a value that neither implements Sizer
// nor can be serialized.
const FallbackSize = 1024

// Sizer is implemented by values that know their approximate memory cost in
// bytes. Values without it are measured by serializing them.
type Sizer interface {
	CacheSize() int
}

// EstimateSize returns the byte cost used for budget accounting. A nil
// pointer is measured by serialization even when its type is a Sizer, since
// a value receiver cannot be called through it.
func EstimateSize(v any) int {
	if s, ok := v.(Sizer); ok && !isNilPointer(v) {
		return s.CacheSize()
	}
	buf, err := msgpack.Marshal(v)
	if err != nil {
		return FallbackSize
	}
	return len(buf)
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
