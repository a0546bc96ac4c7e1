package registry

import (
	"reflect"

	"github.com/alphadose/haxmap"
)

// Directory holds one value per Go type. The bus uses it to keep a single topic
// registry per message type, so that a (type, topic) pair maps to one channel.
type Directory struct {
	values *haxmap.Map[string, any]
}

// New creates an empty directory.
func New() *Directory {
	return &Directory{
		values: haxmap.New[string, any](),
	}
}

// Key returns the directory key for T. Package path is included so that
// identically named types from different packages do not collide.
func Key[T any]() string {
	t := reflect.TypeFor[T]()
	return t.PkgPath() + "|" + t.String()
}

// GetOrAdd returns the value stored for T, storing the result of create if there
// is none. Racing callers may each run create, but all of them get the one value
// that was stored. The boolean reports whether the value already existed.
func GetOrAdd[T, V any](d *Directory, create func() V) (V, bool) {
	v, loaded := d.values.GetOrCompute(Key[T](), func() any { return create() })
	return v.(V), loaded
}

// Get returns the value stored for T.
func Get[T, V any](d *Directory) (V, bool) {
	v, ok := d.values.Get(Key[T]())
	if !ok {
		var zero V
		return zero, false
	}
	typed, ok := v.(V)
	return typed, ok
}

// Len returns the number of types with a stored value.
func (d *Directory) Len() int {
	return int(d.values.Len())
}
