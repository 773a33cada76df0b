// Copyright (c) 2022-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stash

var (
	_ Session = (*Values)(nil)
)

// Values is a Session that operates on a session value map, such as the
// Values field of a gorilla/sessions Session.
//
// Updates are written straight through to the underlying map. The host is
// responsible for saving the session when Modified returns true.
type Values struct {
	values map[interface{}]interface{}

	// modified represents whether the session values have been updated in a
	// way that requires the session to be saved.
	modified bool
}

// NewValues returns a new Values that operates on the provided map. A new map
// is allocated when m is nil.
func NewValues(m map[interface{}]interface{}) *Values {
	if m == nil {
		m = make(map[interface{}]interface{})
	}
	return &Values{
		values: m,
	}
}

// Value returns the value for the key and whether it exists.
//
// This function satisfies the Session interface.
func (v *Values) Value(key string) (interface{}, bool) {
	value, ok := v.values[key]
	return value, ok
}

// SetValue sets the value for the key. It does not flag the session as
// modified.
//
// This function satisfies the Session interface.
func (v *Values) SetValue(key string, value interface{}) {
	v.values[key] = value
}

// DelValue deletes the key.
//
// This function satisfies the Session interface.
func (v *Values) DelValue(key string) {
	delete(v.values, key)
}

// SetModified flags the session as modified.
//
// This function satisfies the Session interface.
func (v *Values) SetModified() {
	v.modified = true
}

// Modified returns whether the session must be saved.
func (v *Values) Modified() bool {
	return v.modified
}

// Map returns the underlying value map.
func (v *Values) Map() map[interface{}]interface{} {
	return v.values
}
