// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stash

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"
)

// readList returns the stash list stored under key. A missing key is
// returned as a nil list with no error.
//
// Sessions that are encoded with gob keep the []int64 type. Sessions that are
// encoded with JSON return a []interface{} of float64 values, so both forms
// are accepted.
func readList(s Session, key string) ([]int64, error) {
	v, ok := s.Value(key)
	if !ok || v == nil {
		return nil, nil
	}

	switch l := v.(type) {
	case []int64:
		return l, nil
	case []int:
		ids := make([]int64, 0, len(l))
		for _, id := range l {
			ids = append(ids, int64(id))
		}
		return ids, nil
	case []interface{}:
		ids := make([]int64, 0, len(l))
		for _, e := range l {
			id, err := toID(e)
			if err != nil {
				return nil, errors.Wrapf(ErrCorruptList, "%v: %v", key, err)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	return nil, errors.Wrapf(ErrCorruptList, "%v: unexpected type %T", key, v)
}

// toID converts a decoded list element to an identifier.
func toID(v interface{}) (int64, error) {
	switch id := v.(type) {
	case int64:
		return id, nil
	case int:
		return int64(id), nil
	case int32:
		return int64(id), nil
	case uint32:
		return int64(id), nil
	case float64:
		if id != math.Trunc(id) {
			return 0, errors.Errorf("non integer id %v", id)
		}
		return int64(id), nil
	case json.Number:
		return id.Int64()
	}
	return 0, errors.Errorf("invalid id type %T", v)
}

// containsID returns whether the id is in the list.
func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
