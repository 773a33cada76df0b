// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stash

import (
	"errors"

	"github.com/google/uuid"
)

const (
	// Version is the version of the stash package.
	Version = "1.0.0"

	// DefaultSessionKey is the session key that holds the stash list when a
	// Kind does not set one. Entity types that share a session must each set
	// their own key.
	DefaultSessionKey = "object_stash"

	// DefaultOwnerColumn is the owner column used when a Kind does not set
	// one.
	DefaultOwnerColumn = "created_by"

	// DefaultIDColumn is the identifier column used when a Kind does not set
	// one.
	DefaultIDColumn = "id"
)

var (
	// ErrCountUnavailable is returned when the number of stashed entities
	// cannot be determined because the session value could not be read.
	ErrCountUnavailable = errors.New("stash count unavailable")

	// ErrCorruptList is returned when the session value under a stash key is
	// not a list of identifiers.
	ErrCorruptList = errors.New("stash list corrupt")
)

// Kind contains the type level stash settings of an entity type.
type Kind struct {
	// Name is a human readable name of the entity type. It is only used in
	// log messages.
	Name string

	// SessionKey is the session value key that holds the stash list.
	SessionKey string

	// OwnerColumn is the database column that references the owner.
	OwnerColumn string

	// IDColumn is the database column of the entity identifier.
	IDColumn string

	// CountName is the name of the render context value that carries the
	// number of stashed entities. An empty CountName means the entity type
	// does not contribute a count.
	CountName string
}

// withDefaults returns a copy of the kind with the defaults applied to any
// unset fields.
func (k Kind) withDefaults() Kind {
	if k.SessionKey == "" {
		k.SessionKey = DefaultSessionKey
	}
	if k.OwnerColumn == "" {
		k.OwnerColumn = DefaultOwnerColumn
	}
	if k.IDColumn == "" {
		k.IDColumn = DefaultIDColumn
	}
	if k.Name == "" {
		k.Name = k.SessionKey
	}
	return k
}

// Entity is a database entity that can be stashed in a session while it has
// no owner.
//
// StashKind is called on the zero value of the type, so it must not depend on
// the entity's fields.
type Entity interface {
	// StashID returns the unique identifier of the entity.
	StashID() int64

	// StashOwner returns the owner of the entity or nil if the entity is
	// anonymous.
	StashOwner() *uuid.UUID

	// StashKind returns the type level stash settings.
	StashKind() Kind
}

// Session is the key-value store of a visitor session. Implementations are
// supplied by the host.
type Session interface {
	// Value returns the value for the key and whether it exists.
	Value(key string) (interface{}, bool)

	// SetValue sets the value for the key.
	SetValue(key string, value interface{})

	// DelValue deletes the key. Deleting a key that does not exist is not
	// an error.
	DelValue(key string)

	// SetModified flags the session as modified. The host persists the
	// session only when it has been flagged.
	SetModified()
}

// Request is the part of a request that the stash needs to know about.
type Request interface {
	// Session returns the visitor session.
	Session() Session

	// UserID returns the authenticated user and true, or false when the
	// request is anonymous.
	UserID() (uuid.UUID, bool)
}

// Result is the outcome of a Stash call.
type Result int

const (
	// ResultInvalid is an invalid result.
	ResultInvalid Result = iota

	// ResultStashed indicates that the identifier was added to the stash
	// list.
	ResultStashed

	// ResultAlreadyStashed indicates that the identifier was already in the
	// stash list.
	ResultAlreadyStashed

	// ResultOwned indicates that the entity has an owner and was not
	// stashed.
	ResultOwned
)

var results = map[Result]string{
	ResultInvalid:        "invalid",
	ResultStashed:        "stashed",
	ResultAlreadyStashed: "already stashed",
	ResultOwned:          "owned",
}

// String returns the human readable result.
func (r Result) String() string {
	s, ok := results[r]
	if !ok {
		return results[ResultInvalid]
	}
	return s
}
