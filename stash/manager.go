// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stash

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

var (
	_ Counter = (*Manager[Entity])(nil)
)

// Manager provides the stash operations of a single entity type.
//
// T must be a struct type whose pointer is a gorm model. StashKind is called
// on the zero value of T when the Manager is created.
type Manager[T Entity] struct {
	db   *gorm.DB
	kind Kind
}

// NewManager returns a new Manager for the entity type T.
func NewManager[T Entity](db *gorm.DB) *Manager[T] {
	var zero T
	k := zero.StashKind().withDefaults()

	log.Debugf("Stash manager %v: key %v, owner column %v, count name %q",
		k.Name, k.SessionKey, k.OwnerColumn, k.CountName)

	return &Manager[T]{
		db:   db,
		kind: k,
	}
}

// Kind returns the stash settings of the entity type.
func (m *Manager[T]) Kind() Kind {
	return m.kind
}

// CountName returns the render context name of the stash count. An empty
// string is returned when the entity type does not contribute a count.
//
// This function satisfies the Counter interface.
func (m *Manager[T]) CountName() string {
	return m.kind.CountName
}

// Stash adds the entity to the stash list of the session.
//
// Entities with an owner are never stashed and ResultOwned is returned. The
// session is flagged as modified only when the identifier was added to the
// list. Repeated calls for the same entity return ResultAlreadyStashed and
// leave the session untouched.
func (m *Manager[T]) Stash(s Session, e T) (Result, error) {
	id := e.StashID()
	if e.StashOwner() != nil {
		log.Tracef("Stash %v %v: entity is owned", m.kind.Name, id)
		return ResultOwned, nil
	}

	ids, err := readList(s, m.kind.SessionKey)
	if err != nil {
		return ResultInvalid, err
	}
	if containsID(ids, id) {
		return ResultAlreadyStashed, nil
	}

	s.SetValue(m.kind.SessionKey, append(ids, id))
	s.SetModified()

	log.Debugf("Stashed %v %v", m.kind.Name, id)

	return ResultStashed, nil
}

// IsStashed returns whether the entity is in the stash list of the session.
//
// Owned entities are never stashed, even when a stale identifier remains in
// the list.
func (m *Manager[T]) IsStashed(s Session, e T) bool {
	if e.StashOwner() != nil {
		return false
	}
	ids, err := readList(s, m.kind.SessionKey)
	if err != nil {
		log.Warnf("IsStashed %v %v: %v", m.kind.Name, e.StashID(), err)
		return false
	}
	return containsID(ids, e.StashID())
}

// Clear removes the stash list from the session. It is not an error if the
// session does not contain a stash list.
func (m *Manager[T]) Clear(s Session) {
	if _, ok := s.Value(m.kind.SessionKey); !ok {
		return
	}
	s.DelValue(m.kind.SessionKey)
	s.SetModified()

	log.Debugf("Cleared %v stash", m.kind.Name)
}

// ReparentAll sets the owner of every stashed entity and clears the stash
// list. The owner is set with a single bulk update. The number of updated
// rows is returned.
//
// The update and the clear are not atomic. Two concurrent calls for the same
// session may both update the same rows.
func (m *Manager[T]) ReparentAll(s Session, owner uuid.UUID) (int64, error) {
	ids, err := readList(s, m.kind.SessionKey)
	if err != nil {
		return 0, err
	}

	var rows int64
	if len(ids) > 0 {
		r := m.stashedQuery(ids).UpdateColumn(m.kind.OwnerColumn, owner)
		if r.Error != nil {
			return 0, errors.Wrapf(r.Error, "reparent %v", m.kind.Name)
		}
		rows = r.RowsAffected
	}

	m.Clear(s)

	log.Debugf("Reparented %v/%v %v to %v", rows, len(ids), m.kind.Name, owner)

	return rows, nil
}

// Count returns the number of identifiers in the stash list. Zero is returned
// when the session does not contain a stash list.
//
// The count is the length of the raw list. Entities that acquired an owner
// without going through ReparentAll are still counted.
//
// An error that wraps ErrCountUnavailable is returned when the list cannot be
// read.
//
// This function satisfies the Counter interface.
func (m *Manager[T]) Count(s Session) (int, error) {
	ids, err := readList(s, m.kind.SessionKey)
	if err != nil {
		return 0, errors.Wrapf(ErrCountUnavailable, "%v: %v", m.kind.Name, err)
	}
	return len(ids), nil
}

// StashedQuery returns the unexecuted query that selects the stashed
// entities. Entities that have acquired an owner are excluded. The query
// selects nothing when the session does not contain a stash list.
func (m *Manager[T]) StashedQuery(s Session) *gorm.DB {
	ids, err := readList(s, m.kind.SessionKey)
	if err != nil {
		log.Warnf("StashedQuery %v: %v", m.kind.Name, err)
	}
	if len(ids) == 0 {
		return m.noneQuery()
	}
	return m.stashedQuery(ids)
}

// Stashed returns the stashed entities.
func (m *Manager[T]) Stashed(s Session) ([]T, error) {
	ids, err := readList(s, m.kind.SessionKey)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []T{}, nil
	}

	var es []T
	err = m.stashedQuery(ids).Find(&es).Error
	if err != nil {
		return nil, errors.Wrapf(err, "find stashed %v", m.kind.Name)
	}

	return es, nil
}

// VisibleQuery returns the unexecuted query that selects the entities the
// request may act on. These are the entities owned by the authenticated user,
// or the stashed entities when the request is anonymous.
func (m *Manager[T]) VisibleQuery(r Request) *gorm.DB {
	if userID, ok := r.UserID(); ok {
		return m.ownedQuery(userID)
	}
	return m.StashedQuery(r.Session())
}

// Visible returns the entities the request may act on. See VisibleQuery.
func (m *Manager[T]) Visible(r Request) ([]T, error) {
	userID, ok := r.UserID()
	if !ok {
		return m.Stashed(r.Session())
	}

	var es []T
	err := m.ownedQuery(userID).Find(&es).Error
	if err != nil {
		return nil, errors.Wrapf(err, "find owned %v", m.kind.Name)
	}

	return es, nil
}

// stashedQuery returns the query for the unowned entities in ids.
func (m *Manager[T]) stashedQuery(ids []int64) *gorm.DB {
	q := fmt.Sprintf("%v IN (?) AND %v IS NULL",
		m.kind.IDColumn, m.kind.OwnerColumn)
	return m.db.Model(new(T)).Where(q, ids)
}

// ownedQuery returns the query for the entities owned by the user.
func (m *Manager[T]) ownedQuery(userID uuid.UUID) *gorm.DB {
	q := fmt.Sprintf("%v = ?", m.kind.OwnerColumn)
	return m.db.Model(new(T)).Where(q, userID)
}

// noneQuery returns a query that selects nothing.
func (m *Manager[T]) noneQuery() *gorm.DB {
	return m.db.Model(new(T)).Where("1 = 0")
}
