// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stash

import (
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
)

// item is a stashable test entity that contributes a render count.
type item struct {
	ID        int64      `gorm:"primary_key"`
	Name      string     `gorm:"not null"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
}

func (item) TableName() string { return "items" }

func (i item) StashID() int64 { return i.ID }

func (i item) StashOwner() *uuid.UUID { return i.CreatedBy }

func (item) StashKind() Kind {
	return Kind{
		Name:       "item",
		SessionKey: "item_stash",
		CountName:  "stashed_items",
	}
}

// note is a stashable test entity that relies on the kind defaults and does
// not contribute a render count.
type note struct {
	ID        int64 `gorm:"primary_key"`
	CreatedBy *uuid.UUID
}

func (note) TableName() string { return "notes" }

func (n note) StashID() int64 { return n.ID }

func (n note) StashOwner() *uuid.UUID { return n.CreatedBy }

func (note) StashKind() Kind { return Kind{} }

// memo is a stashable test entity that also relies on the default session
// key.
type memo struct {
	ID        int64 `gorm:"primary_key"`
	CreatedBy *uuid.UUID
}

func (memo) TableName() string { return "memos" }

func (m memo) StashID() int64 { return m.ID }

func (m memo) StashOwner() *uuid.UUID { return m.CreatedBy }

func (memo) StashKind() Kind { return Kind{Name: "memo"} }

// widget is a stashable test entity that reuses the count name of item.
type widget struct {
	ID        int64 `gorm:"primary_key"`
	CreatedBy *uuid.UUID
}

func (widget) TableName() string { return "widgets" }

func (w widget) StashID() int64 { return w.ID }

func (w widget) StashOwner() *uuid.UUID { return w.CreatedBy }

func (widget) StashKind() Kind {
	return Kind{
		Name:       "widget",
		SessionKey: "widget_stash",
		CountName:  "stashed_items",
	}
}

// testRequest implements the Request interface.
type testRequest struct {
	session *Values
	userID  *uuid.UUID
}

func (r testRequest) Session() Session { return r.session }

func (r testRequest) UserID() (uuid.UUID, bool) {
	if r.userID == nil {
		return uuid.UUID{}, false
	}
	return *r.userID, true
}

// setupTestDB returns a gorm context on top of a sqlmock database along with
// the sql mocking context and a cleanup function. Invocation of the cleanup
// function should be deferred by the caller.
func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error %s while creating stub db conn", err)
	}

	gdb, err := gorm.Open("postgres", db)
	if err != nil {
		t.Fatalf("error %s while opening db with gorm", err)
	}
	gdb.LogMode(false)

	return gdb, mock, func() {
		db.Close()
	}
}

// sqlRegexp returns a regular expression that matches the provided SQL
// fragments separated by any amount of whitespace. gorm is not consistent in
// the whitespace that it emits between clauses.
func sqlRegexp(fragments ...string) string {
	quoted := make([]string, 0, len(fragments))
	for _, f := range fragments {
		quoted = append(quoted, regexp.QuoteMeta(f))
	}
	return strings.Join(quoted, `\s+`)
}

// owner returns a pointer to a new random user ID.
func owner() *uuid.UUID {
	u := uuid.New()
	return &u
}
