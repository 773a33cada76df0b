// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package drafts

import (
	"time"

	"github.com/decred/sessionstash/stash"
	"github.com/google/uuid"
)

const (
	// Database table names
	tableDrafts = "drafts"
	tableUsers  = "users"
)

var (
	_ stash.Entity = Draft{}
)

// Draft is a piece of content that can be created by anonymous visitors. A
// draft without an owner is kept in the stash of the visitor's session until
// the visitor logs in.
type Draft struct {
	ID        int64      `gorm:"primary_key"`            // Unique ID
	Title     string     `gorm:"not null"`               // Draft title
	Body      string     `gorm:"type:text"`              // Draft body
	CreatedBy *uuid.UUID `gorm:"type:varchar(36);index"` // Owner user ID
	CreatedAt time.Time  `gorm:"not null"`               // Set by gorm
}

// TableName returns the table name of the Draft table.
func (Draft) TableName() string {
	return tableDrafts
}

// StashID returns the draft ID.
//
// This function satisfies the stash.Entity interface.
func (d Draft) StashID() int64 {
	return d.ID
}

// StashOwner returns the owner of the draft.
//
// This function satisfies the stash.Entity interface.
func (d Draft) StashOwner() *uuid.UUID {
	return d.CreatedBy
}

// StashKind returns the stash settings of drafts.
//
// This function satisfies the stash.Entity interface.
func (Draft) StashKind() stash.Kind {
	return stash.Kind{
		Name:        "draft",
		SessionKey:  "draft_stash",
		OwnerColumn: "created_by",
		CountName:   "stashed_drafts",
	}
}

// User is a registered user account.
type User struct {
	ID             uuid.UUID `gorm:"primary_key;type:varchar(36)"` // UUID
	Username       string    `gorm:"not null;unique"`              // Unique username
	HashedPassword []byte    `gorm:"not null"`                     // bcrypt hash
	CreatedAt      time.Time `gorm:"not null"`                     // Set by gorm
}

// TableName returns the table name of the User table.
func (User) TableName() string {
	return tableUsers
}
