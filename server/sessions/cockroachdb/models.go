// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cockroachdb

// Session represents an encoded session.
//
// ID is a SHA256 hash of the decoded session ID. The session Store handles
// encoding/decoding the ID.
//
// Blob is the encrypted, JSON encoded sessions.EncodedSession. CreatedAt is
// broken out of the blob so that expired sessions can be queried.
type Session struct {
	ID        string `gorm:"primary_key"` // SHA256 hash of the session ID
	Blob      []byte `gorm:"not null"`    // Encrypted encoded session
	CreatedAt int64  `gorm:"not null"`    // Created at UNIX timestamp
}

// TableName returns the table name of the Session table.
func (Session) TableName() string {
	return tableSessions
}
