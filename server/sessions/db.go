// Copyright (c) 2021-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sessions

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an entry is not found in the database.
	ErrNotFound = errors.New("session not found")
)

// DB represents the database for encoded session data.
type DB interface {
	// Save saves a session to the database.
	Save(sessionID string, s EncodedSession) error

	// Del deletes a session from the database.
	//
	// An error is not returned if the session does not exist.
	Del(sessionID string) error

	// Get gets a session from the database.
	//
	// An ErrNotFound error MUST be returned if a session is not found
	// for the session ID.
	Get(sessionID string) (*EncodedSession, error)
}

// Cleaner is implemented by databases that can delete expired sessions. The
// gorilla/sessions Store does not expire sessions on its own, so the caller
// is expected to run Cleanup periodically.
type Cleaner interface {
	// Cleanup deletes all expired sessions.
	Cleanup() error
}

// EncodedSession contains a session's encoded values.
type EncodedSession struct {
	Values string `json:"values"`
}

// Expired returns whether a session that was first saved at the createdAt
// Unix timestamp has outlived maxAge seconds at now. Databases must not return
// expired sessions from Get, even when Cleanup has not run yet.
func Expired(createdAt, maxAge int64, now time.Time) bool {
	return createdAt+maxAge <= now.Unix()
}
